package formdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	d := New()
	assert.Equal(t, DefaultCount, d.NumPremiumUsers)
	assert.Equal(t, DefaultCount, d.LicenseLengthYears)
	assert.Empty(t, d.Name)
	assert.Empty(t, d.OrganizationSector)
}

func TestDeriveSecondUser(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		primaryEmail string
		primaryName  string
		wantName     string
		wantEmail    string
	}{
		{
			name:      "name with parenthesised address",
			text:      "Bob Young (bob@x.edu)",
			wantName:  "Bob Young",
			wantEmail: "bob@x.edu",
		},
		{
			name:         "primary listed first",
			text:         "Jane Lee <jane@x.edu>, Bob Young <bob@x.edu>",
			primaryEmail: "jane@x.edu",
			primaryName:  "Jane Lee",
			wantName:     "Bob Young",
			wantEmail:    "bob@x.edu",
		},
		{
			name:         "primary address differs only in case",
			text:         "JANE@X.EDU and carol@y.org",
			primaryEmail: "jane@x.edu",
			wantName:     "",
			wantEmail:    "carol@y.org",
		},
		{
			name:      "lowercase remainder kept as name",
			text:      "bob young - bob@x.edu",
			wantName:  "bob young",
			wantEmail: "bob@x.edu",
		},
		{
			name:         "only the primary address",
			text:         "Jane Lee jane@x.edu",
			primaryEmail: "jane@x.edu",
		},
		{
			name: "empty text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotName, gotEmail := DeriveSecondUser(tt.text, tt.primaryEmail, tt.primaryName)
			assert.Equal(t, tt.wantName, gotName)
			assert.Equal(t, tt.wantEmail, gotEmail)
		})
	}
}

func TestFindEmails(t *testing.T) {
	got := FindEmails("reach me at a.b@c.io or x+y@z.co.uk, not at foo@bar")
	assert.Equal(t, []string{"a.b@c.io", "x+y@z.co.uk"}, got)
}

func TestRegistryCoversEveryField(t *testing.T) {
	d := New()
	for _, f := range All() {
		if f.Numeric {
			f.Set(&d, "7")
			assert.Equal(t, "7", f.Get(&d), f.Key)
			continue
		}
		f.Set(&d, "v-"+string(f.Key))
		assert.Equal(t, "v-"+string(f.Key), f.Get(&d), f.Key)
	}
	assert.Len(t, All(), 20)
	assert.Equal(t, 7, d.NumPremiumUsers)
	assert.Equal(t, "v-second_user_email", d.SecondUserEmail)
}

func TestLookupVariants(t *testing.T) {
	f, ok := Lookup("send_to")
	require.True(t, ok)
	assert.Equal(t, KeyAlternateEmail, f.Key)

	f, ok = Lookup(" Number_Of_Users ")
	require.True(t, ok)
	assert.Equal(t, KeyNumPremiumUsers, f.Key)

	_, ok = Lookup("favourite_colour")
	assert.False(t, ok)
}

func TestNumericSetIgnoresGarbage(t *testing.T) {
	d := New()
	d.Set(KeyNumPremiumUsers, "many")
	assert.Equal(t, 1, d.NumPremiumUsers)
	d.Set(KeyNumPremiumUsers, " 12 ")
	assert.Equal(t, 12, d.NumPremiumUsers)
	assert.Equal(t, "12", d.Get(KeyNumPremiumUsers))
	assert.Equal(t, "", d.Get(Key("nope")))
}
