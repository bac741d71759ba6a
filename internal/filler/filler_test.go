package filler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jakelee-bot/google-form-automation/internal/driver"
	"github.com/jakelee-bot/google-form-automation/internal/driver/replay"
	"github.com/jakelee-bot/google-form-automation/internal/formdata"
	"github.com/jakelee-bot/google-form-automation/internal/pages"
)

func page(t *testing.T, id pages.PageID) pages.Page {
	t.Helper()
	p, err := pages.Default().Page(id)
	require.NoError(t, err)
	return p
}

func start(t *testing.T, ps []pages.Page, opts replay.RenderOptions) (*Filler, *replay.Session) {
	t.Helper()
	d := replay.New(replay.Render(ps, opts))
	s, err := d.Open(context.Background(), driver.Options{Headless: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.True(t, s.Navigate(context.Background(), "https://forms.example/quote").OK())

	f := New(s, Options{ProbeTimeout: time.Second}, zaptest.NewLogger(t))
	return f, s.(*replay.Session)
}

func sample() *formdata.FormData {
	d := formdata.New()
	d.Name = "Jane Lee"
	d.Email = "jane@uni.edu"
	d.OrganizationName = "Uni of Somewhere"
	d.NumPremiumUsers = 7
	d.LicenseLengthYears = 2
	return &d
}

func TestFillPageLabelFirst(t *testing.T) {
	p := page(t, pages.PageContact)
	f, s := start(t, []pages.Page{p}, replay.RenderOptions{})

	tally := f.FillPage(context.Background(), LabelFirst, TextTargets(p, sample()))
	assert.Equal(t, 3, tally.Expected)
	assert.Equal(t, 3, tally.Filled)
	assert.True(t, tally.OK())

	name, ok := s.Filled("Your name")
	require.True(t, ok)
	assert.Equal(t, "Jane Lee", name)
	alt, ok := s.Filled("Send quote to")
	require.True(t, ok)
	assert.Equal(t, "jane@uni.edu", alt, "send-to falls back to the contact email")
}

func TestFillPageUnlabelledFallsBackToPosition(t *testing.T) {
	p := page(t, pages.PageAdmin)
	opts := replay.RenderOptions{Unlabelled: map[pages.PageID]bool{pages.PageAdmin: true}}

	for _, order := range []Order{LabelFirst, PositionFirst} {
		t.Run(order.String(), func(t *testing.T) {
			f, s := start(t, []pages.Page{p}, opts)
			tally := f.FillPage(context.Background(), order, TextTargets(p, sample()))
			assert.Equal(t, 3, tally.Filled)

			var values []string
			for _, a := range s.Actions() {
				if a.Op == "fill" {
					values = append(values, a.Value)
				}
			}
			assert.Equal(t, []string{"Uni of Somewhere", "Jane Lee", "jane@uni.edu"}, values)
		})
	}
}

func TestFillPageRecordsMisses(t *testing.T) {
	p := page(t, pages.PageContact)
	f, _ := start(t, []pages.Page{p}, replay.RenderOptions{})

	targets := []Target{
		{Field: formdata.KeyVATTaxID, Value: "GB123", Kind: driver.KindTextarea, Labels: []string{"vat"}, Position: -1},
		{Field: formdata.KeyAdminName, Value: "Ann", Required: true, Kind: driver.KindTextarea, Labels: []string{"admin"}, Position: -1},
		{Field: formdata.KeyBillingName, Kind: driver.KindText, Labels: []string{"billing"}},
	}
	tally := f.FillPage(context.Background(), LabelFirst, targets)

	assert.Equal(t, 2, tally.Expected, "empty values are not expected")
	assert.Equal(t, 0, tally.Filled)
	require.Len(t, tally.Misses, 2)
	assert.Equal(t, driver.NotFound, tally.Misses[0].Outcome)
	assert.Equal(t, []formdata.Key{formdata.KeyAdminName}, tally.MissedRequired())
	assert.False(t, tally.OK())
}

func TestFillPageRequiredWithoutValue(t *testing.T) {
	p := page(t, pages.PageContact)
	f, s := start(t, []pages.Page{p}, replay.RenderOptions{})

	d := sample()
	d.Email = ""
	tally := f.FillPage(context.Background(), LabelFirst, TextTargets(p, d))

	assert.Equal(t, 2, tally.Expected, "the empty optional send-to field is skipped")
	assert.Equal(t, 1, tally.Filled)
	require.Len(t, tally.Misses, 1)
	assert.Equal(t, driver.NotFound, tally.Misses[0].Outcome)
	assert.Equal(t, []formdata.Key{formdata.KeyEmail}, tally.MissedRequired())
	assert.False(t, tally.OK())

	_, filled := s.Filled("Your email")
	assert.False(t, filled, "nothing is typed for an empty value")
}

func TestFillFieldHonoursCancelledContext(t *testing.T) {
	p := page(t, pages.PageContact)
	f, _ := start(t, []pages.Page{p}, replay.RenderOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := f.FillField(ctx, LabelFirst.Chain(), TextTargets(p, sample())[0])
	assert.Equal(t, driver.Failed, r.Outcome)
	assert.ErrorIs(t, r, context.Canceled)
}

func TestDropdownValue(t *testing.T) {
	tests := []struct {
		field formdata.Key
		n     int
		want  string
	}{
		{formdata.KeyNumPremiumUsers, 1, "1"},
		{formdata.KeyNumPremiumUsers, 15, "15"},
		{formdata.KeyNumPremiumUsers, 16, "16+"},
		{formdata.KeyNumPremiumUsers, 40, "16+"},
		{formdata.KeyLicenseLengthYears, 3, "3"},
		{formdata.KeyLicenseLengthYears, 20, "20"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DropdownValue(tt.field, tt.n), "%s=%d", tt.field, tt.n)
	}
}

func TestSelectDropdown(t *testing.T) {
	p := page(t, pages.PageLicense)
	f, s := start(t, []pages.Page{p}, replay.RenderOptions{})
	ctx := context.Background()

	require.True(t, f.SelectDropdown(ctx, 0, DropdownValue(formdata.KeyNumPremiumUsers, 20), false).OK())
	require.True(t, f.SelectDropdown(ctx, 1, "2", true).OK())

	var selected []string
	for _, a := range s.Actions() {
		if a.Op == "select" {
			selected = append(selected, a.Value)
		}
	}
	assert.Equal(t, []string{"16+", "2"}, selected)

	r := f.SelectDropdown(ctx, 2, "1", false)
	assert.Equal(t, driver.NotFound, r.Outcome)
	r = f.SelectDropdown(ctx, 1, "9", false)
	assert.Equal(t, driver.NotFound, r.Outcome, "license length stops at 5")
}

func TestSelectChoice(t *testing.T) {
	p := page(t, pages.PageOrganization)
	f, s := start(t, []pages.Page{p}, replay.RenderOptions{})

	require.True(t, f.SelectChoice(context.Background(), "academic").OK())
	assert.Equal(t, driver.NotFound, f.SelectChoice(context.Background(), "Government").Outcome)

	actions := s.Actions()
	last := actions[len(actions)-1]
	assert.Equal(t, "select", last.Op)
	assert.Equal(t, "Academic", last.Value)
}

func TestAdvanceSubmitConfirm(t *testing.T) {
	ps := []pages.Page{page(t, pages.PageContact), page(t, pages.PageBilling)}
	f, s := start(t, ps, replay.RenderOptions{SubmitText: "Request Quote"})
	ctx := context.Background()

	assert.True(t, f.CanAdvance(ctx))
	require.True(t, f.Advance(ctx).OK())
	assert.Equal(t, 2, s.CurrentPage())

	assert.False(t, f.CanAdvance(ctx), "terminal page has no Next")
	assert.Equal(t, driver.NotFound, f.Advance(ctx).Outcome)
	assert.False(t, f.Confirmed(ctx))

	require.True(t, f.Submit(ctx).OK())
	assert.Equal(t, 3, s.CurrentPage())
	assert.True(t, f.Confirmed(ctx))
}

func TestSubmitWithoutButton(t *testing.T) {
	ps := []pages.Page{page(t, pages.PageContact), page(t, pages.PageBilling)}
	f, _ := start(t, ps, replay.RenderOptions{SubmitText: "Continue"})
	ctx := context.Background()

	require.True(t, f.Advance(ctx).OK())
	assert.Equal(t, driver.NotFound, f.Submit(ctx).Outcome)
}

func TestPause(t *testing.T) {
	require.NoError(t, Pause(context.Background(), 0))
	require.NoError(t, Pause(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Pause(ctx, time.Hour), context.Canceled)
}

func TestTextTargets(t *testing.T) {
	p := page(t, pages.PageBilling)
	d := sample()
	d.BillingAddress = "1 Main St"
	d.ShippingAddress = "1 Main St"
	d.VATTaxID = "GB1"

	targets := TextTargets(p, d)
	require.Len(t, targets, 5)

	byField := map[formdata.Key]Target{}
	for _, tg := range targets {
		byField[tg.Field] = tg
	}
	assert.Equal(t, driver.KindLine, byField[formdata.KeyBillingEmail].PositionKind)
	assert.Equal(t, 1, byField[formdata.KeyBillingEmail].Position)
	assert.Equal(t, 2, byField[formdata.KeyVATTaxID].Position)
	assert.Equal(t, driver.KindTextarea, byField[formdata.KeyShippingAddress].PositionKind)
	assert.Equal(t, 1, byField[formdata.KeyShippingAddress].Position)
	assert.Equal(t, "ticket", byField[formdata.KeyBillingName].Exclude)
	assert.Empty(t, byField[formdata.KeyBillingName].Value)
	assert.Equal(t, []string{"VAT or Tax ID", "vat", "tax"}, byField[formdata.KeyVATTaxID].Labels)
}
