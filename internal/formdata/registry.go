package formdata

import (
	"sort"
	"strconv"
	"strings"
)

// Key identifies a FormData field. The set is closed; see All.
type Key string

const (
	KeyName               Key = "name"
	KeyEmail              Key = "email"
	KeyAlternateEmail     Key = "alternate_email"
	KeyOrganizationName   Key = "organization_name"
	KeyOrganizationSector Key = "organization_sector"
	KeyNumPremiumUsers    Key = "num_premium_users"
	KeyLicenseLengthYears Key = "license_length_years"
	KeyInstitutionName    Key = "institution_name"
	KeyAdminName          Key = "admin_name"
	KeyAdminEmail         Key = "admin_email"
	KeyBillingName        Key = "billing_name"
	KeyBillingEmail       Key = "billing_email"
	KeyBillingAddress     Key = "billing_address"
	KeyShippingAddress    Key = "shipping_address"
	KeyVATTaxID           Key = "vat_tax_id"
	KeyUserNamesEmails    Key = "user_names_emails"
	KeyFirstUserName      Key = "first_user_name"
	KeyFirstUserEmail     Key = "first_user_email"
	KeySecondUserName     Key = "second_user_name"
	KeySecondUserEmail    Key = "second_user_email"
)

// Field is a typed accessor pair for one FormData attribute.
type Field struct {
	Key     Key
	Numeric bool
	get     func(*FormData) string
	set     func(*FormData, string)
}

// Get renders the field as text. Numeric fields render in decimal.
func (f Field) Get(d *FormData) string {
	return f.get(d)
}

// Set assigns text to the field. Numeric fields ignore values that do not parse.
func (f Field) Set(d *FormData, value string) {
	f.set(d, value)
}

func stringField(key Key, ptr func(*FormData) *string) Field {
	return Field{
		Key: key,
		get: func(d *FormData) string { return *ptr(d) },
		set: func(d *FormData, v string) { *ptr(d) = v },
	}
}

func intField(key Key, ptr func(*FormData) *int) Field {
	return Field{
		Key:     key,
		Numeric: true,
		get:     func(d *FormData) string { return strconv.Itoa(*ptr(d)) },
		set: func(d *FormData, v string) {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*ptr(d) = n
			}
		},
	}
}

var registry = []Field{
	stringField(KeyName, func(d *FormData) *string { return &d.Name }),
	stringField(KeyEmail, func(d *FormData) *string { return &d.Email }),
	stringField(KeyAlternateEmail, func(d *FormData) *string { return &d.AlternateEmail }),
	stringField(KeyOrganizationName, func(d *FormData) *string { return &d.OrganizationName }),
	{
		Key: KeyOrganizationSector,
		get: func(d *FormData) string { return string(d.OrganizationSector) },
		set: func(d *FormData, v string) { d.OrganizationSector = Sector(v) },
	},
	intField(KeyNumPremiumUsers, func(d *FormData) *int { return &d.NumPremiumUsers }),
	intField(KeyLicenseLengthYears, func(d *FormData) *int { return &d.LicenseLengthYears }),
	stringField(KeyInstitutionName, func(d *FormData) *string { return &d.InstitutionName }),
	stringField(KeyAdminName, func(d *FormData) *string { return &d.AdminName }),
	stringField(KeyAdminEmail, func(d *FormData) *string { return &d.AdminEmail }),
	stringField(KeyBillingName, func(d *FormData) *string { return &d.BillingName }),
	stringField(KeyBillingEmail, func(d *FormData) *string { return &d.BillingEmail }),
	stringField(KeyBillingAddress, func(d *FormData) *string { return &d.BillingAddress }),
	stringField(KeyShippingAddress, func(d *FormData) *string { return &d.ShippingAddress }),
	stringField(KeyVATTaxID, func(d *FormData) *string { return &d.VATTaxID }),
	stringField(KeyUserNamesEmails, func(d *FormData) *string { return &d.UserNamesEmails }),
	stringField(KeyFirstUserName, func(d *FormData) *string { return &d.FirstUserName }),
	stringField(KeyFirstUserEmail, func(d *FormData) *string { return &d.FirstUserEmail }),
	stringField(KeySecondUserName, func(d *FormData) *string { return &d.SecondUserName }),
	stringField(KeySecondUserEmail, func(d *FormData) *string { return &d.SecondUserEmail }),
}

// variants maps alternate spellings used by page tables and callers onto canonical keys.
var variants = map[string]Key{
	"send_to":         KeyAlternateEmail,
	"number_of_users": KeyNumPremiumUsers,
	"users":           KeyNumPremiumUsers,
	"license_length":  KeyLicenseLengthYears,
	"sector":          KeyOrganizationSector,
	"vat":             KeyVATTaxID,
}

var byKey = func() map[Key]Field {
	m := make(map[Key]Field, len(registry))
	for _, f := range registry {
		m[f.Key] = f
	}
	return m
}()

// All returns the registry in declaration order.
func All() []Field {
	out := make([]Field, len(registry))
	copy(out, registry)
	return out
}

// Lookup resolves a canonical key or one of its variants.
func Lookup(name string) (Field, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if f, ok := byKey[Key(name)]; ok {
		return f, true
	}
	if k, ok := variants[name]; ok {
		return byKey[k], true
	}
	return Field{}, false
}

// MustLookup is Lookup for keys known at compile time.
func MustLookup(k Key) Field {
	f, ok := byKey[k]
	if !ok {
		panic("formdata: unknown key " + string(k))
	}
	return f
}

// Get reads a field by key, returning "" for unknown keys.
func (d *FormData) Get(k Key) string {
	if f, ok := byKey[k]; ok {
		return f.Get(d)
	}
	return ""
}

// Set writes a field by key. Unknown keys are ignored.
func (d *FormData) Set(k Key, value string) {
	if f, ok := byKey[k]; ok {
		f.Set(d, value)
	}
}

// Variants lists the accepted alternate spellings, sorted.
func Variants() []string {
	out := make([]string, 0, len(variants))
	for v := range variants {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
