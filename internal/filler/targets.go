package filler

import (
	"github.com/jakelee-bot/google-form-automation/internal/driver"
	"github.com/jakelee-bot/google-form-automation/internal/formdata"
	"github.com/jakelee-bot/google-form-automation/internal/pages"
)

// aliases are extra label fragments tried after a field's published label.
var aliases = map[formdata.Key][]string{
	formdata.KeyName:             {"name"},
	formdata.KeyEmail:            {"email"},
	formdata.KeyAlternateEmail:   {"send"},
	formdata.KeyOrganizationName: {"organization", "organisation"},
	formdata.KeyInstitutionName:  {"institution"},
	formdata.KeyAdminName:        {"admin name"},
	formdata.KeyAdminEmail:       {"admin email"},
	formdata.KeyFirstUserName:    {"first user name", "name"},
	formdata.KeyFirstUserEmail:   {"first user email", "email"},
	formdata.KeySecondUserName:   {"second user name", "second"},
	formdata.KeySecondUserEmail:  {"second user email"},
	formdata.KeyBillingName:      {"billing name", "name"},
	formdata.KeyBillingEmail:     {"billing email", "email"},
	formdata.KeyBillingAddress:   {"billing address"},
	formdata.KeyShippingAddress:  {"shipping"},
	formdata.KeyVATTaxID:         {"vat", "tax"},
}

// excludes keep loose aliases off neighbouring inputs.
var excludes = map[formdata.Key]string{
	formdata.KeyBillingName:  "ticket",
	formdata.KeyBillingEmail: "ticket",
}

// KindFor maps a field type onto the element kind that renders it.
func KindFor(t pages.FieldType) driver.Kind {
	switch t {
	case pages.TypeEmail:
		return driver.KindEmail
	case pages.TypeTextarea:
		return driver.KindTextarea
	case pages.TypeDropdown:
		return driver.KindDropdown
	case pages.TypeRadio:
		return driver.KindRadio
	default:
		return driver.KindText
	}
}

// TextTargets builds fill targets for the page's free-text fields. Values
// fall back to each field's default source. Positions count single-line
// inputs and textareas separately, in page order.
func TextTargets(p pages.Page, d *formdata.FormData) []Target {
	var (
		out       []Target
		lines     int
		textareas int
	)
	for _, f := range p.Fields {
		kind := KindFor(f.Type)
		var (
			posKind driver.Kind
			pos     int
		)
		switch kind {
		case driver.KindText, driver.KindEmail:
			posKind, pos = driver.KindLine, lines
			lines++
		case driver.KindTextarea:
			posKind, pos = driver.KindTextarea, textareas
			textareas++
		default:
			continue
		}

		labels := []string{f.Label}
		for _, a := range aliases[f.Field] {
			if a != f.Label {
				labels = append(labels, a)
			}
		}
		out = append(out, Target{
			Field:        f.Field,
			Value:        f.Resolve(d),
			Required:     f.Required,
			Kind:         kind,
			Labels:       labels,
			Exclude:      excludes[f.Field],
			PositionKind: posKind,
			Position:     pos,
		})
	}
	return out
}
