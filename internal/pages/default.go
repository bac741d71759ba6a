package pages

import "github.com/jakelee-bot/google-form-automation/internal/formdata"

// adminThreshold is the smallest user count routed to the admin page. Counts
// of 3 and 4 are raised to 5 during extraction, so this also covers raw data.
const adminThreshold = 3

// DefaultPages is the quote request form as published.
func DefaultPages() []Page {
	return []Page{
		{
			ID:   PageContact,
			Name: "Contact Information",
			Fields: []FieldDescriptor{
				{Field: formdata.KeyName, Required: true, Type: TypeText, Label: "Your name"},
				{Field: formdata.KeyEmail, Required: true, Type: TypeEmail, Label: "Your email"},
				{Field: formdata.KeyAlternateEmail, Type: TypeEmail, Label: "Send quote to", DefaultFrom: formdata.KeyEmail},
			},
		},
		{
			ID:   PageOrganization,
			Name: "Organization Details",
			Fields: []FieldDescriptor{
				{Field: formdata.KeyOrganizationName, Required: true, Type: TypeText, Label: "Organization's Name"},
				{
					Field: formdata.KeyOrganizationSector, Required: true, Type: TypeRadio, Label: "Sector",
					Options: []string{string(formdata.SectorAcademic), string(formdata.SectorIndustry)},
				},
			},
		},
		{
			ID:   PageLicense,
			Name: "License Details",
			Fields: []FieldDescriptor{
				{Field: formdata.KeyNumPremiumUsers, Required: true, Type: TypeDropdown, Label: "Number of Premium users"},
				{Field: formdata.KeyLicenseLengthYears, Required: true, Type: TypeDropdown, Label: "Length of license"},
			},
		},
		{
			ID:        PageAdmin,
			Name:      "Admin Information (5+ users)",
			Condition: AtLeast(adminThreshold),
			Fields: []FieldDescriptor{
				{Field: formdata.KeyInstitutionName, Type: TypeText, Label: "Name of institution", DefaultFrom: formdata.KeyOrganizationName},
				{Field: formdata.KeyAdminName, Type: TypeText, Label: "Admin name", DefaultFrom: formdata.KeyName},
				{Field: formdata.KeyAdminEmail, Type: TypeEmail, Label: "Admin email", DefaultFrom: formdata.KeyEmail},
			},
		},
		{
			ID:        PageSingleUser,
			Name:      "Individual User (1 person)",
			Condition: Equals(1),
			Fields: []FieldDescriptor{
				{Field: formdata.KeyFirstUserName, Type: TypeText, Label: "Name", DefaultFrom: formdata.KeyName},
				{Field: formdata.KeyFirstUserEmail, Type: TypeEmail, Label: "Email", DefaultFrom: formdata.KeyEmail},
			},
		},
		{
			ID:        PageTwoUsers,
			Name:      "Two Users Information",
			Condition: Equals(2),
			Fields: []FieldDescriptor{
				{Field: formdata.KeyFirstUserName, Type: TypeText, Label: "First user name", DefaultFrom: formdata.KeyName},
				{Field: formdata.KeyFirstUserEmail, Type: TypeEmail, Label: "First user email", DefaultFrom: formdata.KeyEmail},
				{Field: formdata.KeySecondUserName, Required: true, Type: TypeText, Label: "Second user name"},
				{Field: formdata.KeySecondUserEmail, Required: true, Type: TypeEmail, Label: "Second user email"},
			},
		},
		{
			ID:   PageBilling,
			Name: "Billing Information",
			Fields: []FieldDescriptor{
				{Field: formdata.KeyBillingName, Type: TypeText, Label: "Billing name"},
				{Field: formdata.KeyBillingEmail, Type: TypeEmail, Label: "Billing email"},
				{Field: formdata.KeyBillingAddress, Type: TypeTextarea, Label: "Billing address"},
				{Field: formdata.KeyShippingAddress, Type: TypeTextarea, Label: "Shipping address"},
				{Field: formdata.KeyVATTaxID, Type: TypeText, Label: "VAT or Tax ID"},
			},
		},
	}
}

// Default returns the table for DefaultPages.
func Default() Table {
	t, err := NewTable(DefaultPages())
	if err != nil {
		panic("pages: invalid default table: " + err.Error())
	}
	return t
}
