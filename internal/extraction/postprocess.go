package extraction

import "github.com/jakelee-bot/google-form-automation/internal/formdata"

// PostProcess enforces the cross-field invariants of a FormData. It is
// idempotent.
//
//   - a user count of 3 or 4 becomes the five-seat tier
//   - institution_name falls back to organization_name
//   - a lone billing or shipping address is mirrored to the other
//   - for one or two users, first/second user fields are derived
func PostProcess(d *formdata.FormData) {
	if d.NumPremiumUsers < formdata.DefaultCount {
		d.NumPremiumUsers = formdata.DefaultCount
	}
	if d.LicenseLengthYears < formdata.DefaultCount {
		d.LicenseLengthYears = formdata.DefaultCount
	}
	if d.NumPremiumUsers == 3 || d.NumPremiumUsers == 4 {
		d.NumPremiumUsers = formdata.TierFloor
	}

	if d.InstitutionName == "" && d.OrganizationName != "" {
		d.InstitutionName = d.OrganizationName
	}

	switch {
	case d.BillingAddress != "" && d.ShippingAddress == "":
		d.ShippingAddress = d.BillingAddress
	case d.ShippingAddress != "" && d.BillingAddress == "":
		d.BillingAddress = d.ShippingAddress
	}

	if d.NumPremiumUsers > 2 {
		return
	}
	d.FirstUserName = d.Name
	d.FirstUserEmail = d.Email

	if d.NumPremiumUsers == 2 && d.SecondUserEmail == "" {
		name, email := formdata.DeriveSecondUser(d.UserNamesEmails, d.Email, d.Name)
		d.SecondUserEmail = email
		if d.SecondUserName == "" {
			d.SecondUserName = name
		}
	}
}
