package formdata

import (
	"regexp"
	"strings"
)

// Sector is the organization sector reported on the form.
type Sector string

const (
	SectorAcademic Sector = "Academic"
	SectorIndustry Sector = "Industry"
)

const (
	// DefaultCount is the value numeric fields hold when the message carries no number.
	DefaultCount = 1

	// TierFloor is the smallest plan size offered above two seats.
	TierFloor = 5
)

// FormData is the canonical record recovered from a license request message.
// It is populated once by extraction and read-only afterwards.
type FormData struct {
	Name               string `json:"name" yaml:"name"`
	Email              string `json:"email" yaml:"email"`
	AlternateEmail     string `json:"alternate_email" yaml:"alternate_email"`
	OrganizationName   string `json:"organization_name" yaml:"organization_name"`
	OrganizationSector Sector `json:"organization_sector" yaml:"organization_sector"`
	NumPremiumUsers    int    `json:"num_premium_users" yaml:"num_premium_users"`
	LicenseLengthYears int    `json:"license_length_years" yaml:"license_length_years"`
	InstitutionName    string `json:"institution_name" yaml:"institution_name"`
	AdminName          string `json:"admin_name" yaml:"admin_name"`
	AdminEmail         string `json:"admin_email" yaml:"admin_email"`
	BillingName        string `json:"billing_name" yaml:"billing_name"`
	BillingEmail       string `json:"billing_email" yaml:"billing_email"`
	BillingAddress     string `json:"billing_address" yaml:"billing_address"`
	ShippingAddress    string `json:"shipping_address" yaml:"shipping_address"`
	VATTaxID           string `json:"vat_tax_id" yaml:"vat_tax_id"`
	UserNamesEmails    string `json:"user_names_emails" yaml:"user_names_emails"`
	FirstUserName      string `json:"first_user_name" yaml:"first_user_name"`
	FirstUserEmail     string `json:"first_user_email" yaml:"first_user_email"`
	SecondUserName     string `json:"second_user_name" yaml:"second_user_name"`
	SecondUserEmail    string `json:"second_user_email" yaml:"second_user_email"`
}

// New returns an empty record with numeric fields at their defaults.
func New() FormData {
	return FormData{
		NumPremiumUsers:    DefaultCount,
		LicenseLengthYears: DefaultCount,
	}
}

// EmailPattern matches a single email address.
var EmailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

var (
	capitalizedRun = regexp.MustCompile(`[A-Z][a-zA-Z'.-]*(?:\s+[A-Z][a-zA-Z'.-]*)*`)
	decorations    = strings.NewReplacer("(", " ", ")", " ", "<", " ", ">", " ", ",", " ", ";", " ",
		"[", " ", "]", " ", "–", " ", "—", " ", " - ", " ", ":", " ", "\"", " ")
)

var connectives = map[string]bool{"and": true, "&": true, "or": true, "plus": true}

// FindEmails returns every email address in text, in order of appearance.
func FindEmails(text string) []string {
	return EmailPattern.FindAllString(text, -1)
}

// DeriveSecondUser scans a free-text user list for the first address that is
// not the primary one. The name is the first capitalized run left after the
// addresses and the primary name are removed, or the cleaned remainder.
func DeriveSecondUser(userText, primaryEmail, primaryName string) (name, email string) {
	if strings.TrimSpace(userText) == "" {
		return "", ""
	}

	for _, candidate := range FindEmails(userText) {
		if !strings.EqualFold(candidate, primaryEmail) {
			email = candidate
			break
		}
	}
	if email == "" {
		return "", ""
	}

	remaining := userText
	for _, addr := range FindEmails(userText) {
		remaining = strings.ReplaceAll(remaining, addr, " ")
	}
	if primaryName != "" {
		remaining = strings.ReplaceAll(remaining, primaryName, " ")
	}
	remaining = decorations.Replace(remaining)

	words := strings.Fields(remaining)
	kept := words[:0]
	for _, w := range words {
		if !connectives[strings.ToLower(w)] {
			kept = append(kept, w)
		}
	}
	remaining = strings.Join(kept, " ")

	if run := capitalizedRun.FindString(remaining); run != "" {
		return strings.TrimSpace(run), email
	}
	return remaining, email
}
