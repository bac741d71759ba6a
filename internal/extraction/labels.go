package extraction

import (
	"regexp"
	"strings"

	"github.com/jakelee-bot/google-form-automation/internal/formdata"
)

type labelVariant struct {
	pattern string
	key     formdata.Key
}

// labelTable is ordered: when two variants tie during containment matching
// the earlier one wins.
var labelTable = []labelVariant{
	{"your name", formdata.KeyName},
	{"full name", formdata.KeyName},
	{"name", formdata.KeyName},
	{"your email", formdata.KeyEmail},
	{"email address", formdata.KeyEmail},
	{"email", formdata.KeyEmail},
	{"alternate email", formdata.KeyAlternateEmail},
	{"send to", formdata.KeyAlternateEmail},
	{"send quote to", formdata.KeyAlternateEmail},
	{"organization name", formdata.KeyOrganizationName},
	{"organisation name", formdata.KeyOrganizationName},
	{"organizations name", formdata.KeyOrganizationName},
	{"name of your institution", formdata.KeyOrganizationName},
	{"organization sector", formdata.KeyOrganizationSector},
	{"organisation sector", formdata.KeyOrganizationSector},
	{"sector", formdata.KeyOrganizationSector},
	{"license type", formdata.KeyOrganizationSector},
	{"how many people need premium access", formdata.KeyNumPremiumUsers},
	{"number of premium users", formdata.KeyNumPremiumUsers},
	{"number of individuals the license is intended for", formdata.KeyNumPremiumUsers},
	{"premium access", formdata.KeyNumPremiumUsers},
	{"length of license", formdata.KeyLicenseLengthYears},
	{"license length", formdata.KeyLicenseLengthYears},
	{"name of institution", formdata.KeyInstitutionName},
	{"institution name", formdata.KeyInstitutionName},
	{"names and emails of intended users", formdata.KeyUserNamesEmails},
	{"intended users", formdata.KeyUserNamesEmails},
	{"admin name", formdata.KeyAdminName},
	{"admin email", formdata.KeyAdminEmail},
	{"billing name", formdata.KeyBillingName},
	{"billing email", formdata.KeyBillingEmail},
	{"billing address", formdata.KeyBillingAddress},
	{"shipping address", formdata.KeyShippingAddress},
	{"vat or tax id", formdata.KeyVATTaxID},
	{"vat or tax id number", formdata.KeyVATTaxID},
	{"tax id", formdata.KeyVATTaxID},
	{"vat", formdata.KeyVATTaxID},
	{"second user name", formdata.KeySecondUserName},
	{"second user email", formdata.KeySecondUserEmail},
	{"second users name", formdata.KeySecondUserName},
	{"second users email", formdata.KeySecondUserEmail},
}

// exactOnly variants never match by containment.
var exactOnly = map[string]bool{"name": true}

// CanonicalLabels are the sixteen labels a normalizer is asked to emit, one per line.
var CanonicalLabels = []string{
	"Your name:",
	"Your email:",
	"Alternate email (optional; if the quote should be sent elsewhere):",
	"Organization name:",
	"Organization sector (Academic or Industry):",
	"How many people need Premium access?:",
	"Length of license (in years):",
	"Name of institution, enterprise, lab, or team (optional; leave blank to use your organization name):",
	"Names and emails of intended users (optional; leave blank to use your own email or if it is a license just for yourself):",
	"Admin name (optional; leave blank to use your name):",
	"Admin email (optional; leave blank to use your email):",
	"Billing name (optional):",
	"Billing email (optional):",
	"Billing address (optional):",
	"Shipping address (optional):",
	"VAT or Tax ID number (optional):",
}

var (
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	nonAlnum      = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
)

// minReverseMatch keeps tiny keys like "to" or "id" from matching inside long labels.
const minReverseMatch = 4

// NormalizeKey reduces a label to lowercase words: parenthetical asides,
// punctuation and a trailing question mark are dropped, whitespace collapsed.
func NormalizeKey(key string) string {
	key = parenthetical.ReplaceAllString(key, " ")
	key = strings.TrimRight(strings.TrimSpace(key), "?")
	key = nonAlnum.ReplaceAllString(key, "")
	return strings.Join(strings.Fields(strings.ToLower(key)), " ")
}

// containsPhrase reports whether needle occurs in hay starting at a word boundary.
func containsPhrase(hay, needle string) bool {
	return strings.Contains(" "+hay, " "+needle)
}

// ResolveLabel maps a normalized key to a field. Exact matches win; otherwise
// the longest table variant contained in the key, then the first variant
// that contains the key.
func ResolveLabel(key string) (formdata.Key, bool) {
	if key == "" {
		return "", false
	}

	for _, v := range labelTable {
		if v.pattern == key {
			return v.key, true
		}
	}

	best := -1
	for i, v := range labelTable {
		if exactOnly[v.pattern] {
			continue
		}
		if containsPhrase(key, v.pattern) && (best < 0 || len(v.pattern) > len(labelTable[best].pattern)) {
			best = i
		}
	}
	if best >= 0 {
		return labelTable[best].key, true
	}

	if len(key) < minReverseMatch {
		return "", false
	}
	for _, v := range labelTable {
		if !exactOnly[v.pattern] && containsPhrase(v.pattern, key) {
			return v.key, true
		}
	}
	return "", false
}
