package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jakelee-bot/google-form-automation/internal/formdata"
)

const countWords = `\d+|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|fifteen|twenty`

var (
	emailExpr = formdata.EmailPattern.String()

	alternateEmailCues = []*regexp.Regexp{
		regexp.MustCompile(`(?i)send\s+(?:the\s+)?(?:quote\s+)?to[:\s]+(` + emailExpr + `)`),
		regexp.MustCompile(`(?i)alternate\s+email[:\s]+(` + emailExpr + `)`),
		regexp.MustCompile(`(?i)\bcc[:\s]+(` + emailExpr + `)`),
	}

	nameCue         = regexp.MustCompile(`(?:[Mm]y name is|I am|I'm|[Tt]his is)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`)
	capitalizedWord = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
	signOff         = regexp.MustCompile(`(?i)^(?:best|regards|best regards|kind regards|thanks|thank you|sincerely|cheers)[,!.]?$`)

	corporateName = regexp.MustCompile(`\b((?:[A-Z][\w&.-]*\s+)*[A-Z][\w&.-]*\s+(?:Inc|LLC|Corp|Corporation|Company|Ltd|GmbH))\b\.?`)
	orgCue        = regexp.MustCompile(`(?i:work(?:ing)?\s+(?:at|for)|company|organi[sz]ation|from)\s+(?:is\s+|called\s+|named\s+)?([A-Z][\w&.-]*(?:\s+[A-Z][\w&.-]*)*)`)

	userCountCue = regexp.MustCompile(`(?i)\b(` + countWords + `)\s+(?:premium\s+)?(?:people|users|seats|licenses|licences|persons|members)\b`)
	yearCountCue = regexp.MustCompile(`(?i)\b(` + countWords + `|a|single)[\s-]+years?\b`)

	academicVotes = regexp.MustCompile(`(?i)\b(?:university|college|school|research|academic|professor|student|phd|faculty|lab|laboratory|institute)\b|\.edu\b`)
	industryVotes = regexp.MustCompile(`(?i)\b(?:company|inc|llc|corp|startup|business|commercial|industry|enterprise|customers?|product|ltd)\b`)
)

// notNames are capitalized words that open greetings, sign-offs and product
// phrases rather than personal names.
var notNames = map[string]bool{
	"dear": true, "hi": true, "hello": true, "hey": true, "best": true, "kind": true,
	"thanks": true, "thank": true, "regards": true, "sincerely": true, "premium": true,
	"access": true, "license": true, "licence": true, "quote": true, "request": true,
	"academic": true, "industry": true, "good": true, "morning": true, "afternoon": true,
	"team": true, "university": true, "college": true, "institute": true, "lab": true,
	"the": true, "we": true, "our": true, "please": true, "could": true, "would": true,
	"inc": true, "llc": true, "corp": true, "company": true, "sales": true, "support": true,
}

// parseUnstructured fills fields the structured pass left untouched using
// free-text heuristics.
func (e *Extractor) parseUnstructured(raw string, data *formdata.FormData, assigned map[formdata.Key]bool) {
	fill := func(k formdata.Key, v string) {
		if assigned[k] || v == "" {
			return
		}
		data.Set(k, v)
		assigned[k] = true
		e.logger.Debug("field inferred", zapField(k), zap.String("value", v))
	}

	for _, addr := range formdata.FindEmails(raw) {
		if assigned[formdata.KeyAlternateEmail] && strings.EqualFold(addr, data.AlternateEmail) {
			continue
		}
		fill(formdata.KeyEmail, addr)
		break
	}
	for _, cue := range alternateEmailCues {
		if m := cue.FindStringSubmatch(raw); m != nil {
			if !strings.EqualFold(m[1], data.Email) {
				fill(formdata.KeyAlternateEmail, m[1])
			}
			break
		}
	}

	org := guessOrganization(raw)
	fill(formdata.KeyOrganizationName, org)
	fill(formdata.KeyName, guessName(raw, org))

	if !assigned[formdata.KeyOrganizationSector] {
		academic := len(academicVotes.FindAllStringIndex(raw, -1))
		industry := len(industryVotes.FindAllStringIndex(raw, -1))
		sector := formdata.SectorIndustry
		if academic > industry {
			sector = formdata.SectorAcademic
		}
		fill(formdata.KeyOrganizationSector, string(sector))
	}

	if m := userCountCue.FindStringSubmatch(raw); m != nil {
		if n, ok := parseCount(m[1]); ok {
			fill(formdata.KeyNumPremiumUsers, strconv.Itoa(n))
		}
	}
	if m := yearCountCue.FindStringSubmatch(raw); m != nil {
		if n, ok := parseCount(m[1]); ok {
			fill(formdata.KeyLicenseLengthYears, strconv.Itoa(n))
		}
	}
}

func guessOrganization(raw string) string {
	if m := corporateName.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := orgCue.FindStringSubmatch(raw); m != nil {
		return strings.TrimRight(strings.TrimSpace(m[1]), ".")
	}
	return ""
}

func guessName(raw, org string) string {
	if m := nameCue.FindStringSubmatch(raw); m != nil && plausibleName(m[1], org) {
		return m[1]
	}

	lines := splitLines(raw)
	for i, line := range lines {
		if !signOff.MatchString(line) {
			continue
		}
		for _, next := range lines[i+1:] {
			if next == "" {
				continue
			}
			for _, m := range capitalizedPairs(next) {
				if plausibleName(m, org) {
					return m
				}
			}
			break
		}
	}

	for _, m := range capitalizedPairs(raw) {
		if plausibleName(m, org) {
			return m
		}
	}
	return ""
}

func plausibleName(candidate, org string) bool {
	lower := strings.ToLower(candidate)
	for _, w := range strings.Fields(lower) {
		if notNames[w] {
			return false
		}
	}
	return org == "" || !strings.Contains(org, candidate)
}

// capitalizedPairs lists every two adjacent capitalized words on one line,
// overlapping pairs included.
func capitalizedPairs(text string) []string {
	locs := capitalizedWord.FindAllStringIndex(text, -1)
	var out []string
	for i := 0; i+1 < len(locs); i++ {
		gap := text[locs[i][1]:locs[i+1][0]]
		if gap != "" && strings.TrimSpace(gap) == "" && !strings.Contains(gap, "\n") {
			out = append(out, text[locs[i][0]:locs[i+1][1]])
		}
	}
	return out
}
