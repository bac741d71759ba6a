package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jakelee-bot/google-form-automation/internal/formdata"
)

var (
	digitRun = regexp.MustCompile(`\d+`)

	// Institution words decide on their own; the broader academic words
	// only count when the answer does not also say industry or commercial.
	institutionKeywords = []string{"acad", "university", "college", "edu"}
	industryKeywords    = []string{"industry", "commercial"}
	academicKeywords    = []string{"school", "research"}
)

// ClassifySector maps a free-text sector answer onto the two form options.
// Anything without an academic keyword is Industry.
func ClassifySector(value string) formdata.Sector {
	v := strings.ToLower(value)
	switch {
	case containsAny(v, institutionKeywords):
		return formdata.SectorAcademic
	case containsAny(v, industryKeywords):
		return formdata.SectorIndustry
	case containsAny(v, academicKeywords):
		return formdata.SectorAcademic
	default:
		return formdata.SectorIndustry
	}
}

// FirstNumber returns the first run of digits in value. ok is false when
// there is none or it is zero.
func FirstNumber(value string) (n int, ok bool) {
	m := digitRun.FindString(value)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

var wordNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "fifteen": 15, "twenty": 20,
	"a": 1, "an": 1, "single": 1,
}

// parseCount accepts digits or a small English number word.
func parseCount(token string) (int, bool) {
	if n, ok := FirstNumber(token); ok {
		return n, true
	}
	n, ok := wordNumbers[strings.ToLower(strings.TrimSpace(token))]
	return n, ok
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
