package extraction

import (
	"strconv"
	"strings"

	"github.com/jakelee-bot/google-form-automation/internal/formdata"
)

const dashDelimiter = " - "

// multiLineFields keep consuming continuation lines until a blank line or
// the next labelled line.
var multiLineFields = map[formdata.Key]bool{
	formdata.KeyBillingAddress:  true,
	formdata.KeyShippingAddress: true,
	formdata.KeyUserNamesEmails: true,
}

var emailFields = map[formdata.Key]bool{
	formdata.KeyEmail:           true,
	formdata.KeyAlternateEmail:  true,
	formdata.KeyAdminEmail:      true,
	formdata.KeyBillingEmail:    true,
	formdata.KeyFirstUserEmail:  true,
	formdata.KeySecondUserEmail: true,
}

var placeholders = map[string]bool{
	"n/a": true, "na": true, "none": true, "-": true, "--": true,
	"blank": true, "leave blank": true, "not applicable": true,
}

// splitLine separates a line into label and value on the first colon, or on
// " - " when the line has no colon.
func splitLine(line string) (key, value string, ok bool) {
	if i := strings.Index(line, ":"); i >= 0 {
		return line[:i], line[i+1:], true
	}
	if i := strings.Index(line, dashDelimiter); i >= 0 {
		return line[:i], line[i+len(dashDelimiter):], true
	}
	return "", "", false
}

// splitQuestion accepts "How many people need Premium access? 2" when the
// text up to the question mark is a known label.
func splitQuestion(line string) (key, value string, ok bool) {
	i := strings.Index(line, "?")
	if i <= 0 {
		return "", "", false
	}
	if _, known := ResolveLabel(NormalizeKey(line[:i])); !known {
		return "", "", false
	}
	return line[:i], line[i+1:], true
}

func isLabelled(line string) bool {
	if _, _, ok := splitLine(line); ok {
		return true
	}
	_, _, ok := splitQuestion(line)
	return ok
}

// parseStructured applies every recognised "Label: Value" line to data and
// returns the set of fields it assigned.
func (e *Extractor) parseStructured(lines []string, data *formdata.FormData) map[formdata.Key]bool {
	assigned := make(map[formdata.Key]bool)

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			continue
		}

		key, value, ok := splitLine(line)
		if !ok {
			key, value, ok = splitQuestion(line)
		}
		if !ok {
			continue
		}

		field, known := ResolveLabel(NormalizeKey(key))
		value = strings.TrimSpace(value)

		if value == "" {
			var consumed int
			value, consumed = continuation(lines, i+1, known && multiLineFields[field])
			i += consumed
		}
		if !known || isPlaceholder(value) {
			continue
		}

		if e.assign(data, field, value) {
			assigned[field] = true
			e.logger.Debug("field extracted", zapField(field), zapLabel(key))
		}
	}
	return assigned
}

// continuation collects the answer for a label whose value sits on the
// following line(s). It returns the value and how many lines it consumed.
func continuation(lines []string, start int, multi bool) (string, int) {
	j := start
	for j < len(lines) && lines[j] == "" {
		j++
	}
	if j >= len(lines) || isLabelled(lines[j]) {
		return "", 0
	}

	parts := []string{lines[j]}
	end := j
	if multi {
		for k := j + 1; k < len(lines) && lines[k] != "" && !isLabelled(lines[k]); k++ {
			parts = append(parts, lines[k])
			end = k
		}
	}
	return strings.Join(parts, "\n"), end - start + 1
}

// assign applies field-specific coercion. It reports whether data changed.
func (e *Extractor) assign(data *formdata.FormData, field formdata.Key, value string) bool {
	switch {
	case field == formdata.KeyOrganizationSector:
		data.OrganizationSector = ClassifySector(value)
	case field == formdata.KeyNumPremiumUsers || field == formdata.KeyLicenseLengthYears:
		n, ok := FirstNumber(value)
		if !ok {
			return false
		}
		data.Set(field, strconv.Itoa(n))
	case emailFields[field]:
		if addr := formdata.EmailPattern.FindString(value); addr != "" {
			value = addr
		}
		data.Set(field, value)
	default:
		data.Set(field, value)
	}
	return true
}

func isPlaceholder(value string) bool {
	return value == "" || placeholders[strings.ToLower(value)]
}
