package driver

import (
	"fmt"
	"strings"
)

// Kind is a class of form element.
type Kind string

const (
	KindText     Kind = "text"
	KindEmail    Kind = "email"
	KindLine     Kind = "line" // single-line text or email
	KindTextarea Kind = "textarea"
	KindDropdown Kind = "dropdown"
	KindOption   Kind = "option"
	KindRadio    Kind = "radio"
	KindButton   Kind = "button"
	KindAlert    Kind = "alert"
	KindHeading  Kind = "heading"
)

var kindCSS = map[Kind]string{
	KindText:     `input[type="text"]`,
	KindEmail:    `input[type="email"]`,
	KindLine:     `input[type="text"], input[type="email"]`,
	KindTextarea: `textarea`,
	KindDropdown: `div[tabindex="0"][role="option"]`,
	KindOption:   `div[role="option"]`,
	KindRadio:    `div[role="radio"]`,
	KindButton:   `div[role="button"], button, input[type="submit"]`,
	KindAlert:    `[role="alert"]`,
	KindHeading:  `div[role="heading"]`,
}

// CSS returns the selector that enumerates elements of kind.
func (k Kind) CSS() string {
	return kindCSS[k]
}

// Selector describes an element by semantic attributes rather than markup.
// Empty fields do not constrain the match.
type Selector struct {
	Kind Kind

	// Label matches, case-insensitively, a substring of the element's
	// aria-label or of the question block that contains it.
	Label string

	// ExcludeLabel rejects elements whose label contains this text.
	ExcludeLabel string

	// Text matches the element's trimmed visible text, aria-label or
	// data-value exactly, ignoring case.
	Text string

	// Value matches the data-value attribute.
	Value string

	// Last picks the final match instead of the first.
	Last bool
}

func (s Selector) String() string {
	var b strings.Builder
	b.WriteString(string(s.Kind))
	if s.Label != "" {
		fmt.Fprintf(&b, " label~%q", s.Label)
	}
	if s.ExcludeLabel != "" {
		fmt.Fprintf(&b, " !label~%q", s.ExcludeLabel)
	}
	if s.Text != "" {
		fmt.Fprintf(&b, " text=%q", s.Text)
	}
	if s.Value != "" {
		fmt.Fprintf(&b, " value=%q", s.Value)
	}
	if s.Last {
		b.WriteString(" last")
	}
	return b.String()
}

// Candidate is what an implementation knows about one element when
// deciding whether it matches a Selector.
type Candidate struct {
	AriaLabel string
	Question  string
	Text      string
	DataValue string
	Visible   bool
}

// Matches applies the selector's attribute constraints to c. Kind is not
// checked; implementations enumerate candidates with Kind.CSS.
func (s Selector) Matches(c Candidate) bool {
	if !c.Visible {
		return false
	}
	label := strings.ToLower(c.AriaLabel + "\n" + c.Question)
	if s.Label != "" && !strings.Contains(label, strings.ToLower(s.Label)) {
		return false
	}
	if s.ExcludeLabel != "" && strings.Contains(label, strings.ToLower(s.ExcludeLabel)) {
		return false
	}
	if s.Value != "" && c.DataValue != s.Value {
		return false
	}
	if s.Text != "" {
		want := collapse(s.Text)
		if !strings.EqualFold(collapse(c.Text), want) &&
			!strings.EqualFold(collapse(c.AriaLabel), want) &&
			!strings.EqualFold(collapse(c.DataValue), want) {
			return false
		}
	}
	return true
}

// Pick returns the index of the selected candidate among matches, or -1.
func (s Selector) Pick(cands []Candidate) int {
	found := -1
	for i, c := range cands {
		if s.Matches(c) {
			found = i
			if !s.Last {
				return found
			}
		}
	}
	return found
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
