// Package pages describes the multi-page quote form: which fields each page
// carries, which pages apply to a request and in what order.
package pages

import (
	"errors"
	"fmt"

	"github.com/jakelee-bot/google-form-automation/internal/formdata"
)

// PageID names a page of the form.
type PageID string

const (
	PageContact      PageID = "page_1"
	PageOrganization PageID = "page_2"
	PageLicense      PageID = "page_3"
	PageAdmin        PageID = "page_4"
	PageSingleUser   PageID = "page_5"
	PageTwoUsers     PageID = "page_6"
	PageBilling      PageID = "page_7"
)

// FieldType is the kind of control a field is rendered as.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeEmail    FieldType = "email"
	TypeTextarea FieldType = "textarea"
	TypeDropdown FieldType = "dropdown"
	TypeRadio    FieldType = "radio"
)

// ErrUnknownPage is returned when a page identifier is not in the table.
var ErrUnknownPage = errors.New("unknown page")

// FieldDescriptor describes one input on a page.
type FieldDescriptor struct {
	Field       formdata.Key `yaml:"field"`
	Required    bool         `yaml:"required,omitempty"`
	Type        FieldType    `yaml:"type"`
	Label       string       `yaml:"label"`
	DefaultFrom formdata.Key `yaml:"default_from,omitempty"`
	Options     []string     `yaml:"options,omitempty"`
}

// Resolve returns the field's value, or the default-source value when the
// field itself is empty.
func (f FieldDescriptor) Resolve(d *formdata.FormData) string {
	if v := d.Get(f.Field); v != "" {
		return v
	}
	if f.DefaultFrom != "" {
		return d.Get(f.DefaultFrom)
	}
	return ""
}

// Page is one step of the form.
type Page struct {
	ID        PageID            `yaml:"id"`
	Name      string            `yaml:"name"`
	Fields    []FieldDescriptor `yaml:"fields"`
	Condition Condition         `yaml:"condition,omitempty"`
}

// Required lists the page's required fields in order.
func (p Page) Required() []FieldDescriptor {
	var out []FieldDescriptor
	for _, f := range p.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// Applies reports whether the page is part of the flow for d.
func (p Page) Applies(d *formdata.FormData) bool {
	return p.Condition.Eval(d)
}

// Table is an ordered, immutable set of pages.
type Table struct {
	pages []Page
	index map[PageID]int
}

// NewTable builds a table from pages. Field keys are canonicalized; duplicate
// ids, unknown fields and malformed conditions are rejected.
func NewTable(pages []Page) (Table, error) {
	t := Table{pages: make([]Page, len(pages)), index: make(map[PageID]int, len(pages))}
	for i, p := range pages {
		if p.ID == "" {
			return Table{}, fmt.Errorf("page %d: missing id", i)
		}
		if _, dup := t.index[p.ID]; dup {
			return Table{}, fmt.Errorf("page %s: duplicate id", p.ID)
		}
		if err := p.Condition.validate(); err != nil {
			return Table{}, fmt.Errorf("page %s: %w", p.ID, err)
		}
		fields := make([]FieldDescriptor, len(p.Fields))
		for j, f := range p.Fields {
			canonical, ok := formdata.Lookup(string(f.Field))
			if !ok {
				return Table{}, fmt.Errorf("page %s: unknown field %q", p.ID, f.Field)
			}
			f.Field = canonical.Key
			if f.DefaultFrom != "" {
				src, ok := formdata.Lookup(string(f.DefaultFrom))
				if !ok {
					return Table{}, fmt.Errorf("page %s: unknown default source %q", p.ID, f.DefaultFrom)
				}
				f.DefaultFrom = src.Key
			}
			fields[j] = f
		}
		p.Fields = fields
		t.pages[i] = p
		t.index[p.ID] = i
	}
	return t, nil
}

// Page returns the page with the given id.
func (t Table) Page(id PageID) (Page, error) {
	i, ok := t.index[id]
	if !ok {
		return Page{}, fmt.Errorf("%w: %s", ErrUnknownPage, id)
	}
	return t.pages[i], nil
}

// Pages returns the pages in table order.
func (t Table) Pages() []Page {
	out := make([]Page, len(t.pages))
	copy(out, t.pages)
	return out
}

// Terminal is the last page of the table, the one that submits.
func (t Table) Terminal() PageID {
	if len(t.pages) == 0 {
		return ""
	}
	return t.pages[len(t.pages)-1].ID
}

// Sequence returns the pages to visit for d. It depends only on the user
// count through each page's condition: contact, organization and license
// first, then the one matching user-detail page, then billing.
func (t Table) Sequence(d *formdata.FormData) []PageID {
	var seq []PageID
	for _, p := range t.pages {
		if p.Applies(d) {
			seq = append(seq, p.ID)
		}
	}
	return seq
}
