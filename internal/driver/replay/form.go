package replay

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/jakelee-bot/google-form-automation/internal/formdata"
	"github.com/jakelee-bot/google-form-automation/internal/pages"
)

// ConfirmationText is shown on the page after a successful submission.
const ConfirmationText = "Your response has been recorded."

// RenderOptions shape the generated snapshots.
type RenderOptions struct {
	Title string

	// Sticky pages swallow their first advance click.
	Sticky map[pages.PageID]bool

	// Unlabelled pages render inputs without aria-labels or question
	// headings, so only positional location can reach them.
	Unlabelled map[pages.PageID]bool

	// Alerts are rendered as role="alert" messages on a page. On sticky
	// pages they stay hidden until the swallowed advance click, the way the
	// live form reveals errors only after Next is pressed.
	Alerts map[pages.PageID][]string

	// SubmitText labels the terminal page's button. Defaults to "Submit".
	SubmitText string
}

// Render produces snapshots of the given pages, in order, followed by the
// confirmation page. The last page gets the submit button.
func Render(ps []pages.Page, opts RenderOptions) []string {
	if opts.Title == "" {
		opts.Title = "Premium License Quote Request"
	}
	if opts.SubmitText == "" {
		opts.SubmitText = "Submit"
	}

	out := make([]string, 0, len(ps)+1)
	for i, p := range ps {
		button := "Next"
		if i == len(ps)-1 {
			button = opts.SubmitText
		}
		out = append(out, renderPage(p, button, opts))
	}
	out = append(out, fmt.Sprintf(
		"<html><body><div role=\"heading\">%s</div><div class=\"confirmation\">%s</div></body></html>",
		html.EscapeString(opts.Title), ConfirmationText))
	return out
}

// RenderSequence renders the pages table would show for d.
func RenderSequence(table pages.Table, d *formdata.FormData, opts RenderOptions) []string {
	var ps []pages.Page
	for _, id := range table.Sequence(d) {
		if p, err := table.Page(id); err == nil {
			ps = append(ps, p)
		}
	}
	return Render(ps, opts)
}

func renderPage(p pages.Page, button string, opts RenderOptions) string {
	var b strings.Builder
	b.WriteString("<html><body")
	if opts.Sticky[p.ID] {
		fmt.Fprintf(&b, " %s=\"1\"", stickyAttr)
	}
	b.WriteString(">\n")
	fmt.Fprintf(&b, "<div role=\"heading\">%s</div>\n", html.EscapeString(opts.Title))
	fmt.Fprintf(&b, "<div role=\"heading\" class=\"page-title\">%s</div>\n<div role=\"list\">\n", html.EscapeString(p.Name))

	labelled := !opts.Unlabelled[p.ID]
	for _, f := range p.Fields {
		renderField(&b, f, labelled)
	}
	b.WriteString("</div>\n")

	hidden := ""
	if opts.Sticky[p.ID] {
		hidden = fmt.Sprintf(" hidden %s=\"1\"", revealAttr)
	}
	for _, msg := range opts.Alerts[p.ID] {
		fmt.Fprintf(&b, "<div role=\"alert\"%s>%s</div>\n", hidden, html.EscapeString(msg))
	}
	fmt.Fprintf(&b, "<div role=\"button\"><span><span>%s</span></span></div>\n</body></html>", html.EscapeString(button))
	return b.String()
}

func renderField(b *strings.Builder, f pages.FieldDescriptor, labelled bool) {
	label := html.EscapeString(f.Label)
	aria := ""
	b.WriteString("<div role=\"listitem\">")
	if labelled {
		aria = fmt.Sprintf(" aria-label=%q", label)
		heading := label
		if f.Required {
			heading += " *"
		}
		fmt.Fprintf(b, "<div role=\"heading\">%s</div>", heading)
	}

	switch f.Type {
	case pages.TypeEmail:
		fmt.Fprintf(b, "<input type=\"email\"%s>", aria)
	case pages.TypeTextarea:
		fmt.Fprintf(b, "<textarea%s></textarea>", aria)
	case pages.TypeRadio:
		b.WriteString("<div role=\"radiogroup\">")
		for _, o := range f.Options {
			o = html.EscapeString(o)
			fmt.Fprintf(b, "<div role=\"radio\" aria-label=%q data-value=%q></div><span>%s</span>", o, o, o)
		}
		b.WriteString("</div>")
	case pages.TypeDropdown:
		b.WriteString("<div role=\"listbox\"><div role=\"option\" tabindex=\"0\" data-value=\"\"><span>Choose</span></div>")
		for _, o := range dropdownOptions(f) {
			fmt.Fprintf(b, "<div role=\"option\" data-value=%q><span>%s</span></div>", o, o)
		}
		b.WriteString("</div>")
	default:
		fmt.Fprintf(b, "<input type=\"text\"%s>", aria)
	}
	b.WriteString("</div>\n")
}

func dropdownOptions(f pages.FieldDescriptor) []string {
	if len(f.Options) > 0 {
		return f.Options
	}
	limit := 5
	if f.Field == formdata.KeyNumPremiumUsers {
		limit = 15
	}
	opts := make([]string, 0, limit+1)
	for i := 1; i <= limit; i++ {
		opts = append(opts, strconv.Itoa(i))
	}
	if f.Field == formdata.KeyNumPremiumUsers {
		opts = append(opts, "16+")
	}
	return opts
}
