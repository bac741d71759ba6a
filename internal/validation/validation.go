// Package validation checks FormData against the page table before and
// during a run, and reads validation errors the live form reports.
package validation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakelee-bot/google-form-automation/internal/driver"
	"github.com/jakelee-bot/google-form-automation/internal/formdata"
	"github.com/jakelee-bot/google-form-automation/internal/pages"
)

// RequiredQuestionText marks an unanswered required question on the form.
const RequiredQuestionText = "This is a required question"

// Result is the outcome of validating one page.
type Result struct {
	OK      bool     `json:"ok"`
	Missing []string `json:"missing,omitempty"`
}

// PageReport is one row of a Summary.
type PageReport struct {
	Page    pages.PageID `json:"page"`
	Name    string       `json:"name"`
	OK      bool         `json:"ok"`
	Missing []string     `json:"missing,omitempty"`
}

// Report summarizes validation over the active pages.
type Report struct {
	Pages    []PageReport `json:"pages"`
	AllValid bool         `json:"all_valid"`
}

// MissingLabels flattens the missing labels of every page.
func (r Report) MissingLabels() []string {
	var out []string
	for _, p := range r.Pages {
		out = append(out, p.Missing...)
	}
	return out
}

// Validator checks required fields against a page table.
type Validator struct {
	table  pages.Table
	logger *zap.Logger
}

// New creates a Validator over table.
func New(table pages.Table, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{table: table, logger: logger.Named("validation")}
}

// Validate reports the labels of required fields on page id that have no
// value. Unknown pages validate trivially.
func (v *Validator) Validate(id pages.PageID, d *formdata.FormData) Result {
	p, err := v.table.Page(id)
	if err != nil {
		return Result{OK: true}
	}

	var missing []string
	for _, f := range p.Required() {
		if value(f, d) == "" {
			missing = append(missing, f.Label)
		}
	}
	return Result{OK: len(missing) == 0, Missing: missing}
}

// value resolves a required field, deriving the second user from the
// intended-users text when it was not given directly.
func value(f pages.FieldDescriptor, d *formdata.FormData) string {
	if v := f.Resolve(d); v != "" {
		return v
	}
	switch f.Field {
	case formdata.KeySecondUserName, formdata.KeySecondUserEmail:
		if d.UserNamesEmails == "" {
			return ""
		}
		name, email := formdata.DeriveSecondUser(d.UserNamesEmails, d.Email, d.Name)
		if email == "" {
			return ""
		}
		if f.Field == formdata.KeySecondUserEmail {
			return email
		}
		return name
	}
	return ""
}

// Summarize validates every active page without stopping at failures and
// logs the result.
func (v *Validator) Summarize(active []pages.PageID, d *formdata.FormData) Report {
	report := Report{AllValid: true}
	for _, id := range active {
		p, err := v.table.Page(id)
		if err != nil {
			continue
		}
		r := v.Validate(id, d)
		report.Pages = append(report.Pages, PageReport{Page: id, Name: p.Name, OK: r.OK, Missing: r.Missing})
		if r.OK {
			v.logger.Info("page has all required data", zap.String("page", p.Name))
			continue
		}
		report.AllValid = false
		v.logger.Warn("page is missing required data",
			zap.String("page", p.Name),
			zap.Strings("missing", r.Missing),
		)
	}
	if !report.AllValid {
		v.logger.Warn("some required fields are missing; the form may reject the request")
	}
	return report
}

// FormErrors returns the validation messages the form shows on the current
// page. When there are no alert texts but unanswered required questions
// remain, their count is reported instead.
func (v *Validator) FormErrors(ctx context.Context, s driver.Session) []string {
	alerts, r := s.ListVisible(ctx, driver.KindAlert)
	if !r.OK() {
		v.logger.Debug("alert scan failed", zap.Error(r))
		return nil
	}

	var errs []string
	for _, a := range alerts {
		text, r := s.Text(ctx, a)
		if !r.OK() {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			errs = append(errs, text)
		}
	}
	if len(errs) > 0 {
		return errs
	}

	body, r := s.PageText(ctx)
	if !r.OK() {
		return nil
	}
	if n := strings.Count(body, RequiredQuestionText); n > 0 {
		return []string{fmt.Sprintf("Found %d required field(s) not filled", n)}
	}
	return nil
}
