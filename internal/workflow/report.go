package workflow

import (
	"errors"
	"time"

	"github.com/jakelee-bot/google-form-automation/internal/formdata"
	"github.com/jakelee-bot/google-form-automation/internal/pages"
	"github.com/jakelee-bot/google-form-automation/internal/validation"
)

var (
	// ErrPreflight means the contact page lacks required data; no session
	// was opened.
	ErrPreflight = errors.New("pre-flight validation failed")
	// ErrSession means the browser session could not be opened.
	ErrSession = errors.New("could not open browser session")
	// ErrNavigation means the form could not be loaded within the allowed attempts.
	ErrNavigation = errors.New("could not load form")
	// ErrPageFailed means a non-terminal page could not be completed.
	ErrPageFailed = errors.New("page could not be completed")
	// ErrFormErrors means the form reported validation errors in unattended mode.
	ErrFormErrors = errors.New("form reported validation errors")
	// ErrNotSubmitted means no submit button could be clicked.
	ErrNotSubmitted = errors.New("form was not submitted")
	// ErrAborted means the operator stopped the run at a checkpoint.
	ErrAborted = errors.New("run aborted")
)

// Status is the final state of a run.
type Status string

const (
	StatusSubmitted        Status = "submitted"
	StatusPreflightFailed  Status = "preflight_failed"
	StatusSessionFailed    Status = "session_failed"
	StatusNavigationFailed Status = "navigation_failed"
	StatusPageFailed       Status = "page_failed"
	StatusFormErrors       Status = "form_errors"
	StatusNotSubmitted     Status = "not_submitted"
	StatusAborted          Status = "aborted"
	StatusCancelled        Status = "cancelled"
)

// PageOutcome records what happened on one page.
type PageOutcome struct {
	Page           pages.PageID   `json:"page"`
	Name           string         `json:"name"`
	Filled         int            `json:"filled"`
	Expected       int            `json:"expected"`
	MissedRequired []formdata.Key `json:"missed_required,omitempty"`
	Advanced       bool           `json:"advanced"`
	FormErrors     []string       `json:"form_errors,omitempty"`
	Screenshot     string         `json:"screenshot,omitempty"`
}

// Report is the outcome of a run.
type Report struct {
	RunID      string            `json:"run_id"`
	Status     Status            `json:"status"`
	Message    string            `json:"message"`
	Sequence   []pages.PageID    `json:"sequence"`
	Summary    validation.Report `json:"summary"`
	Missing    []string          `json:"missing,omitempty"`
	Pages      []PageOutcome     `json:"pages,omitempty"`
	FormErrors []string          `json:"form_errors,omitempty"`
	Submitted  bool              `json:"submitted"`
	Confirmed  bool              `json:"confirmed"`
	Screenshot string            `json:"error_screenshot,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
}

// Succeeded reports whether the form was submitted.
func (r *Report) Succeeded() bool {
	return r != nil && r.Status == StatusSubmitted
}
