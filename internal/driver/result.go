package driver

import (
	"context"
	"errors"
	"fmt"
)

// Outcome classifies a driver call.
type Outcome int

const (
	Success Outcome = iota
	NotFound
	Timeout
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "ok"
	case NotFound:
		return "not_found"
	case Timeout:
		return "timeout"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ErrNotFound reports that no element matched a selector.
var ErrNotFound = errors.New("element not found")

// ErrStaleElement is returned when a handle does not belong to the session.
var ErrStaleElement = errors.New("stale element handle")

// Result is the typed outcome of a driver call.
type Result struct {
	Outcome Outcome
	Err     error
}

// OK is the successful result.
var OK = Result{Outcome: Success}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Outcome == Success }

func (r Result) Error() string {
	if r.Err == nil {
		return r.Outcome.String()
	}
	return r.Outcome.String() + ": " + r.Err.Error()
}

// Unwrap exposes the underlying cause.
func (r Result) Unwrap() error { return r.Err }

// AsError returns nil for success and the result itself otherwise.
func (r Result) AsError() error {
	if r.OK() {
		return nil
	}
	return r
}

// Classify maps an error from a browser library onto a Result.
func Classify(err error) Result {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrNotFound):
		return Result{Outcome: NotFound, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return Result{Outcome: Timeout, Err: err}
	default:
		return Result{Outcome: Failed, Err: err}
	}
}

// Missing builds a NotFound result for sel.
func Missing(sel Selector) Result {
	return Result{Outcome: NotFound, Err: fmt.Errorf("%w: %s", ErrNotFound, sel)}
}
