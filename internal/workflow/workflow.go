// Package workflow drives one quote request through the multi-page form:
// pre-flight validation, session scope, navigation retries, the page
// sequence, submission and operator checkpoints.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakelee-bot/google-form-automation/internal/checkpoint"
	"github.com/jakelee-bot/google-form-automation/internal/driver"
	"github.com/jakelee-bot/google-form-automation/internal/filler"
	"github.com/jakelee-bot/google-form-automation/internal/formdata"
	"github.com/jakelee-bot/google-form-automation/internal/pages"
	"github.com/jakelee-bot/google-form-automation/internal/validation"
)

// Options configure an Engine.
type Options struct {
	FormURL     string
	Headless    bool
	Interactive bool

	NavigationAttempts int
	NavigationTimeout  time.Duration
	ElementTimeout     time.Duration
	ProbeTimeout       time.Duration
	SettleDelay        time.Duration

	// ScreenshotDir enables per-page and error screenshots.
	ScreenshotDir string
}

// DefaultOptions returns the production timeouts.
func DefaultOptions() Options {
	return Options{
		NavigationAttempts: 3,
		NavigationTimeout:  60 * time.Second,
		ElementTimeout:     30 * time.Second,
		ProbeTimeout:       5 * time.Second,
		SettleDelay:        2 * time.Second,
	}
}

// Engine runs the form workflow. An Engine holds no per-run state and may
// be reused; each Run owns its own session.
type Engine struct {
	driver     driver.Driver
	table      pages.Table
	validator  *validation.Validator
	checkpoint checkpoint.Checkpoint
	opts       Options
	logger     *zap.Logger
}

// New creates an Engine. A nil checkpoint approves everything.
func New(drv driver.Driver, table pages.Table, v *validation.Validator, cp checkpoint.Checkpoint, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if v == nil {
		v = validation.New(table, logger)
	}
	if cp == nil {
		cp = checkpoint.AutoApprove{}
	}
	def := DefaultOptions()
	if opts.NavigationAttempts <= 0 {
		opts.NavigationAttempts = def.NavigationAttempts
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = def.NavigationTimeout
	}
	if opts.ElementTimeout <= 0 {
		opts.ElementTimeout = def.ElementTimeout
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = def.ProbeTimeout
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	return &Engine{
		driver:     drv,
		table:      table,
		validator:  v,
		checkpoint: cp,
		opts:       opts,
		logger:     logger.Named("workflow"),
	}
}

// run is the state of one Run call.
type run struct {
	*Engine
	report  *Report
	logger  *zap.Logger
	session driver.Session
	filler  *filler.Filler
	data    *formdata.FormData
}

// Run fills and submits the form for d. The returned report is never nil;
// the error wraps one of the package sentinels when the run did not submit.
func (e *Engine) Run(ctx context.Context, d *formdata.FormData) (*Report, error) {
	r := &run{
		Engine: e,
		data:   d,
		report: &Report{
			RunID:     uuid.NewString(),
			StartedAt: time.Now(),
			Sequence:  e.table.Sequence(d),
		},
	}
	r.logger = e.logger.With(zap.String("run_id", r.report.RunID))
	defer func() { r.report.Duration = time.Since(r.report.StartedAt) }()

	r.report.Summary = e.validator.Summarize(r.report.Sequence, d)

	if err := r.preflight(); err != nil {
		return r.report, err
	}

	sess, err := e.driver.Open(ctx, driver.Options{Headless: e.opts.Headless})
	if err != nil {
		return r.report, r.fail(StatusSessionFailed, fmt.Errorf("%w: %w", ErrSession, err))
	}
	r.session = sess
	r.filler = filler.New(sess, filler.Options{
		ProbeTimeout:  e.opts.ProbeTimeout,
		ActionTimeout: e.opts.ElementTimeout,
		SettleDelay:   e.opts.SettleDelay,
	}, r.logger)
	defer func() {
		if err := sess.Close(); err != nil {
			r.logger.Warn("closing session", zap.Error(err))
		}
	}()

	err = r.execute(ctx)
	if err != nil {
		r.errorScreenshot()
	}
	r.finalCheckpoint(ctx)
	return r.report, err
}

func (r *run) preflight() error {
	seq := r.report.Sequence
	if len(seq) == 0 {
		return r.fail(StatusPreflightFailed, fmt.Errorf("%w: no pages apply", ErrPreflight))
	}
	res := r.validator.Validate(seq[0], r.data)
	if res.OK {
		return nil
	}
	r.report.Missing = res.Missing
	r.logger.Error("cannot start the form, missing critical fields", zap.Strings("missing", res.Missing))
	return r.fail(StatusPreflightFailed, fmt.Errorf("%w: missing %s", ErrPreflight, strings.Join(res.Missing, ", ")))
}

func (r *run) execute(ctx context.Context) error {
	if err := r.navigate(ctx); err != nil {
		return err
	}

	terminal := r.table.Terminal()
	for _, id := range r.report.Sequence {
		if err := ctx.Err(); err != nil {
			return r.fail(StatusCancelled, err)
		}
		page, err := r.table.Page(id)
		if err != nil {
			return r.fail(StatusPageFailed, fmt.Errorf("%w: %w", ErrPageFailed, err))
		}
		if !page.Applies(r.data) {
			continue
		}

		if id == terminal {
			return r.finish(ctx, page)
		}
		if err := r.step(ctx, page); err != nil {
			return err
		}
	}
	// A custom table whose terminal page does not apply never submits.
	return r.fail(StatusNotSubmitted, fmt.Errorf("%w: terminal page %s not reached", ErrNotSubmitted, terminal))
}

// navigate loads the form, retrying without backoff.
func (r *run) navigate(ctx context.Context) error {
	var last driver.Result
	for attempt := 1; attempt <= r.opts.NavigationAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return r.fail(StatusCancelled, err)
		}
		r.logger.Info("navigating to form",
			zap.Int("attempt", attempt),
			zap.Int("attempts", r.opts.NavigationAttempts),
			zap.String("url", r.opts.FormURL),
		)

		nav, cancel := context.WithTimeout(ctx, r.opts.NavigationTimeout)
		last = r.session.Navigate(nav, r.opts.FormURL)
		if last.OK() {
			last = r.session.WaitForLoad(nav)
		}
		cancel()

		if last.OK() {
			r.logger.Info("form loaded")
			return nil
		}
		r.logger.Warn("form did not load", zap.Int("attempt", attempt), zap.Error(last))
	}
	return r.fail(StatusNavigationFailed, fmt.Errorf("%w after %d attempts: %w", ErrNavigation, r.opts.NavigationAttempts, last))
}

// step completes one non-terminal page.
func (r *run) step(ctx context.Context, page pages.Page) error {
	outcome := r.fillPage(ctx, page)
	ok := len(outcome.MissedRequired) == 0
	if ok && r.opts.Interactive {
		if err := r.pause(ctx, fmt.Sprintf("%s filled. Check it, then continue to the next page?", page.Name)); err != nil {
			r.record(outcome)
			return err
		}
	}
	if ok {
		outcome.Advanced = r.advance(ctx, page)
		ok = outcome.Advanced
	}

	if ok {
		if errs := r.validator.FormErrors(ctx, r.session); len(errs) > 0 {
			outcome.FormErrors = errs
			r.report.FormErrors = append(r.report.FormErrors, errs...)
			r.record(outcome)
			r.logger.Error("form reported validation errors", zap.String("page", page.Name), zap.Strings("errors", errs))
			if !r.opts.Interactive {
				return r.fail(StatusFormErrors, fmt.Errorf("%w on %s: %s", ErrFormErrors, page.Name, strings.Join(errs, "; ")))
			}
			return r.pause(ctx, fmt.Sprintf("The form shows errors on %s. Fix them in the browser and click Next, then continue?", page.Name))
		}
		r.record(outcome)
		r.logger.Info("page completed", zap.String("page", page.Name))
		return nil
	}

	r.record(outcome)
	cause := fmt.Errorf("%w: %s", ErrPageFailed, page.Name)
	if len(outcome.MissedRequired) > 0 {
		cause = fmt.Errorf("%w: %s: required fields not filled: %s", ErrPageFailed, page.Name, joinKeys(outcome.MissedRequired))
	}
	r.logger.Error("page failed", zap.String("page", page.Name), zap.Error(cause))
	if !r.opts.Interactive {
		return r.fail(StatusPageFailed, cause)
	}
	return r.pause(ctx, fmt.Sprintf("Could not complete %s. Fill it in the browser and click Next, then continue?", page.Name))
}

// finish fills the terminal page and submits. A fill miss here does not
// stop submission; a missing confirmation does not downgrade success.
func (r *run) finish(ctx context.Context, page pages.Page) error {
	outcome := r.fillPage(ctx, page)
	r.record(outcome)
	if len(outcome.MissedRequired) > 0 {
		r.logger.Warn("submitting with required fields unfilled", zap.String("page", page.Name))
	}
	if r.opts.Interactive {
		if err := r.pause(ctx, fmt.Sprintf("%s filled. Check it, then submit the form?", page.Name)); err != nil {
			return err
		}
	}

	if res := r.filler.Submit(ctx); !res.OK() {
		r.logger.Error("could not find a submit button", zap.Error(res))
		return r.fail(StatusNotSubmitted, fmt.Errorf("%w: %w", ErrNotSubmitted, res))
	}
	r.report.Submitted = true

	if err := filler.Pause(ctx, r.opts.SettleDelay); err != nil {
		r.logger.Debug("confirmation wait interrupted", zap.Error(err))
	}
	r.report.Confirmed = r.filler.Confirmed(ctx)
	if r.report.Confirmed {
		r.logger.Info("submission confirmed")
	} else {
		r.logger.Warn("no confirmation message seen after submit")
	}

	r.report.Status = StatusSubmitted
	r.report.Message = "Form submitted successfully."
	if !r.report.Confirmed {
		r.report.Message = "Form submitted; no confirmation message was seen."
	}
	return nil
}

// pause asks the checkpoint whether to go on.
func (r *run) pause(ctx context.Context, msg string) error {
	d, err := r.checkpoint.RequestConfirmation(ctx, msg)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return r.fail(StatusCancelled, err)
		}
		return r.fail(StatusAborted, fmt.Errorf("%w: %w", ErrAborted, err))
	}
	if d == checkpoint.Abort {
		return r.fail(StatusAborted, ErrAborted)
	}
	return nil
}

func (r *run) finalCheckpoint(ctx context.Context) {
	if !r.opts.Interactive || ctx.Err() != nil {
		return
	}
	if _, err := r.checkpoint.RequestConfirmation(ctx, "Review the browser, then continue to close it."); err != nil {
		r.logger.Debug("final checkpoint", zap.Error(err))
	}
}

func (r *run) record(o PageOutcome) {
	r.report.Pages = append(r.report.Pages, o)
}

func (r *run) fail(status Status, err error) error {
	r.report.Status = status
	r.report.Message = message(status, err)
	return err
}

func (r *run) screenshot(ctx context.Context, name string) string {
	if r.opts.ScreenshotDir == "" {
		return ""
	}
	path := filepath.Join(r.opts.ScreenshotDir, fmt.Sprintf("%s_%s.png", r.report.RunID[:8], name))
	shot, cancel := context.WithTimeout(ctx, r.opts.ElementTimeout)
	defer cancel()
	if res := r.session.Screenshot(shot, path); !res.OK() {
		r.logger.Warn("screenshot failed", zap.String("path", path), zap.Error(res))
		return ""
	}
	r.logger.Debug("screenshot saved", zap.String("path", path))
	return path
}

func (r *run) errorScreenshot() {
	// The run context may already be cancelled.
	r.report.Screenshot = r.screenshot(context.Background(), "error")
}

func message(status Status, err error) string {
	switch status {
	case StatusPreflightFailed:
		return "Cannot start the form: " + strings.TrimPrefix(err.Error(), ErrPreflight.Error()+": ")
	case StatusAborted:
		return "Run stopped at a checkpoint."
	case StatusCancelled:
		return "Run cancelled."
	default:
		return "Automation failed: " + err.Error()
	}
}

func joinKeys(keys []formdata.Key) string {
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = string(k)
	}
	return strings.Join(s, ", ")
}
