// Package filler places FormData values onto the live form page through a
// chain of element location strategies.
package filler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakelee-bot/google-form-automation/internal/driver"
	"github.com/jakelee-bot/google-form-automation/internal/formdata"
)

const (
	// DropdownCeiling is the largest user count with its own option.
	DropdownCeiling = 16
	ceilingOption   = "16+"

	defaultProbeTimeout = 5 * time.Second
)

// SubmitTexts are tried in order when looking for the final button.
var SubmitTexts = []string{"Submit", "Request Quote", "Send", "Finish", "Done", "Request a Quote"}

// ConfirmationTexts indicate the form accepted the submission.
var ConfirmationTexts = []string{"your response has been recorded", "response has been recorded"}

// Options tune a Filler.
type Options struct {
	// ProbeTimeout bounds each element lookup.
	ProbeTimeout time.Duration
	// ActionTimeout bounds clicking the Next button. Defaults to ProbeTimeout.
	ActionTimeout time.Duration
	// SettleDelay is waited after opening a dropdown and between advances.
	SettleDelay time.Duration
}

// Filler fills fields on one session's current page.
type Filler struct {
	session driver.Session
	opts    Options
	logger  *zap.Logger
}

// New binds a Filler to a session.
func New(session driver.Session, opts Options, logger *zap.Logger) *Filler {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = defaultProbeTimeout
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = opts.ProbeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filler{session: session, opts: opts, logger: logger.Named("filler")}
}

// Miss records a field that could not be placed.
type Miss struct {
	Field    formdata.Key
	Required bool
	Outcome  driver.Outcome
}

// Tally summarizes one page fill.
type Tally struct {
	Filled   int
	Expected int
	Misses   []Miss
}

// MissedRequired lists required fields that were not filled.
func (t Tally) MissedRequired() []formdata.Key {
	var out []formdata.Key
	for _, m := range t.Misses {
		if m.Required {
			out = append(out, m.Field)
		}
	}
	return out
}

// OK reports whether every required field was filled.
func (t Tally) OK() bool {
	return len(t.MissedRequired()) == 0
}

// FillPage places every target with a value, trying the strategies of
// order for each. A miss is recorded and the next target attempted. An
// optional target without a value is skipped; a required one is a miss.
func (f *Filler) FillPage(ctx context.Context, order Order, targets []Target) Tally {
	var tally Tally
	chain := order.Chain()

	for _, t := range targets {
		if t.Value == "" && !t.Required {
			continue
		}
		tally.Expected++
		if t.Value == "" {
			tally.Misses = append(tally.Misses, Miss{Field: t.Field, Required: true, Outcome: driver.NotFound})
			f.logger.Warn("required field has no value", zap.String("field", string(t.Field)))
			continue
		}

		r := f.FillField(ctx, chain, t)
		if r.OK() {
			tally.Filled++
			continue
		}
		tally.Misses = append(tally.Misses, Miss{Field: t.Field, Required: t.Required, Outcome: r.Outcome})
		if t.Required {
			f.logger.Warn("required field not filled", zap.String("field", string(t.Field)), zap.Stringer("outcome", r.Outcome))
		} else {
			f.logger.Debug("optional field skipped", zap.String("field", string(t.Field)), zap.Stringer("outcome", r.Outcome))
		}
	}

	f.logger.Info("page fill summary",
		zap.Int("filled", tally.Filled),
		zap.Int("expected", tally.Expected),
		zap.Stringer("order", order),
	)
	return tally
}

// FillField runs chain until a strategy locates an element that accepts
// the value. Timeouts and misses move on to the next strategy.
func (f *Filler) FillField(ctx context.Context, chain []Strategy, t Target) driver.Result {
	last := driver.Missing(driver.Selector{Kind: t.Kind})
	for _, s := range chain {
		if err := ctx.Err(); err != nil {
			return driver.Classify(err)
		}

		probe, cancel := context.WithTimeout(ctx, f.opts.ProbeTimeout)
		el, r := s.Locate(probe, f.session, t)
		cancel()
		if !r.OK() {
			last = r
			continue
		}

		fill, cancel := context.WithTimeout(ctx, f.opts.ProbeTimeout)
		r = f.session.Fill(fill, el, t.Value)
		cancel()
		if r.OK() {
			f.logger.Debug("field filled",
				zap.String("field", string(t.Field)),
				zap.String("strategy", s.Name()),
				zap.Stringer("element", el),
			)
			return r
		}
		last = r
	}
	return last
}

// DropdownValue renders n as the option value the form offers.
func DropdownValue(field formdata.Key, n int) string {
	if field == formdata.KeyNumPremiumUsers && n >= DropdownCeiling {
		return ceilingOption
	}
	return strconv.Itoa(n)
}

// SelectDropdown opens the index-th visible dropdown and picks the option
// whose value is value. last selects the final matching option, for
// controls that render their option list twice.
func (f *Filler) SelectDropdown(ctx context.Context, index int, value string, last bool) driver.Result {
	probe, cancel := context.WithTimeout(ctx, f.opts.ProbeTimeout)
	defer cancel()

	triggers, r := f.session.ListVisible(probe, driver.KindDropdown)
	if !r.OK() {
		return r
	}
	if index >= len(triggers) {
		return driver.Missing(driver.Selector{Kind: driver.KindDropdown})
	}
	if r := f.session.Click(probe, triggers[index]); !r.OK() {
		return r
	}
	if err := Pause(ctx, f.opts.SettleDelay); err != nil {
		return driver.Classify(err)
	}

	option, r := f.session.Locate(probe, driver.Selector{Kind: driver.KindOption, Value: value, Last: last})
	if !r.OK() {
		return r
	}
	r = f.session.Click(probe, option)
	if r.OK() {
		f.logger.Debug("dropdown selected", zap.Int("index", index), zap.String("value", value))
	}
	return r
}

// SelectChoice clicks the radio option labelled choice.
func (f *Filler) SelectChoice(ctx context.Context, choice string) driver.Result {
	probe, cancel := context.WithTimeout(ctx, f.opts.ProbeTimeout)
	defer cancel()

	el, r := f.session.Locate(probe, driver.Selector{Kind: driver.KindRadio, Text: choice})
	if !r.OK() {
		return r
	}
	return f.session.Click(probe, el)
}

// Advance clicks the page's Next button.
func (f *Filler) Advance(ctx context.Context) driver.Result {
	return f.clickButton(ctx, "Next", f.opts.ActionTimeout)
}

// Visible counts the elements of kind currently shown.
func (f *Filler) Visible(ctx context.Context, kind driver.Kind) int {
	els, r := f.session.ListVisible(ctx, kind)
	if !r.OK() {
		return 0
	}
	return len(els)
}

// CanAdvance reports whether a Next button is currently visible.
func (f *Filler) CanAdvance(ctx context.Context) bool {
	buttons, r := f.session.ListVisible(ctx, driver.KindButton)
	if !r.OK() {
		return false
	}
	for _, b := range buttons {
		if text, r := f.session.Text(ctx, b); r.OK() && strings.EqualFold(strings.TrimSpace(text), "Next") {
			return true
		}
	}
	return false
}

// Submit clicks the first submit-like button found.
func (f *Filler) Submit(ctx context.Context) driver.Result {
	last := driver.Missing(driver.Selector{Kind: driver.KindButton})
	for _, text := range SubmitTexts {
		r := f.clickButton(ctx, text, f.opts.ProbeTimeout)
		if r.OK() {
			f.logger.Info("form submitted", zap.String("button", text))
			return r
		}
		if r.Outcome != driver.NotFound {
			return r
		}
		last = r
	}
	return last
}

// Confirmed reports whether the page shows a submission confirmation.
func (f *Filler) Confirmed(ctx context.Context) bool {
	text, r := f.session.PageText(ctx)
	if !r.OK() {
		return false
	}
	lower := strings.ToLower(text)
	for _, c := range ConfirmationTexts {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

func (f *Filler) clickButton(ctx context.Context, text string, timeout time.Duration) driver.Result {
	probe, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, r := f.session.Locate(probe, driver.Selector{Kind: driver.KindButton, Text: text})
	if !r.OK() {
		return r
	}
	return f.session.Click(probe, el)
}

// Pause waits for d or until ctx ends.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
