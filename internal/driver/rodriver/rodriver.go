// Package rodriver implements the form driver on Chrome through the DevTools
// protocol.
package rodriver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/jakelee-bot/google-form-automation/internal/driver"
)

const defaultPollInterval = 250 * time.Millisecond

// Config selects the browser to drive.
type Config struct {
	// BrowserBin is the Chrome executable. Empty lets rod find or download one.
	BrowserBin string

	// DebuggerURL attaches to a running browser instead of launching one.
	DebuggerURL string

	// PollInterval is how often Locate re-queries the page.
	PollInterval time.Duration
}

// Driver launches or attaches to Chrome.
type Driver struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Driver.
func New(cfg Config, logger *zap.Logger) *Driver {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{cfg: cfg, logger: logger.Named("rod")}
}

// Open starts a browser (unless attaching) and a blank tab.
func (d *Driver) Open(ctx context.Context, opts driver.Options) (driver.Session, error) {
	var l *launcher.Launcher
	controlURL := d.cfg.DebuggerURL

	if controlURL == "" {
		l = launcher.New().Headless(opts.Headless).Context(ctx)
		if d.cfg.BrowserBin != "" {
			l = l.Bin(d.cfg.BrowserBin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		if l != nil {
			l.Cleanup()
		}
		return nil, fmt.Errorf("create page: %w", err)
	}

	d.logger.Debug("browser session opened",
		zap.Bool("headless", opts.Headless),
		zap.Bool("attached", d.cfg.DebuggerURL != ""),
	)
	return &Session{
		browser:  browser,
		page:     page,
		launcher: l,
		poll:     d.cfg.PollInterval,
		logger:   d.logger,
	}, nil
}

// Session is one Chrome tab.
type Session struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	poll     time.Duration
	logger   *zap.Logger
	closed   bool
}

type element struct {
	el   *rod.Element
	kind driver.Kind
	desc string
}

func (e *element) String() string {
	return fmt.Sprintf("%s(%s)", e.kind, e.desc)
}

// describeJS reports the attributes driver.Selector matches on.
const describeJS = `() => {
	const item = this.closest('[role="listitem"]');
	const heading = item ? item.querySelector('[role="heading"]') : null;
	const style = window.getComputedStyle(this);
	const rect = this.getBoundingClientRect();
	return {
		aria: this.getAttribute('aria-label') || '',
		question: heading ? heading.innerText.trim() : '',
		text: (this.innerText || this.value || '').trim(),
		value: this.getAttribute('data-value') || '',
		visible: style.visibility !== 'hidden' && style.display !== 'none' && rect.width > 0 && rect.height > 0,
	};
}`

// Navigate loads url in the tab.
func (s *Session) Navigate(ctx context.Context, url string) driver.Result {
	return driver.Classify(s.page.Context(ctx).Navigate(url))
}

// WaitForLoad waits for the load event and the first form heading.
func (s *Session) WaitForLoad(ctx context.Context) driver.Result {
	p := s.page.Context(ctx)
	if err := p.WaitLoad(); err != nil {
		return driver.Classify(err)
	}
	_, err := p.Element(driver.KindHeading.CSS())
	return driver.Classify(err)
}

// Locate polls until an element matching sel is visible or ctx ends.
func (s *Session) Locate(ctx context.Context, sel driver.Selector) (driver.Element, driver.Result) {
	for {
		els, err := s.page.Context(ctx).Elements(sel.Kind.CSS())
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, driver.Classify(err)
		}

		cands := make([]driver.Candidate, len(els))
		for i, el := range els {
			cands[i] = describe(ctx, el)
		}
		if i := sel.Pick(cands); i >= 0 {
			return wrap(sel.Kind, els[i], cands[i]), driver.OK
		}

		select {
		case <-ctx.Done():
			return nil, driver.Missing(sel)
		case <-time.After(s.poll):
		}
	}
}

// ListVisible returns the visible elements of kind in document order.
func (s *Session) ListVisible(ctx context.Context, kind driver.Kind) ([]driver.Element, driver.Result) {
	els, err := s.page.Context(ctx).Elements(kind.CSS())
	if err != nil {
		return nil, driver.Classify(err)
	}
	var out []driver.Element
	for _, el := range els {
		if c := describe(ctx, el); c.Visible {
			out = append(out, wrap(kind, el, c))
		}
	}
	return out, driver.OK
}

// Fill replaces the element's content with text.
func (s *Session) Fill(ctx context.Context, el driver.Element, text string) driver.Result {
	e, r := unwrap(el)
	if !r.OK() {
		return r
	}
	target := e.el.Context(ctx)
	if err := target.ScrollIntoView(); err != nil {
		return driver.Classify(err)
	}
	if err := target.SelectAllText(); err != nil {
		s.logger.Debug("select text before fill failed", zap.Stringer("element", e), zap.Error(err))
	}
	return driver.Classify(target.Input(text))
}

// Click left-clicks the element once.
func (s *Session) Click(ctx context.Context, el driver.Element) driver.Result {
	e, r := unwrap(el)
	if !r.OK() {
		return r
	}
	target := e.el.Context(ctx)
	if err := target.ScrollIntoView(); err != nil {
		return driver.Classify(err)
	}
	return driver.Classify(target.Click(proto.InputMouseButtonLeft, 1))
}

// Text returns the element's visible text.
func (s *Session) Text(ctx context.Context, el driver.Element) (string, driver.Result) {
	e, r := unwrap(el)
	if !r.OK() {
		return "", r
	}
	text, err := e.el.Context(ctx).Text()
	return text, driver.Classify(err)
}

// PageText returns document.body.innerText.
func (s *Session) PageText(ctx context.Context) (string, driver.Result) {
	res, err := s.page.Context(ctx).Eval(`() => document.body.innerText`)
	if err != nil {
		return "", driver.Classify(err)
	}
	return res.Value.String(), driver.OK
}

// Screenshot saves a full-page PNG to path.
func (s *Session) Screenshot(ctx context.Context, path string) driver.Result {
	data, err := s.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return driver.Classify(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return driver.Classify(err)
	}
	return driver.Classify(os.WriteFile(path, data, 0o600))
}

// Close shuts the tab and the browser. It is idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close page: %w", err))
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
	return errors.Join(errs...)
}

func describe(ctx context.Context, el *rod.Element) driver.Candidate {
	res, err := el.Context(ctx).Eval(describeJS)
	if err != nil {
		return driver.Candidate{}
	}
	obj := res.Value.Map()
	return driver.Candidate{
		AriaLabel: obj["aria"].String(),
		Question:  obj["question"].String(),
		Text:      obj["text"].String(),
		DataValue: obj["value"].String(),
		Visible:   obj["visible"].Bool(),
	}
}

func wrap(kind driver.Kind, el *rod.Element, c driver.Candidate) *element {
	desc := c.AriaLabel
	if desc == "" {
		desc = c.Question
	}
	if desc == "" {
		desc = c.Text
	}
	if len(desc) > 60 {
		desc = desc[:60]
	}
	return &element{el: el, kind: kind, desc: desc}
}

func unwrap(el driver.Element) (*element, driver.Result) {
	e, ok := el.(*element)
	if !ok || e == nil {
		return nil, driver.Result{Outcome: driver.Failed, Err: driver.ErrStaleElement}
	}
	return e, driver.OK
}
