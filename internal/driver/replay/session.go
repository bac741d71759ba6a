package replay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jakelee-bot/google-form-automation/internal/driver"
)

// stickyAttr marks a snapshot whose first advance click is swallowed, like
// the live form's license page sometimes does.
const stickyAttr = "data-replay-sticky"

// revealAttr marks hidden elements shown once a sticky page swallows its
// advance click.
const revealAttr = "data-replay-reveal"

var errClosed = errors.New("session closed")

// Session is a replay browser tab.
type Session struct {
	driver *Driver

	mu      sync.Mutex
	docs    []*goquery.Document
	current int
	closed  bool
	sticky  map[int]bool
	actions []Action
}

type element struct {
	page int
	kind driver.Kind
	sel  *goquery.Selection
	desc string
}

func (e *element) String() string {
	return fmt.Sprintf("%s(%s)@page%d", e.kind, e.desc, e.page+1)
}

func (s *Session) guard(ctx context.Context) driver.Result {
	if err := ctx.Err(); err != nil {
		return driver.Classify(err)
	}
	if s.closed {
		return driver.Result{Outcome: driver.Failed, Err: errClosed}
	}
	if s.current < 0 {
		return driver.Result{Outcome: driver.Failed, Err: errors.New("no page loaded")}
	}
	return driver.OK
}

// Navigate loads the first snapshot.
func (s *Session) Navigate(ctx context.Context, url string) driver.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return driver.Classify(err)
	}
	if s.closed {
		return driver.Result{Outcome: driver.Failed, Err: errClosed}
	}
	if s.driver.takeNavigationFailure() {
		return driver.Result{Outcome: driver.Failed, Err: fmt.Errorf("navigate %s: connection refused", url)}
	}
	if len(s.docs) == 0 {
		return driver.Result{Outcome: driver.Failed, Err: errors.New("no snapshots")}
	}
	s.current = 0
	s.sticky = make(map[int]bool)
	s.record("navigate", url, "")
	return driver.OK
}

// WaitForLoad succeeds when the current snapshot has a heading.
func (s *Session) WaitForLoad(ctx context.Context) driver.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r := s.guard(ctx); !r.OK() {
		return r
	}
	if s.doc().Find(driver.KindHeading.CSS()).Length() == 0 {
		return driver.Result{Outcome: driver.Timeout, Err: fmt.Errorf("page %d: no heading: %w", s.current+1, context.DeadlineExceeded)}
	}
	return driver.OK
}

// Locate finds the first (or last) visible match in the current snapshot.
func (s *Session) Locate(ctx context.Context, sel driver.Selector) (driver.Element, driver.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r := s.guard(ctx); !r.OK() {
		return nil, r
	}
	nodes := s.doc().Find(sel.Kind.CSS())
	cands := make([]driver.Candidate, nodes.Length())
	nodes.Each(func(i int, n *goquery.Selection) {
		cands[i] = candidate(n)
	})
	i := sel.Pick(cands)
	if i < 0 {
		return nil, driver.Missing(sel)
	}
	return s.wrap(sel.Kind, nodes.Eq(i), cands[i]), driver.OK
}

// ListVisible returns visible elements of kind in document order.
func (s *Session) ListVisible(ctx context.Context, kind driver.Kind) ([]driver.Element, driver.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r := s.guard(ctx); !r.OK() {
		return nil, r
	}
	var out []driver.Element
	s.doc().Find(kind.CSS()).Each(func(_ int, n *goquery.Selection) {
		if c := candidate(n); c.Visible {
			out = append(out, s.wrap(kind, n, c))
		}
	})
	return out, driver.OK
}

// Fill records text against el and sets its value in the snapshot.
func (s *Session) Fill(ctx context.Context, el driver.Element, text string) driver.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, r := s.resolve(ctx, el)
	if !r.OK() {
		return r
	}
	if goquery.NodeName(e.sel) == "textarea" {
		e.sel.SetText(text)
	} else {
		e.sel.SetAttr("value", text)
	}
	s.record("fill", e.desc, text)
	return driver.OK
}

// Click records the click; advance buttons move to the next snapshot.
func (s *Session) Click(ctx context.Context, el driver.Element) driver.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, r := s.resolve(ctx, el)
	if !r.OK() {
		return r
	}

	switch e.kind {
	case driver.KindOption, driver.KindRadio:
		value, _ := e.sel.Attr("data-value")
		if value == "" {
			value = strings.TrimSpace(e.sel.Text())
		}
		s.record("select", e.desc, value)
		return driver.OK
	case driver.KindButton:
		s.record("click", e.desc, "")
		if isAdvance(e.sel.Text()) {
			s.advance()
		}
		return driver.OK
	default:
		s.record("click", e.desc, "")
		return driver.OK
	}
}

func (s *Session) advance() {
	if _, ok := s.doc().Find("body").Attr(stickyAttr); ok && !s.sticky[s.current] {
		s.sticky[s.current] = true
		s.doc().Find("[" + revealAttr + "]").RemoveAttr("hidden")
		return
	}
	if s.current < len(s.docs)-1 {
		s.current++
	}
}

// Text returns the element's trimmed text.
func (s *Session) Text(ctx context.Context, el driver.Element) (string, driver.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, r := s.resolve(ctx, el)
	if !r.OK() {
		return "", r
	}
	return strings.TrimSpace(e.sel.Text()), driver.OK
}

// PageText returns the visible body text of the current snapshot.
func (s *Session) PageText(ctx context.Context) (string, driver.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r := s.guard(ctx); !r.OK() {
		return "", r
	}
	body := s.doc().Find("body").Clone()
	body.Find("*").FilterFunction(func(_ int, n *goquery.Selection) bool {
		return hidden(n)
	}).Remove()
	return body.Text(), driver.OK
}

// Screenshot writes the current snapshot's markup to path.
func (s *Session) Screenshot(ctx context.Context, path string) driver.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r := s.guard(ctx); !r.OK() {
		return r
	}
	html, err := s.doc().Html()
	if err != nil {
		return driver.Classify(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return driver.Classify(err)
	}
	return driver.Classify(os.WriteFile(path, []byte(html), 0o600))
}

// Close releases the session. It is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.driver.released()
	return nil
}

// Actions returns the recorded interactions.
func (s *Session) Actions() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Action, len(s.actions))
	copy(out, s.actions)
	return out
}

// Filled returns the last value filled into an element whose description
// contains target, ignoring case.
func (s *Session) Filled(target string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.actions) - 1; i >= 0; i-- {
		a := s.actions[i]
		if a.Op == "fill" && strings.Contains(strings.ToLower(a.Target), strings.ToLower(target)) {
			return a.Value, true
		}
	}
	return "", false
}

// CurrentPage is the 1-based index of the snapshot on screen, 0 before navigation.
func (s *Session) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current + 1
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) doc() *goquery.Document {
	return s.docs[s.current]
}

func (s *Session) record(op, target, value string) {
	s.actions = append(s.actions, Action{Page: s.current + 1, Op: op, Target: target, Value: value})
}

func (s *Session) wrap(kind driver.Kind, n *goquery.Selection, c driver.Candidate) *element {
	desc := firstNonEmpty(c.AriaLabel, c.Question, c.DataValue, strings.TrimSpace(c.Text))
	if len(desc) > 60 {
		desc = desc[:60]
	}
	return &element{page: s.current, kind: kind, sel: n, desc: desc}
}

func (s *Session) resolve(ctx context.Context, el driver.Element) (*element, driver.Result) {
	if r := s.guard(ctx); !r.OK() {
		return nil, r
	}
	e, ok := el.(*element)
	if !ok || e.page != s.current {
		return nil, driver.Result{Outcome: driver.Failed, Err: driver.ErrStaleElement}
	}
	return e, driver.OK
}

func candidate(n *goquery.Selection) driver.Candidate {
	aria, _ := n.Attr("aria-label")
	value, _ := n.Attr("data-value")
	return driver.Candidate{
		AriaLabel: aria,
		Question:  questionText(n),
		Text:      strings.TrimSpace(n.Text()),
		DataValue: value,
		Visible:   visible(n),
	}
}

func questionText(n *goquery.Selection) string {
	item := n.Closest(`[role="listitem"]`)
	if item.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(item.Find(`[role="heading"]`).First().Text())
}

func visible(n *goquery.Selection) bool {
	shown := true
	n.Parents().AddSelection(n).EachWithBreak(func(_ int, p *goquery.Selection) bool {
		shown = !hidden(p)
		return shown
	})
	return shown
}

// hidden reports whether n itself is hidden, ignoring its ancestors.
func hidden(n *goquery.Selection) bool {
	if _, ok := n.Attr("hidden"); ok {
		return true
	}
	if v, _ := n.Attr("aria-hidden"); v == "true" {
		return true
	}
	style, _ := n.Attr("style")
	return strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none")
}

func isAdvance(text string) bool {
	t := strings.ToLower(strings.Join(strings.Fields(text), " "))
	for _, a := range advanceTexts {
		if t == a {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
