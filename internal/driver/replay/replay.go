// Package replay is an offline driver that walks a sequence of saved form
// page snapshots. Clicking an advance button moves to the next snapshot;
// fills, clicks and selections are recorded for inspection.
package replay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jakelee-bot/google-form-automation/internal/driver"
)

// advanceTexts are button labels that move to the next snapshot.
var advanceTexts = []string{"next", "submit", "request quote", "request a quote", "send", "finish", "done"}

// Action is one recorded interaction.
type Action struct {
	Page   int
	Op     string // fill, click, select, navigate
	Target string
	Value  string
}

// Driver serves snapshots. It is safe for concurrent use; each session
// walks its own copy of the pages.
type Driver struct {
	mu        sync.Mutex
	pages     []string
	failNav   int
	sessions  []*Session
	openCount int
}

// Option tweaks a replay driver.
type Option func(*Driver)

// WithNavigationFailures makes the first n Navigate calls fail.
func WithNavigationFailures(n int) Option {
	return func(d *Driver) { d.failNav = n }
}

// New creates a driver over HTML page snapshots, in visiting order.
func New(pages []string, opts ...Option) *Driver {
	d := &Driver{pages: pages}
	for _, o := range opts {
		o(d)
	}
	return d
}

// FromDir loads every *.html file in dir, sorted by name.
func FromDir(dir string, opts ...Option) (*Driver, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no *.html snapshots in %s", dir)
	}
	sort.Strings(paths)

	pages := make([]string, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read snapshot %s: %w", filepath.Base(p), err)
		}
		pages = append(pages, string(b))
	}
	return New(pages, opts...), nil
}

// Open starts a session positioned before the first page.
func (d *Driver) Open(ctx context.Context, _ driver.Options) (driver.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	docs := make([]*goquery.Document, len(d.pages))
	for i, html := range d.pages {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("parse snapshot %d: %w", i, err)
		}
		docs[i] = doc
	}

	s := &Session{driver: d, docs: docs, current: -1}
	d.sessions = append(d.sessions, s)
	d.openCount++
	return s, nil
}

// Sessions returns every session opened so far.
func (d *Driver) Sessions() []*Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Session, len(d.sessions))
	copy(out, d.sessions)
	return out
}

// OpenSessions counts sessions not yet closed.
func (d *Driver) OpenSessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openCount
}

func (d *Driver) takeNavigationFailure() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failNav > 0 {
		d.failNav--
		return true
	}
	return false
}

func (d *Driver) released() {
	d.mu.Lock()
	d.openCount--
	d.mu.Unlock()
}
