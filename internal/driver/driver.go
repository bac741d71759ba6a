// Package driver defines the browser capability the form workflow consumes.
// Implementations live in subpackages: rodriver drives Chrome, replay serves
// saved page snapshots.
package driver

import (
	"context"
	"fmt"
)

// Options configure a new session.
type Options struct {
	Headless bool
}

// Driver opens browser sessions.
type Driver interface {
	Open(ctx context.Context, opts Options) (Session, error)
}

// Element is an opaque handle to a located element. String describes it
// for logs.
type Element interface {
	fmt.Stringer
}

// Session is one browser tab. Every call is bounded by ctx; a deadline
// surfaces as a Timeout (or NotFound while locating) rather than an error
// the caller has to unpick.
type Session interface {
	Navigate(ctx context.Context, url string) Result
	WaitForLoad(ctx context.Context) Result

	// Locate waits until an element matching sel is visible, or ctx ends.
	Locate(ctx context.Context, sel Selector) (Element, Result)

	// ListVisible returns the visible elements of kind in document order
	// without waiting.
	ListVisible(ctx context.Context, kind Kind) ([]Element, Result)

	Fill(ctx context.Context, el Element, text string) Result
	Click(ctx context.Context, el Element) Result
	Text(ctx context.Context, el Element) (string, Result)

	// PageText returns the visible text of the whole document.
	PageText(ctx context.Context) (string, Result)

	Screenshot(ctx context.Context, path string) Result
	Close() error
}
