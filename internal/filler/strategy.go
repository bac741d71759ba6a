package filler

import (
	"context"

	"github.com/jakelee-bot/google-form-automation/internal/driver"
	"github.com/jakelee-bot/google-form-automation/internal/formdata"
)

// Target is one value to place on the current page.
type Target struct {
	Field    formdata.Key
	Value    string
	Required bool

	// Kind is the element class the label and kind strategies search.
	Kind driver.Kind

	// Labels are tried in order by the label strategy.
	Labels []string

	// Exclude rejects label matches containing this text.
	Exclude string

	// PositionKind and Position address the element by document order
	// among visible elements of that kind. A negative Position disables
	// the positional strategy.
	PositionKind driver.Kind
	Position     int
}

// Strategy locates the element for a target.
type Strategy interface {
	Name() string
	Locate(ctx context.Context, s driver.Session, t Target) (driver.Element, driver.Result)
}

// ByLabel finds the element by accessible label or question text.
type ByLabel struct{}

func (ByLabel) Name() string { return "label" }

func (ByLabel) Locate(ctx context.Context, s driver.Session, t Target) (driver.Element, driver.Result) {
	last := driver.Missing(driver.Selector{Kind: t.Kind})
	for _, label := range t.Labels {
		el, r := s.Locate(ctx, driver.Selector{Kind: t.Kind, Label: label, ExcludeLabel: t.Exclude})
		if r.OK() {
			return el, r
		}
		if r.Outcome != driver.NotFound {
			return nil, r
		}
		last = r
	}
	return nil, last
}

// ByPosition picks the nth visible element of a kind.
type ByPosition struct{}

func (ByPosition) Name() string { return "position" }

func (ByPosition) Locate(ctx context.Context, s driver.Session, t Target) (driver.Element, driver.Result) {
	kind := t.PositionKind
	if kind == "" {
		kind = t.Kind
	}
	if t.Position < 0 {
		return nil, driver.Missing(driver.Selector{Kind: kind})
	}
	els, r := s.ListVisible(ctx, kind)
	if !r.OK() {
		return nil, r
	}
	if t.Position >= len(els) {
		return nil, driver.Missing(driver.Selector{Kind: kind})
	}
	return els[t.Position], driver.OK
}

// ByKind takes the only visible element of the target's kind.
type ByKind struct{}

func (ByKind) Name() string { return "kind" }

func (ByKind) Locate(ctx context.Context, s driver.Session, t Target) (driver.Element, driver.Result) {
	els, r := s.ListVisible(ctx, t.Kind)
	if !r.OK() {
		return nil, r
	}
	if len(els) != 1 {
		return nil, driver.Missing(driver.Selector{Kind: t.Kind})
	}
	return els[0], driver.OK
}

// Order selects which strategy a page tries first.
type Order int

const (
	// LabelFirst suits pages whose inputs carry usable labels.
	LabelFirst Order = iota
	// PositionFirst suits pages whose layout is stable but labels are not.
	PositionFirst
)

func (o Order) String() string {
	if o == PositionFirst {
		return "position-first"
	}
	return "label-first"
}

// Chain returns the strategies for o.
func (o Order) Chain() []Strategy {
	if o == PositionFirst {
		return []Strategy{ByPosition{}, ByLabel{}, ByKind{}}
	}
	return []Strategy{ByLabel{}, ByPosition{}, ByKind{}}
}
