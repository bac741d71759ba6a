package workflow

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/jakelee-bot/google-form-automation/internal/driver"
	"github.com/jakelee-bot/google-form-automation/internal/filler"
	"github.com/jakelee-bot/google-form-automation/internal/pages"
)

// routine tunes how a page is filled.
type routine struct {
	order filler.Order
	// readvance issues a second Next when the page is still showing after
	// the first one.
	readvance bool
}

// routines lists the pages that differ from label-first filling. Pages
// not listed, including those from a custom table, use the default.
var routines = map[pages.PageID]routine{
	pages.PageOrganization: {order: filler.PositionFirst},
	pages.PageLicense:      {order: filler.PositionFirst, readvance: true},
	pages.PageTwoUsers:     {order: filler.PositionFirst},
}

func routineFor(id pages.PageID) routine {
	if rt, ok := routines[id]; ok {
		return rt
	}
	return routine{order: filler.LabelFirst}
}

// fillPage places every field of page. It does not advance.
func (r *run) fillPage(ctx context.Context, page pages.Page) PageOutcome {
	rt := routineFor(page.ID)
	log := r.logger.With(zap.String("page", string(page.ID)))
	log.Info("filling page", zap.String("name", page.Name), zap.Stringer("order", rt.order))

	load, cancel := context.WithTimeout(ctx, r.opts.ElementTimeout)
	if res := r.session.WaitForLoad(load); !res.OK() {
		log.Warn("page did not report loaded", zap.Error(res))
	}
	cancel()
	r.logHeading(ctx, log)

	tally := r.filler.FillPage(ctx, rt.order, filler.TextTargets(page, r.data))
	outcome := PageOutcome{
		Page:           page.ID,
		Name:           page.Name,
		Filled:         tally.Filled,
		Expected:       tally.Expected,
		MissedRequired: tally.MissedRequired(),
	}

	dropdown := 0
	for _, f := range page.Fields {
		var res driver.Result
		switch f.Type {
		case pages.TypeRadio:
			v := f.Resolve(r.data)
			if v == "" {
				r.missing(&outcome, f)
				continue
			}
			outcome.Expected++
			res = r.filler.SelectChoice(ctx, v)
		case pages.TypeDropdown:
			index := dropdown
			dropdown++
			n, err := strconv.Atoi(f.Resolve(r.data))
			if err != nil {
				r.missing(&outcome, f)
				continue
			}
			outcome.Expected++
			// Later dropdowns reuse option values of earlier ones; take the last.
			res = r.filler.SelectDropdown(ctx, index, filler.DropdownValue(f.Field, n), index > 0)
			if res.OK() {
				if err := filler.Pause(ctx, r.opts.SettleDelay); err != nil {
					res = driver.Classify(err)
				}
			}
		default:
			continue
		}

		if res.OK() {
			outcome.Filled++
			log.Info("field selected", zap.String("field", string(f.Field)))
			continue
		}
		log.Warn("field not selected", zap.String("field", string(f.Field)), zap.Error(res))
		if f.Required {
			outcome.MissedRequired = append(outcome.MissedRequired, f.Field)
		}
	}

	log.Info("page filled",
		zap.Int("filled", outcome.Filled),
		zap.Int("expected", outcome.Expected),
	)
	outcome.Screenshot = r.screenshot(ctx, string(page.ID))
	return outcome
}

func (r *run) missing(o *PageOutcome, f pages.FieldDescriptor) {
	if f.Required {
		o.MissedRequired = append(o.MissedRequired, f.Field)
	}
}

// advance clicks Next. Pages marked readvance sometimes swallow the first
// click; a second one is sent only while the page's controls still show.
func (r *run) advance(ctx context.Context, page pages.Page) bool {
	res := r.filler.Advance(ctx)
	if !res.OK() {
		r.logger.Error("could not click Next", zap.String("page", page.Name), zap.Error(res))
		return false
	}
	if !routineFor(page.ID).readvance {
		return true
	}

	if err := filler.Pause(ctx, r.opts.SettleDelay); err != nil {
		return false
	}
	if r.filler.Visible(ctx, driver.KindDropdown) == 0 || !r.filler.CanAdvance(ctx) {
		return true
	}
	r.logger.Info("page still showing, clicking Next again", zap.String("page", page.Name))
	if res := r.filler.Advance(ctx); !res.OK() {
		r.logger.Warn("second Next click failed", zap.Error(res))
	}
	return true
}

func (r *run) logHeading(ctx context.Context, log *zap.Logger) {
	headings, res := r.session.ListVisible(ctx, driver.KindHeading)
	if !res.OK() || len(headings) == 0 {
		return
	}
	// The first heading is the form title; the second names the page.
	h := headings[0]
	if len(headings) > 1 {
		h = headings[1]
	}
	if text, res := r.session.Text(ctx, h); res.OK() {
		log.Debug("page heading", zap.String("heading", text))
	}
}
