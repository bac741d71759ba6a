package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jakelee-bot/google-form-automation/internal/driver"
	"github.com/jakelee-bot/google-form-automation/internal/driver/replay"
	"github.com/jakelee-bot/google-form-automation/internal/extraction"
	"github.com/jakelee-bot/google-form-automation/internal/intake"
	"github.com/jakelee-bot/google-form-automation/internal/pages"
	"github.com/jakelee-bot/google-form-automation/internal/workflow"
)

const message = `Your name: Jane Lee
Your email: jane@x.edu
Organization name: X Lab
Organization sector: Academic
How many people need Premium access?: 1
Length of license (in years): 2`

func fastOptions() workflow.Options {
	return workflow.Options{
		FormURL:           "https://forms.example/quote",
		Headless:          true,
		NavigationTimeout: time.Second,
		ElementTimeout:    500 * time.Millisecond,
		ProbeTimeout:      200 * time.Millisecond,
	}
}

// recordingDriver fails every Open, remembering the options it was given.
// When gate is set, Open blocks on it first.
type recordingDriver struct {
	mu      sync.Mutex
	opened  []driver.Options
	entered chan struct{}
	gate    chan struct{}
}

func (d *recordingDriver) Open(ctx context.Context, opts driver.Options) (driver.Session, error) {
	d.mu.Lock()
	d.opened = append(d.opened, opts)
	d.mu.Unlock()
	if d.gate != nil {
		close(d.entered)
		<-d.gate
	}
	return nil, errors.New("no browser here")
}

type failingNormalizer struct{}

func (failingNormalizer) Normalize(context.Context, string) (string, error) {
	return "", errors.New("quota exceeded")
}

type rewritingNormalizer struct{ out string }

func (n rewritingNormalizer) Normalize(context.Context, string) (string, error) {
	return n.out, nil
}

func TestParse(t *testing.T) {
	svc := New(Deps{}, zaptest.NewLogger(t))

	resp := svc.Parse(context.Background(), ParseRequest{Message: message})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "Jane Lee", resp.Data.Name)
	assert.Equal(t, "jane@x.edu", resp.Data.Email)
	assert.Equal(t, 2, resp.Data.LicenseLengthYears)

	empty := svc.Parse(context.Background(), ParseRequest{})
	require.True(t, empty.Success)
	assert.Equal(t, 1, empty.Data.NumPremiumUsers)
	assert.Empty(t, empty.Data.Name)
}

func TestParseFromPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "req.html"),
		[]byte("<p>Your name: Jane Lee</p><p>Your email: jane@x.edu</p>"), 0o644))

	logger := zaptest.NewLogger(t)
	svc := New(Deps{Loader: intake.New(logger, intake.Options{InputDir: dir})}, logger)

	resp := svc.Parse(context.Background(), ParseRequest{Path: "req.html"})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "Jane Lee", resp.Data.Name)

	bad := svc.Parse(context.Background(), ParseRequest{Path: "../elsewhere.txt"})
	assert.False(t, bad.Success)
	assert.Nil(t, bad.Data)
	assert.Contains(t, bad.Error, intake.ErrOutsideDirectory.Error())
}

func TestParseNormalizer(t *testing.T) {
	logger := zaptest.NewLogger(t)

	failing := New(Deps{Normalizer: failingNormalizer{}}, logger)
	resp := failing.Parse(context.Background(), ParseRequest{Message: message})
	require.True(t, resp.Success)
	assert.Equal(t, "Jane Lee", resp.Data.Name)

	rewriting := New(Deps{Normalizer: rewritingNormalizer{out: "Your name: Bob Young\nYour email: bob@y.org"}}, logger)
	resp = rewriting.Parse(context.Background(), ParseRequest{Message: "hi, Bob here"})
	require.True(t, resp.Success)
	assert.Equal(t, "Bob Young", resp.Data.Name)
	assert.Equal(t, "bob@y.org", resp.Data.Email)
}

func TestPreview(t *testing.T) {
	svc := New(Deps{}, zaptest.NewLogger(t))

	resp := svc.Preview(context.Background(), ParseRequest{Message: message})
	require.True(t, resp.Success)
	assert.True(t, resp.Ready)
	assert.Equal(t, []pages.PageID{"page_1", "page_2", "page_3", "page_5", "page_7"}, resp.Sequence)
	require.NotNil(t, resp.Summary)
	assert.True(t, resp.Summary.AllValid)
	assert.Empty(t, resp.Missing)

	noEmail := strings.Replace(message, "Your email: jane@x.edu\n", "", 1)
	resp = svc.Preview(context.Background(), ParseRequest{Message: noEmail})
	require.True(t, resp.Success)
	assert.False(t, resp.Ready)
	assert.Contains(t, resp.Missing, "Your email")
}

func TestAutomateSubmits(t *testing.T) {
	d := extraction.New(nil).Extract(message)
	drv := replay.New(replay.RenderSequence(pages.Default(), &d, replay.RenderOptions{}))

	svc := New(Deps{Driver: drv, Workflow: fastOptions()}, zaptest.NewLogger(t))
	resp := svc.Automate(context.Background(), AutomateRequest{Message: message})

	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, workflow.StatusSubmitted, resp.Status)
	require.NotNil(t, resp.Report)
	assert.True(t, resp.Report.Confirmed)
	assert.Equal(t, "Jane Lee", resp.Data.Name)
	assert.Zero(t, drv.OpenSessions())
}

func TestAutomateRejections(t *testing.T) {
	logger := zaptest.NewLogger(t)

	resp := New(Deps{}, logger).Automate(context.Background(), AutomateRequest{Message: message})
	assert.False(t, resp.Success)
	assert.Equal(t, StatusUnavailable, resp.Status)

	drv := &recordingDriver{}
	resp = New(Deps{Driver: drv}, logger).Automate(context.Background(), AutomateRequest{Message: "  "})
	assert.False(t, resp.Success)
	assert.Equal(t, StatusInvalidRequest, resp.Status)
	assert.Equal(t, ErrEmptyMessage.Error(), resp.Message)
	assert.Empty(t, drv.opened)
}

func TestAutomateHeadlessOverride(t *testing.T) {
	drv := &recordingDriver{}
	svc := New(Deps{Driver: drv, Workflow: fastOptions()}, zaptest.NewLogger(t))

	headed := false
	resp := svc.Automate(context.Background(), AutomateRequest{Message: message, Headless: &headed})
	assert.False(t, resp.Success)
	assert.Equal(t, workflow.StatusSessionFailed, resp.Status)
	assert.Contains(t, resp.Message, "no browser here")

	svc.Automate(context.Background(), AutomateRequest{Message: message})

	require.Len(t, drv.opened, 2)
	assert.False(t, drv.opened[0].Headless)
	assert.True(t, drv.opened[1].Headless)
}

func TestAutomateIsSingleFlight(t *testing.T) {
	drv := &recordingDriver{entered: make(chan struct{}), gate: make(chan struct{})}
	svc := New(Deps{Driver: drv, Workflow: fastOptions()}, zaptest.NewLogger(t))

	done := make(chan AutomateResponse)
	go func() {
		done <- svc.Automate(context.Background(), AutomateRequest{Message: message})
	}()
	<-drv.entered

	busy := svc.Automate(context.Background(), AutomateRequest{Message: message})
	assert.False(t, busy.Success)
	assert.Equal(t, StatusBusy, busy.Status)
	assert.Equal(t, ErrBusy.Error(), busy.Message)

	close(drv.gate)
	first := <-done
	assert.Equal(t, workflow.StatusSessionFailed, first.Status)

	// The slot is free again once the first run returns.
	drv.gate, drv.entered = nil, nil
	again := svc.Automate(context.Background(), AutomateRequest{Message: message})
	assert.Equal(t, workflow.StatusSessionFailed, again.Status)
}
