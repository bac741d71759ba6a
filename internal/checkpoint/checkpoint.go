// Package checkpoint provides the confirmation callback a run pauses on in
// page-by-page mode.
package checkpoint

import (
	"context"
	"errors"
	"sync"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted signals the operator interrupted a prompt.
var ErrAborted = errors.New("checkpoint: aborted")

// Decision is the operator's answer at a checkpoint.
type Decision int

const (
	Continue Decision = iota
	Abort
)

func (d Decision) String() string {
	if d == Abort {
		return "abort"
	}
	return "continue"
}

// Checkpoint asks for confirmation before the run proceeds.
type Checkpoint interface {
	RequestConfirmation(ctx context.Context, message string) (Decision, error)
}

// Console prompts on the terminal.
type Console struct {
	opts []survey.AskOpt
}

// NewConsole creates a terminal checkpoint. opts are passed to every
// prompt, e.g. survey.WithStdio.
func NewConsole(opts ...survey.AskOpt) *Console {
	return &Console{opts: opts}
}

func (c *Console) RequestConfirmation(ctx context.Context, message string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Abort, err
	}
	ok := true
	prompt := &survey.Confirm{
		Message: message,
		Default: true,
		Help:    "Answer no to stop the run and close the browser.",
	}
	if err := survey.AskOne(prompt, &ok, c.opts...); err != nil {
		return Abort, translate(err)
	}
	if !ok {
		return Abort, nil
	}
	return Continue, nil
}

func translate(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

// AutoApprove continues at every checkpoint.
type AutoApprove struct{}

func (AutoApprove) RequestConfirmation(ctx context.Context, _ string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Abort, err
	}
	return Continue, nil
}

// Scripted replays canned decisions and records the prompts it saw. Once
// the script runs out it continues.
type Scripted struct {
	mu        sync.Mutex
	decisions []Decision
	err       error
	prompts   []string
}

// NewScripted creates a checkpoint answering with decisions in order.
func NewScripted(decisions ...Decision) *Scripted {
	return &Scripted{decisions: decisions}
}

// FailWith makes every later prompt return err.
func (s *Scripted) FailWith(err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

func (s *Scripted) RequestConfirmation(_ context.Context, message string) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, message)
	if s.err != nil {
		return Abort, s.err
	}
	if len(s.decisions) == 0 {
		return Continue, nil
	}
	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d, nil
}

// Prompts returns the messages asked so far.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}
