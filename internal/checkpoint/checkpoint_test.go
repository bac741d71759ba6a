package checkpoint

import (
	"context"
	"errors"
	"testing"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScripted(t *testing.T) {
	ctx := context.Background()
	s := NewScripted(Continue, Abort)

	for _, want := range []Decision{Continue, Abort, Continue} {
		got, err := s.RequestConfirmation(ctx, "page done")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, []string{"page done", "page done", "page done"}, s.Prompts())

	boom := errors.New("no tty")
	got, err := s.FailWith(boom).RequestConfirmation(ctx, "final")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Abort, got)
}

func TestAutoApprove(t *testing.T) {
	d, err := AutoApprove{}.RequestConfirmation(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, Continue, d)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, err = AutoApprove{}.RequestConfirmation(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Abort, d)
}

func TestConsoleCancelledBeforePrompt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, err := NewConsole().RequestConfirmation(ctx, "continue?")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Abort, d)
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(terminal.InterruptErr), ErrAborted)
	other := errors.New("eof")
	assert.Equal(t, other, translate(other))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "continue", Continue.String())
	assert.Equal(t, "abort", Abort.String())
}
