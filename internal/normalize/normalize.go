// Package normalize optionally rewrites a free-text request into strict
// "Label: Value" lines before extraction. Extraction tolerates raw text, so
// every normalizer here fails open and returns its input on any problem.
package normalize

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jakelee-bot/google-form-automation/internal/config"
	"github.com/jakelee-bot/google-form-automation/internal/extraction"
)

// Normalizer rewrites request text.
type Normalizer interface {
	Normalize(ctx context.Context, text string) (string, error)
}

// Passthrough returns text unchanged.
type Passthrough struct{}

func (Passthrough) Normalize(_ context.Context, text string) (string, error) {
	return text, nil
}

// FromConfig picks the normalizer cfg asks for. A Gemini normalizer that
// cannot be built degrades to Passthrough with a warning.
func FromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Normalizer {
	case config.NormalizerGemini:
		g, err := NewGemini(ctx, GeminiOptions{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}, logger)
		if err != nil {
			logger.Warn("gemini normalizer unavailable, using raw text", zap.Error(err))
			return Passthrough{}
		}
		return g
	default:
		return Passthrough{}
	}
}

// systemPrompt asks for the canonical label block and nothing else.
func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You normalize messy emails into strict 'Key: Value' lines for a downstream parser. ")
	b.WriteString("Output ONLY the lines below, in this exact order, one per line, with these exact labels and punctuation. ")
	b.WriteString("If a value is unknown, leave it blank after the colon. Do not add any extra text.\n\n")
	b.WriteString(strings.Join(extraction.CanonicalLabels, "\n"))
	return b.String()
}

func userPrompt(raw string) string {
	return "Normalize the following email. Return ONLY the 16 lines above, exactly once each, in order, " +
		"filled with values. If a field is missing, keep the label and a trailing colon with nothing after it.\n\n" + raw
}

// labelled counts lines of text whose key resolves to a known field.
func labelled(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		key, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if _, ok := extraction.ResolveLabel(extraction.NormalizeKey(key)); ok {
			n++
		}
	}
	return n
}
