package normalize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// minLabels is how many recognizable label lines a rewrite must contain to
// be used instead of the raw text.
const minLabels = 3

// GeminiOptions configure the Gemini normalizer.
type GeminiOptions struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// generator produces a completion for a system and user prompt.
type generator interface {
	generate(ctx context.Context, system, user string) (string, error)
}

type genaiGenerator struct {
	client *genai.Client
	model  string
}

func (g *genaiGenerator) generate(ctx context.Context, system, user string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.1),
		MaxOutputTokens:   700,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

// Gemini normalizes with a Gemini model.
type Gemini struct {
	gen     generator
	timeout time.Duration
	logger  *zap.Logger
}

// NewGemini creates a Gemini normalizer.
func NewGemini(ctx context.Context, opts GeminiOptions, logger *zap.Logger) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGemini(&genaiGenerator{client: client, model: opts.Model}, opts.Timeout, logger), nil
}

func newGemini(gen generator, timeout time.Duration, logger *zap.Logger) *Gemini {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gemini{gen: gen, timeout: timeout, logger: logger.Named("normalize")}
}

// Normalize returns the model's rewrite of text, or text itself when the
// model fails, answers empty, or answers without recognizable labels.
func (g *Gemini) Normalize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.gen.generate(ctx, systemPrompt(), userPrompt(text))
	if err != nil {
		g.logger.Warn("normalizer failed, using raw text", zap.Error(err))
		return text, nil
	}
	out = strings.TrimSpace(out)
	if out == "" {
		g.logger.Warn("normalizer returned nothing, using raw text")
		return text, nil
	}
	if n := labelled(out); n < minLabels {
		g.logger.Warn("normalizer output has too few labels, using raw text", zap.Int("labels", n))
		return text, nil
	}
	g.logger.Debug("text normalized", zap.Int("in", len(text)), zap.Int("out", len(out)))
	return out, nil
}
