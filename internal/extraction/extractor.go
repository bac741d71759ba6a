// Package extraction recovers a FormData record from a loosely formatted
// license request message.
package extraction

import (
	"strings"

	"go.uber.org/zap"

	"github.com/jakelee-bot/google-form-automation/internal/formdata"
)

// structuredMarkers are the labels whose presence means the message follows
// the request template; without any of them the free-text pass runs.
var structuredMarkers = []string{"your name:", "your email:", "organization name:"}

// Extractor parses raw message text. It is stateless and safe for concurrent use.
type Extractor struct {
	logger *zap.Logger
}

// New creates an Extractor. A nil logger disables logging.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger.Named("extraction")}
}

// Extract parses raw into a FormData. It never fails: fields the text does
// not mention keep their defaults.
func (e *Extractor) Extract(raw string) formdata.FormData {
	data := formdata.New()
	lines := splitLines(raw)

	assigned := e.parseStructured(lines, &data)

	mode := "structured"
	if !hasStructuredMarkers(raw) {
		mode = "unstructured"
		e.parseUnstructured(raw, &data, assigned)
	}

	PostProcess(&data)

	e.logger.Info("extraction complete",
		zap.String("mode", mode),
		zap.Int("labelled_fields", len(assigned)),
		zap.Int("users", data.NumPremiumUsers),
		zap.String("sector", string(data.OrganizationSector)),
	)
	return data
}

func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

func hasStructuredMarkers(raw string) bool {
	lower := strings.ToLower(raw)
	for _, m := range structuredMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func zapField(k formdata.Key) zap.Field { return zap.String("field", string(k)) }

func zapLabel(label string) zap.Field { return zap.String("label", strings.TrimSpace(label)) }
