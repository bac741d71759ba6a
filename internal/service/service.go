// Package service is the outward contract shared by the CLI, the HTTP API
// and the MCP server: parse a request, preview the run it implies, and
// automate the form. Every call returns a structured result; errors never
// escape as panics.
package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jakelee-bot/google-form-automation/internal/checkpoint"
	"github.com/jakelee-bot/google-form-automation/internal/driver"
	"github.com/jakelee-bot/google-form-automation/internal/extraction"
	"github.com/jakelee-bot/google-form-automation/internal/formdata"
	"github.com/jakelee-bot/google-form-automation/internal/intake"
	"github.com/jakelee-bot/google-form-automation/internal/normalize"
	"github.com/jakelee-bot/google-form-automation/internal/pages"
	"github.com/jakelee-bot/google-form-automation/internal/validation"
	"github.com/jakelee-bot/google-form-automation/internal/workflow"
)

// Statuses reported by Automate besides the workflow ones.
const (
	StatusBusy           workflow.Status = "busy"
	StatusInvalidRequest workflow.Status = "invalid_request"
	StatusUnavailable    workflow.Status = "unavailable"
)

var (
	ErrEmptyMessage = errors.New("message is required")
	ErrBusy         = errors.New("another automation run is in progress")
	ErrNoDriver     = errors.New("no form driver configured")
)

// ParseRequest carries a message, or a path the intake loader can read.
type ParseRequest struct {
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

type ParseResponse struct {
	Success bool               `json:"success"`
	Data    *formdata.FormData `json:"data,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// PreviewResponse shows what a run would do without opening a browser.
type PreviewResponse struct {
	Success  bool               `json:"success"`
	Data     *formdata.FormData `json:"data,omitempty"`
	Sequence []pages.PageID     `json:"sequence,omitempty"`
	Summary  *validation.Report `json:"summary,omitempty"`
	Missing  []string           `json:"missing,omitempty"`
	// Ready is true when the first page validates, i.e. a run would start.
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

type AutomateRequest struct {
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
	Headless *bool  `json:"headless,omitempty"`
}

type AutomateResponse struct {
	Success bool               `json:"success"`
	Status  workflow.Status    `json:"status"`
	Message string             `json:"message"`
	Data    *formdata.FormData `json:"extracted_data,omitempty"`
	Report  *workflow.Report   `json:"report,omitempty"`
}

// Deps are the collaborators a Service composes. Nil members get defaults,
// except Driver: without one Automate reports StatusUnavailable.
type Deps struct {
	Loader     *intake.Loader
	Normalizer normalize.Normalizer
	Extractor  *extraction.Extractor
	Table      pages.Table
	Driver     driver.Driver
	Checkpoint checkpoint.Checkpoint
	Workflow   workflow.Options
}

// Service is safe for concurrent use. Automate runs one at a time.
type Service struct {
	deps      Deps
	validator *validation.Validator
	running   *semaphore.Weighted
	logger    *zap.Logger
}

func New(deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Loader == nil {
		deps.Loader = intake.New(logger, intake.Options{})
	}
	if deps.Normalizer == nil {
		deps.Normalizer = normalize.Passthrough{}
	}
	if deps.Extractor == nil {
		deps.Extractor = extraction.New(logger)
	}
	if len(deps.Table.Pages()) == 0 {
		deps.Table = pages.Default()
	}
	if deps.Checkpoint == nil {
		deps.Checkpoint = checkpoint.AutoApprove{}
	}
	return &Service{
		deps:      deps,
		validator: validation.New(deps.Table, logger),
		running:   semaphore.NewWeighted(1),
		logger:    logger.Named("service"),
	}
}

// Parse extracts a FormData. Only unreadable sources fail; any text parses.
func (s *Service) Parse(ctx context.Context, req ParseRequest) ParseResponse {
	d, err := s.extract(ctx, req.Message, req.Path, false)
	if err != nil {
		return ParseResponse{Error: err.Error()}
	}
	return ParseResponse{Success: true, Data: d}
}

// Preview extracts and validates without touching the form.
func (s *Service) Preview(ctx context.Context, req ParseRequest) PreviewResponse {
	d, err := s.extract(ctx, req.Message, req.Path, false)
	if err != nil {
		return PreviewResponse{Error: err.Error()}
	}
	seq := s.deps.Table.Sequence(d)
	summary := s.validator.Summarize(seq, d)
	resp := PreviewResponse{
		Success:  true,
		Data:     d,
		Sequence: seq,
		Summary:  &summary,
		Missing:  summary.MissingLabels(),
	}
	if len(seq) > 0 {
		resp.Ready = s.validator.Validate(seq[0], d).OK
	}
	return resp
}

// Automate extracts the request and drives the form. A second call while a
// run is in flight fails immediately with StatusBusy.
func (s *Service) Automate(ctx context.Context, req AutomateRequest) AutomateResponse {
	if s.deps.Driver == nil {
		return AutomateResponse{Status: StatusUnavailable, Message: ErrNoDriver.Error()}
	}
	if !s.running.TryAcquire(1) {
		s.logger.Warn("automation rejected", zap.Error(ErrBusy))
		return AutomateResponse{Status: StatusBusy, Message: ErrBusy.Error()}
	}
	defer s.running.Release(1)

	d, err := s.extract(ctx, req.Message, req.Path, true)
	if err != nil {
		return AutomateResponse{Status: StatusInvalidRequest, Message: err.Error()}
	}

	opts := s.deps.Workflow
	if req.Headless != nil {
		opts.Headless = *req.Headless
	}
	engine := workflow.New(s.deps.Driver, s.deps.Table, s.validator, s.deps.Checkpoint, s.logger, opts)
	report, err := engine.Run(ctx, d)

	resp := AutomateResponse{
		Success: report.Succeeded(),
		Status:  report.Status,
		Message: report.Message,
		Data:    d,
		Report:  report,
	}
	if err != nil {
		s.logger.Warn("automation failed", zap.String("run_id", report.RunID), zap.String("status", string(report.Status)), zap.Error(err))
		if resp.Message == "" {
			resp.Message = err.Error()
		}
	} else {
		s.logger.Info("automation finished", zap.String("run_id", report.RunID), zap.Bool("confirmed", report.Confirmed))
	}
	return resp
}

// extract reads, cleans, normalizes and parses one request.
func (s *Service) extract(ctx context.Context, message, path string, required bool) (*formdata.FormData, error) {
	var text string
	switch {
	case path != "":
		t, err := s.deps.Loader.FromFile(ctx, path)
		if err != nil {
			return nil, err
		}
		text = t
	case strings.TrimSpace(message) == "" && required:
		return nil, ErrEmptyMessage
	default:
		text = s.deps.Loader.FromText(message)
	}

	if strings.TrimSpace(text) != "" {
		normalized, err := s.deps.Normalizer.Normalize(ctx, text)
		if err != nil {
			s.logger.Warn("normalizer failed, using cleaned text", zap.Error(err))
		} else {
			text = normalized
		}
	}

	d := s.deps.Extractor.Extract(text)
	return &d, nil
}
