package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/jakelee-bot/google-form-automation/internal/config"
	"github.com/jakelee-bot/google-form-automation/internal/descriptions"
	"github.com/jakelee-bot/google-form-automation/internal/service"
)

// Transports accepted by Run.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

const shutdownTimeout = 10 * time.Second

// QuoteService is the backend the tools call. *service.Service implements it.
type QuoteService interface {
	Parse(ctx context.Context, req service.ParseRequest) service.ParseResponse
	Preview(ctx context.Context, req service.ParseRequest) service.PreviewResponse
	Automate(ctx context.Context, req service.AutomateRequest) service.AutomateResponse
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	quotes    QuoteService
	mcpServer *server.MCPServer
	logger    *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, quotes QuoteService, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if quotes == nil {
		return nil, fmt.Errorf("quote service cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		quotes:    quotes,
		mcpServer: mcpServer,
		logger:    logger.Named("mcp"),
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	inputs := []mcp.ToolOption{
		mcp.WithString("message",
			mcp.Description("The request text, plain or HTML"),
		),
		mcp.WithString("path",
			mcp.Description("A .txt, .eml, .html or .pdf file inside the input directory, used instead of message"),
		),
	}

	parseTool := mcp.NewTool("quote_parse_message",
		append([]mcp.ToolOption{mcp.WithDescription(descriptions.QuoteParseMessageDescription)}, inputs...)...,
	)
	s.mcpServer.AddTool(parseTool, s.handleParseMessage)

	previewTool := mcp.NewTool("quote_preview_message",
		append([]mcp.ToolOption{mcp.WithDescription(descriptions.QuotePreviewMessageDescription)}, inputs...)...,
	)
	s.mcpServer.AddTool(previewTool, s.handlePreviewMessage)

	submitOpts := append([]mcp.ToolOption{mcp.WithDescription(descriptions.QuoteSubmitMessageDescription)}, inputs...)
	submitOpts = append(submitOpts, mcp.WithBoolean("headless",
		mcp.Description("Run the browser without a window (defaults to the server setting)"),
	))
	s.mcpServer.AddTool(mcp.NewTool("quote_submit_message", submitOpts...), s.handleSubmitMessage)

	infoTool := mcp.NewTool("quote_server_info",
		mcp.WithDescription(descriptions.QuoteServerInfoDescription),
	)
	s.mcpServer.AddTool(infoTool, s.handleServerInfo)
}

// source reads the message/path pair shared by the quote tools.
func source(request mcp.CallToolRequest) (message, path string, err error) {
	args := request.GetArguments()
	message, _ = args["message"].(string)
	path, _ = args["path"].(string)
	if strings.TrimSpace(message) == "" && strings.TrimSpace(path) == "" {
		return "", "", errors.New("either message or path is required")
	}
	return message, path, nil
}

func (s *Server) handleParseMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, path, err := source(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := s.quotes.Parse(ctx, service.ParseRequest{Message: message, Path: path})
	if !resp.Success {
		return mcp.NewToolResultError(resp.Error), nil
	}

	text := "Extracted quote request fields:\n"
	text += indentJSON(resp.Data)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handlePreviewMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, path, err := source(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := s.quotes.Preview(ctx, service.ParseRequest{Message: message, Path: path})
	if !resp.Success {
		return mcp.NewToolResultError(resp.Error), nil
	}
	return mcp.NewToolResultText(s.formatPreviewResult(resp)), nil
}

func (s *Server) handleSubmitMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, path, err := source(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := service.AutomateRequest{Message: message, Path: path}
	if headless, ok := request.GetArguments()["headless"].(bool); ok {
		req.Headless = &headless
	}

	resp := s.quotes.Automate(ctx, req)
	text := s.formatSubmitResult(resp)
	if !resp.Success {
		return mcp.NewToolResultError(text), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

// Formatting methods
func (s *Server) formatPreviewResult(resp service.PreviewResponse) string {
	text := "Quote Request Preview\n"
	if resp.Ready {
		text += "Ready to submit: yes\n"
	} else {
		text += "Ready to submit: no\n"
	}

	ids := make([]string, len(resp.Sequence))
	for i, id := range resp.Sequence {
		ids[i] = string(id)
	}
	text += fmt.Sprintf("Pages: %s\n", strings.Join(ids, " -> "))

	if len(resp.Missing) > 0 {
		text += "Missing required fields:\n"
		for _, label := range resp.Missing {
			text += fmt.Sprintf("  • %s\n", label)
		}
	}

	text += "\nExtracted fields:\n"
	text += indentJSON(resp.Data)
	return text
}

func (s *Server) formatSubmitResult(resp service.AutomateResponse) string {
	text := fmt.Sprintf("Status: %s\n", resp.Status)
	text += resp.Message + "\n"

	r := resp.Report
	if r == nil {
		return text
	}
	text += fmt.Sprintf("Run: %s (%s)\n", r.RunID, r.Duration.Round(time.Millisecond))
	for _, p := range r.Pages {
		text += fmt.Sprintf("  %s: filled %d/%d", p.Name, p.Filled, p.Expected)
		if len(p.MissedRequired) > 0 {
			text += fmt.Sprintf(", missing %d required", len(p.MissedRequired))
		}
		text += "\n"
	}
	if len(r.Missing) > 0 {
		text += fmt.Sprintf("Missing: %s\n", strings.Join(r.Missing, ", "))
	}
	if len(r.FormErrors) > 0 {
		text += "Form errors:\n"
		for _, e := range r.FormErrors {
			text += fmt.Sprintf("  • %s\n", e)
		}
	}
	if r.Screenshot != "" {
		text += fmt.Sprintf("Screenshot: %s\n", r.Screenshot)
	}
	return text
}

func (s *Server) formatServerInfo() string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📝 Form: %s\n", s.config.FormURL)
	text += fmt.Sprintf("📁 Input Directory: %s\n", s.config.InputDir)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🧹 Normalizer: %s\n\n", s.config.Normalizer)

	text += "🛠️  Available Tools:\n"
	for _, name := range descriptions.GetAllToolNames() {
		summary, _, _ := strings.Cut(descriptions.GetToolDescription(name), "\n")
		text += fmt.Sprintf("• %s: %s\n", name, summary)
	}
	return text
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}

// Run starts the MCP server on the given transport and blocks until ctx ends
// or the transport closes.
func (s *Server) Run(ctx context.Context, transport string) error {
	switch transport {
	case "", TransportStdio:
		return s.runStdioMode(ctx)
	case TransportSSE:
		return s.runSSEMode(ctx)
	}
	return fmt.Errorf("unknown transport %q (want %s or %s)", transport, TransportStdio, TransportSSE)
}

// runStdioMode serves over stdin/stdout. Logging must stay on stderr.
func (s *Server) runStdioMode(ctx context.Context) error {
	s.logger.Info("starting MCP server", zap.String("transport", TransportStdio), zap.String("input_dir", s.config.InputDir))

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runSSEMode serves over HTTP server-sent events on the configured address.
func (s *Server) runSSEMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))
	s.logger.Info("starting MCP server", zap.String("transport", TransportSSE), zap.String("addr", addr))

	errc := make(chan error, 1)
	go func() { errc <- sse.Start(addr) }()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve sse: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sse.Shutdown(shutdown); err != nil {
		return fmt.Errorf("sse shutdown: %w", err)
	}
	return nil
}
