package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jakelee-bot/google-form-automation/internal/driver/replay"
	"github.com/jakelee-bot/google-form-automation/internal/extraction"
	"github.com/jakelee-bot/google-form-automation/internal/pages"
	"github.com/jakelee-bot/google-form-automation/internal/service"
	"github.com/jakelee-bot/google-form-automation/internal/workflow"
)

const message = "Your name: Jane Lee\nYour email: jane@x.edu\nOrganization name: X Lab\nOrganization sector: Academic\nHow many people need Premium access?: 1"

// stubBackend answers Automate with a fixed response and records requests.
type stubBackend struct {
	automate service.AutomateResponse
	got      []service.AutomateRequest
}

func (b *stubBackend) Parse(context.Context, service.ParseRequest) service.ParseResponse {
	return service.ParseResponse{Success: true}
}

func (b *stubBackend) Preview(context.Context, service.ParseRequest) service.PreviewResponse {
	return service.PreviewResponse{Success: true}
}

func (b *stubBackend) Automate(_ context.Context, req service.AutomateRequest) service.AutomateResponse {
	b.got = append(b.got, req)
	return b.automate
}

func realServer(t *testing.T) *Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	d := extraction.New(nil).Extract(message)
	drv := replay.New(replay.RenderSequence(pages.Default(), &d, replay.RenderOptions{}))
	svc := service.New(service.Deps{
		Driver: drv,
		Workflow: workflow.Options{
			FormURL:           "https://forms.example/quote",
			NavigationTimeout: time.Second,
			ElementTimeout:    500 * time.Millisecond,
			ProbeTimeout:      200 * time.Millisecond,
		},
	}, logger)
	return New(svc, logger, Options{})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	rec := do(t, realServer(t).Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", jsonBody(t, rec)["status"])
}

func TestParseEndpoint(t *testing.T) {
	h := realServer(t).Handler()
	payload, err := json.Marshal(map[string]string{"message": message})
	require.NoError(t, err)

	rec := do(t, h, http.MethodPost, "/api/parse", string(payload))
	require.Equal(t, http.StatusOK, rec.Code)
	body := jsonBody(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "Jane Lee", data["name"])
	assert.Equal(t, "Academic", data["organization_sector"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBadBodies(t *testing.T) {
	h := New(&stubBackend{}, zaptest.NewLogger(t), Options{MaxBody: 64}).Handler()

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"not json", "/api/parse", "message=hi", http.StatusBadRequest},
		{"unknown field", "/api/preview", `{"msg":"hi"}`, http.StatusBadRequest},
		{"too large", "/api/automate", `{"message":"` + strings.Repeat("x", 100) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code)
			body := jsonBody(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Contains(t, body["error"], "invalid request body")
		})
	}
}

func TestPreviewEndpoint(t *testing.T) {
	h := realServer(t).Handler()
	rec := do(t, h, http.MethodPost, "/api/preview", `{"message":"Your name: Jane Lee"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := jsonBody(t, rec)
	assert.Equal(t, false, body["ready"])
	assert.Contains(t, body["missing"], "Your email")
}

func TestAutomateEndpoint(t *testing.T) {
	h := realServer(t).Handler()
	payload, err := json.Marshal(map[string]any{"message": message, "headless": true})
	require.NoError(t, err)

	rec := do(t, h, http.MethodPost, "/api/automate", string(payload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := jsonBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "submitted", body["status"])
	assert.Equal(t, "Jane Lee", body["extracted_data"].(map[string]any)["name"])
}

func TestAutomateStatusCodes(t *testing.T) {
	tests := []struct {
		status workflow.Status
		code   int
	}{
		{service.StatusInvalidRequest, http.StatusBadRequest},
		{service.StatusBusy, http.StatusConflict},
		{service.StatusUnavailable, http.StatusServiceUnavailable},
		{workflow.StatusPreflightFailed, http.StatusUnprocessableEntity},
		{workflow.StatusNavigationFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			b := &stubBackend{automate: service.AutomateResponse{Status: tt.status, Message: "nope"}}
			rec := do(t, New(b, zaptest.NewLogger(t), Options{}).Handler(), http.MethodPost, "/api/automate", `{"message":"x"}`)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "nope", jsonBody(t, rec)["message"])
		})
	}
}

func TestPreflightRequest(t *testing.T) {
	rec := do(t, realServer(t).Handler(), http.MethodOptions, "/api/automate", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestPastePage(t *testing.T) {
	b := &stubBackend{automate: service.AutomateResponse{Status: workflow.StatusPageFailed, Message: "Automation failed: <boom>"}}
	h := New(b, zaptest.NewLogger(t), Options{Headless: true}).Handler()

	rec := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<form method="POST" action="/submit">`)

	form := url.Values{"message": {"Your name: Jane"}}
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error: Automation failed: &lt;boom&gt;")
	assert.Contains(t, rec.Body.String(), "Your name: Jane</textarea>")
	require.Len(t, b.got, 1)
	assert.Equal(t, "Your name: Jane", b.got[0].Message)
	require.NotNil(t, b.got[0].Headless)
	assert.True(t, *b.got[0].Headless)

	b.automate = service.AutomateResponse{Success: true, Status: workflow.StatusSubmitted}
	req = httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Form submitted successfully!")
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := realServer(t)
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
