// Package httpapi serves the quote bot over HTTP: JSON endpoints for parse,
// preview and automate, plus a small paste-and-submit page.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jakelee-bot/google-form-automation/internal/service"
	"github.com/jakelee-bot/google-form-automation/internal/workflow"
)

// DefaultMaxBody caps request bodies when Options leaves it unset.
const DefaultMaxBody int64 = 1 << 20

const shutdownTimeout = 10 * time.Second

// Backend is what the handlers call. *service.Service implements it.
type Backend interface {
	Parse(ctx context.Context, req service.ParseRequest) service.ParseResponse
	Preview(ctx context.Context, req service.ParseRequest) service.PreviewResponse
	Automate(ctx context.Context, req service.AutomateRequest) service.AutomateResponse
}

type Options struct {
	MaxBody int64
	// Headless is the default for form posts from the paste page.
	Headless bool
}

type Server struct {
	backend Backend
	opts    Options
	logger  *zap.Logger
	router  chi.Router
}

func New(backend Backend, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}
	s := &Server{backend: backend, opts: opts, logger: logger.Named("http")}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/", s.handleHome)
	r.Post("/submit", s.handleSubmit)

	r.Route("/api", func(api chi.Router) {
		api.Post("/parse", s.handleParse)
		api.Post("/preview", s.handlePreview)
		api.Post("/automate", s.handleAutomate)
	})
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdown); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req service.ParseRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp := s.backend.Parse(r.Context(), req)
	writeJSON(w, statusFor(resp.Success, http.StatusBadRequest), resp)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req service.ParseRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp := s.backend.Preview(r.Context(), req)
	writeJSON(w, statusFor(resp.Success, http.StatusBadRequest), resp)
}

func (s *Server) handleAutomate(w http.ResponseWriter, r *http.Request) {
	var req service.AutomateRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp := s.backend.Automate(r.Context(), req)
	writeJSON(w, automateStatus(resp), resp)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.logger.Debug("bad request body", zap.String("path", r.URL.Path), zap.Error(err))
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func statusFor(ok bool, failure int) int {
	if ok {
		return http.StatusOK
	}
	return failure
}

func automateStatus(resp service.AutomateResponse) int {
	if resp.Success {
		return http.StatusOK
	}
	switch resp.Status {
	case service.StatusInvalidRequest:
		return http.StatusBadRequest
	case service.StatusBusy:
		return http.StatusConflict
	case service.StatusUnavailable:
		return http.StatusServiceUnavailable
	case workflow.StatusPreflightFailed:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// cors allows browser clients from any origin and answers preflights.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
