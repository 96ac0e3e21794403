// Package api serves the diagnostics HTTP surface: recognizer status,
// region luminance, recent gestures, live event streaming, and the
// calibration helper. Everything reads from in-memory rings; nothing here
// persists state.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/banshee-data/backhand/internal/framemux"
	"github.com/banshee-data/backhand/internal/monitoring"
	"github.com/banshee-data/backhand/internal/pipeline"
)

// ANSI escape codes for request log coloring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// SourceStats reports frame transport counters for the status endpoint.
// The frame mux satisfies it; sources without counters pass nil.
type SourceStats interface {
	Stats() framemux.Stats
}

// Server handles the diagnostics HTTP interface for a running recognizer.
type Server struct {
	rec    *pipeline.Recognizer
	source SourceStats
	server *http.Server
}

// ServerConfig contains configuration options for the diagnostics server.
type ServerConfig struct {
	Address    string
	Recognizer *pipeline.Recognizer
	Source     SourceStats // optional
}

// NewServer creates a diagnostics server for the given recognizer.
func NewServer(config ServerConfig) *Server {
	s := &Server{
		rec:    config.Recognizer,
		source: config.Source,
	}
	s.server = &http.Server{
		Addr:    config.Address,
		Handler: s.Router(),
	}
	return s
}

// Router builds the route table. Split out from Start so tests can drive
// handlers through httptest without binding a listener.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/api/regions", s.handleRegions).Methods("GET")
	r.HandleFunc("/api/events", s.handleEvents).Methods("GET")
	r.HandleFunc("/api/events/stream", s.handleEventStream).Methods("GET")
	r.HandleFunc("/api/config", s.handleConfig).Methods("GET")
	r.HandleFunc("/api/calibrate", s.handleCalibrate).Methods("GET")
	r.HandleFunc("/api/trace", s.handleTraceCSV).Methods("GET")
	r.HandleFunc("/api/charts/luma", s.handleLumaChart).Methods("GET")
	r.Use(LoggingMiddleware)
	return r
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	monitoring.Logf("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := s.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	return nil
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}
