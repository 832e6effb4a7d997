// Package api exposes the analysis service over HTTP: CSV submission,
// run status, per-track results, record downloads and chart rendering.
package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/impulse-data/trajectory.report/internal/config"
	"github.com/impulse-data/trajectory.report/internal/db"
	"github.com/impulse-data/trajectory.report/internal/monitoring"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server handles the HTTP API. Tuning parameters can be replaced at
// runtime through /api/params; reads take the lock so an in-flight update
// never yields a half-applied parameter set.
type Server struct {
	db         *db.DB
	units      string
	reportsDir string

	mu     sync.RWMutex
	tuning *config.TuningConfig

	// wg tracks in-flight analysis goroutines so Shutdown can drain them.
	wg sync.WaitGroup
}

// NewServer builds a Server around an open database. A nil tuning config
// means defaults for every parameter. reportsDir is where plot exports
// land; empty disables them.
func NewServer(database *db.DB, tuning *config.TuningConfig, units, reportsDir string) *Server {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	return &Server{db: database, units: units, reportsDir: reportsDir, tuning: tuning}
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/runs/{id}/tracks/{track}/records.csv", s.handleRecordsCSV)
	mux.HandleFunc("GET /api/runs/{id}/tracks/{track}/charts/{kind}", s.handleChart)
	mux.HandleFunc("POST /api/runs/{id}/tracks/{track}/plots", s.handlePlots)
	mux.HandleFunc("GET /api/params", s.handleGetParams)
	mux.HandleFunc("POST /api/params", s.handleUpdateParams)
	return mux
}

// Wait blocks until all in-flight analyses have finished.
func (s *Server) Wait() {
	s.wg.Wait()
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

// LoggingMiddleware logs method, path, query, status, and duration
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
