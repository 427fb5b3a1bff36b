// Package api exposes the hazard field, route planner, forecast engine and
// alert history over HTTP. All endpoints return JSON except the debug chart
// pages, which render self-contained HTML.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cosentry/egress/internal/airflow"
	"github.com/cosentry/egress/internal/alert"
	"github.com/cosentry/egress/internal/db"
	"github.com/cosentry/egress/internal/forecast"
	"github.com/cosentry/egress/internal/hazard"
	"github.com/cosentry/egress/internal/monitoring"
	"github.com/cosentry/egress/internal/route"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	field   *hazard.Field
	planner *route.Planner
	engine  *forecast.Engine
	alerts  *alert.Evaluator
	store   *db.DB             // optional; nil disables /api/alerts
	airflow *airflow.Calculator // optional; nil disables /api/airflow
}

func NewServer(
	field *hazard.Field,
	planner *route.Planner,
	engine *forecast.Engine,
	alerts *alert.Evaluator,
	store *db.DB,
	calc *airflow.Calculator,
) *Server {
	return &Server{
		field:   field,
		planner: planner,
		engine:  engine,
		alerts:  alerts,
		store:   store,
		airflow: calc,
	}
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

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/grid", s.showGrid)
	mux.HandleFunc("/api/hazard", s.injectHazard)
	mux.HandleFunc("/api/path", s.findPath)
	mux.HandleFunc("/api/nearest-exit", s.findNearestExit)
	mux.HandleFunc("/api/alternatives", s.findAlternatives)
	mux.HandleFunc("/api/predict", s.predict)
	mux.HandleFunc("/api/severity", s.classifySeverity)
	mux.HandleFunc("/api/airflow", s.showAirflow)
	mux.HandleFunc("/api/alerts", s.listAlerts)
	mux.HandleFunc("/debug/hazard-heatmap", s.hazardHeatmap)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("api: failed to encode response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// intParam parses a required integer query parameter.
func intParam(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// routeStatus maps a planner failure to an HTTP status code. Malformed or
// out-of-bounds endpoints are the caller's fault; an intact request that has
// no traversable route is reported as unprocessable.
func routeStatus(res route.Result) int {
	if res.Success {
		return http.StatusOK
	}
	if res.Reason == route.ReasonInvalidEndpoint {
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}
