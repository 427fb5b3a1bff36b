package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cosentry/egress/internal/alert"
	"github.com/cosentry/egress/internal/forecast"
	"github.com/cosentry/egress/internal/hazard"
	"github.com/cosentry/egress/internal/route"
	"github.com/cosentry/egress/internal/timeutil"
)

// newTestServer builds a 10x10 field with a single exit at (9,9), no walls,
// and an engine that has not yet collected a full window.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	field, err := hazard.New(hazard.Params{
		Width:  10,
		Height: 10,
		Exit:   func(x, y int) bool { return x == 9 && y == 9 },
		Clock:  clock,
	})
	if err != nil {
		t.Fatalf("hazard.New failed: %v", err)
	}
	planner := route.NewPlanner(field, 1.5)
	engine := forecast.NewEngine(forecast.Config{Window: 10})
	t.Cleanup(func() { engine.Close() })
	alerts := alert.NewEvaluator(alert.DefaultThresholds(), time.Minute, clock, nil)
	return NewServer(field, planner, engine, alerts, nil, nil)
}

func get(t *testing.T, s *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
}

func TestShowGrid(t *testing.T) {
	s := newTestServer(t)
	rec := get(t, s, "/api/grid")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var snap hazard.Snapshot
	decode(t, rec, &snap)
	if snap.Width != 10 || snap.Height != 10 || len(snap.Cells) != 100 {
		t.Errorf("snapshot %dx%d with %d cells", snap.Width, snap.Height, len(snap.Cells))
	}
}

func TestInjectHazard(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(hazardRequest{X: 4, Y: 4, Intensity: 80, Spread: true})
	req := httptest.NewRequest(http.MethodPost, "/api/hazard", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var cell hazard.Cell
	decode(t, rec, &cell)
	if cell.Hazard != 80 {
		t.Errorf("source hazard = %v, want 80", cell.Hazard)
	}

	neighbor, _ := s.field.At(5, 4)
	if neighbor.Hazard < 10 {
		t.Errorf("neighbor did not receive spread: %v", neighbor.Hazard)
	}
}

func TestInjectHazardRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/hazard")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/hazard", strings.NewReader(`{"x":`))
	rec = httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}

	body, _ := json.Marshal(hazardRequest{X: 99, Y: 99, Intensity: 10})
	req = httptest.NewRequest(http.MethodPost, "/api/hazard", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-bounds status = %d, want 400", rec.Code)
	}
}

func TestFindPath(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/path?start_x=0&start_y=0&goal_x=9&goal_y=9")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var res route.Result
	decode(t, rec, &res)
	if !res.Success || res.Length != 10 {
		t.Errorf("result %+v", res)
	}
}

func TestFindPathParamErrors(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/path?start_x=0&start_y=0&goal_x=9")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing param status = %d, want 400", rec.Code)
	}

	rec = get(t, s, "/api/path?start_x=0&start_y=0&goal_x=40&goal_y=40")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out-of-bounds status = %d, want 400", rec.Code)
	}
	var res route.Result
	decode(t, rec, &res)
	if res.Reason != route.ReasonInvalidEndpoint {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestFindNearestExit(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/nearest-exit?x=0&y=0")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var res route.Result
	decode(t, rec, &res)
	last := res.Cells[len(res.Cells)-1]
	if last.X != 9 || last.Y != 9 {
		t.Errorf("route ends at (%d,%d), want (9,9)", last.X, last.Y)
	}
}

func TestFindAlternatives(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/alternatives?x=0&y=0&k=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Routes []route.Result `json:"routes"`
	}
	decode(t, rec, &body)
	if len(body.Routes) != 1 { // single exit on the test grid
		t.Errorf("got %d routes, want 1", len(body.Routes))
	}
}

func TestPredictWhileCollecting(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/predict")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var pred forecast.Prediction
	decode(t, rec, &pred)
	if pred.Status != forecast.StatusCollecting {
		t.Errorf("status = %q, want %q", pred.Status, forecast.StatusCollecting)
	}
}

func TestClassifySeverity(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		level string
		want  string
	}{
		{"10", "SAFE"},
		{"36", "WARNING"},
		{"71", "DANGER"},
		{"151", "CRITICAL"},
	}
	for _, tc := range cases {
		rec := get(t, s, "/api/severity?level="+tc.level)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var body struct {
			Severity string `json:"severity"`
		}
		decode(t, rec, &body)
		if body.Severity != tc.want {
			t.Errorf("level %s: severity = %q, want %q", tc.level, body.Severity, tc.want)
		}
	}

	rec := get(t, s, "/api/severity?level=abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad level status = %d, want 400", rec.Code)
	}
}

func TestOptionalDependenciesUnavailable(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/airflow")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/api/airflow status = %d, want 503", rec.Code)
	}
	rec = get(t, s, "/api/alerts")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/api/alerts status = %d, want 503", rec.Code)
	}
}

func TestHazardHeatmapRendersHTML(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/debug/hazard-heatmap")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "echarts") {
		t.Error("rendered page does not reference echarts")
	}
}
