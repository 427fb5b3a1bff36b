package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cosentry/egress/internal/db"
	"github.com/cosentry/egress/internal/route"
)

func (s *Server) showGrid(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.field.Snapshot())
}

type hazardRequest struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Intensity float64 `json:"intensity"`
	Spread    bool    `json:"spread"`
}

// injectHazard sets or spreads a hazard level at a cell. It exists for drills
// and for replaying recorded incidents against a live grid.
func (s *Server) injectHazard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req hazardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("bad request body: %v", err))
		return
	}

	var ok bool
	if req.Spread {
		ok = s.field.Spread(req.X, req.Y, req.Intensity)
	} else {
		ok = s.field.SetHazard(req.X, req.Y, req.Intensity)
	}
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("cell (%d,%d) is out of bounds", req.X, req.Y))
		return
	}

	cell, _ := s.field.At(req.X, req.Y)
	s.writeJSON(w, http.StatusOK, cell)
}

func (s *Server) findPath(w http.ResponseWriter, r *http.Request) {
	sx, ok1 := intParam(r, "start_x")
	sy, ok2 := intParam(r, "start_y")
	gx, ok3 := intParam(r, "goal_x")
	gy, ok4 := intParam(r, "goal_y")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		s.writeJSONError(w, http.StatusBadRequest, "start_x, start_y, goal_x and goal_y are required integers")
		return
	}

	res := s.planner.FindPath(sx, sy, gx, gy)
	s.writeJSON(w, routeStatus(res), res)
}

func (s *Server) findNearestExit(w http.ResponseWriter, r *http.Request) {
	x, ok1 := intParam(r, "x")
	y, ok2 := intParam(r, "y")
	if !ok1 || !ok2 {
		s.writeJSONError(w, http.StatusBadRequest, "x and y are required integers")
		return
	}

	res := s.planner.FindNearestExit(x, y)
	s.writeJSON(w, routeStatus(res), res)
}

func (s *Server) findAlternatives(w http.ResponseWriter, r *http.Request) {
	x, ok1 := intParam(r, "x")
	y, ok2 := intParam(r, "y")
	if !ok1 || !ok2 {
		s.writeJSONError(w, http.StatusBadRequest, "x and y are required integers")
		return
	}
	k := 3
	if v, ok := intParam(r, "k"); ok {
		k = v
	}

	routes := s.planner.FindAlternativePaths(x, y, k)
	if routes == nil {
		routes = []route.Result{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"routes": routes})
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	pred, err := s.engine.Predict(r.Context())
	if err != nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, pred)
}

func (s *Server) classifySeverity(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("level")
	level, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "level is a required number")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"level":    level,
		"severity": s.alerts.SeverityOf(level),
	})
}

func (s *Server) showAirflow(w http.ResponseWriter, r *http.Request) {
	if s.airflow == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "airflow calculator not configured")
		return
	}

	est, err := s.airflow.Estimate()
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, est)
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "alert store not configured")
		return
	}

	limit := 0
	if v, ok := intParam(r, "limit"); ok {
		limit = v
	}
	records, err := s.store.ListAlerts(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []db.AlertRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}
