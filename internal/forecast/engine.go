// Package forecast maintains a bounded window of multivariate sensor
// observations and produces a near-future CO estimate, preferring a learned
// model when one is loaded and degrading to a deterministic trend estimator
// otherwise. The engine never trains; it only consumes a model artifact.
package forecast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cosentry/egress/internal/monitoring"
)

// FeatureCount is the width of one observation row fed to the model:
// temperature, humidity, pressure, hazard.
const FeatureCount = 4

// ErrStopped is returned by Predict after the engine has been closed.
var ErrStopped = errors.New("forecast: engine stopped")

// Observation is one timestamped telemetry sample.
type Observation struct {
	At          time.Time
	Temperature float64
	Humidity    float64
	Pressure    float64
	Hazard      float64
}

// Bounds holds the min/max normalization range for one feature.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (b Bounds) normalize(v float64) float64 {
	span := b.Max - b.Min
	if span == 0 {
		return 0
	}
	return (v - b.Min) / span
}

func (b Bounds) denormalize(v float64) float64 {
	return b.Min + v*(b.Max-b.Min)
}

// Config fixes the engine's window and estimator parameters at construction.
// Zero values fall back to defaults.
type Config struct {
	Window int // lookback size W, default 10

	Temperature Bounds
	Humidity    Bounds
	Pressure    Bounds
	Hazard      Bounds

	Alpha        float64 // EWMA smoothing factor, default 0.3
	HorizonSteps int     // trend projection steps, default 5
	Dampening    float64 // trend scaling, default 0.7
}

func (c *Config) applyDefaults() {
	if c.Window <= 0 {
		c.Window = 10
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		c.Alpha = 0.3
	}
	if c.HorizonSteps <= 0 {
		c.HorizonSteps = 5
	}
	if c.Dampening <= 0 || c.Dampening > 1 {
		c.Dampening = 0.7
	}
	if c.Temperature == (Bounds{}) {
		c.Temperature = Bounds{Min: -10, Max: 50}
	}
	if c.Humidity == (Bounds{}) {
		c.Humidity = Bounds{Min: 0, Max: 100}
	}
	if c.Pressure == (Bounds{}) {
		c.Pressure = Bounds{Min: 900, Max: 1100}
	}
	if c.Hazard == (Bounds{}) {
		c.Hazard = Bounds{Min: 0, Max: 100}
	}
}

// Status tags a Prediction.
type Status string

const (
	// StatusCollecting means fewer than Window observations have arrived.
	StatusCollecting Status = "COLLECTING"
	// StatusPredicted means the learned model produced the value.
	StatusPredicted Status = "PREDICTED"
	// StatusEstimated means the deterministic fallback produced the value.
	StatusEstimated Status = "ESTIMATED"
)

// Prediction is the tagged result of Predict.
type Prediction struct {
	Status Status  `json:"status"`
	Value  float64 `json:"value,omitempty"`

	// Trained is set for PREDICTED results and distinguishes a trained model
	// from a structurally valid but untrained one, whose output is no more
	// trustworthy than the fallback.
	Trained bool `json:"trained,omitempty"`

	// Count and Window report collection progress for COLLECTING results.
	Count  int `json:"count,omitempty"`
	Window int `json:"window,omitempty"`
}

// Engine owns the observation histories and the model lifecycle. Ingest and
// Predict may be called from different goroutines; the mutex serialises
// history mutation, and inference itself runs outside the lock so a slow
// model never blocks ingestion. An inference result that lands after newer
// observations have arrived is still accepted: it is a valid point estimate
// based on slightly stale history.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	model  Model
	state  ModelState
	closed bool

	normalized [][]float64 // bounded to 2*Window, trimmed to Window
	raw        []float64   // raw hazard values, same bounding
}

// NewEngine builds an engine in the UNLOADED state.
func NewEngine(cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{cfg: cfg, state: StateUnloaded}
}

// LoadModel runs the model lifecycle against the artifact at path. It may be
// called again after a FAILED load; that is the external re-initialization
// path. Load problems are diagnostics, not errors: the engine keeps working
// on the fallback estimator in every non-ready state.
func (e *Engine) LoadModel(path string) ModelState {
	e.mu.Lock()
	e.state = StateLoading
	window := e.cfg.Window
	e.mu.Unlock()

	model, state, err := LoadModel(path, window, FeatureCount)
	if err != nil {
		monitoring.Logf("forecast: model load degraded to %s: %v", state, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = model
	e.state = state
	return state
}

// UseModel installs an already-constructed model with the given state.
// Intended for tests and for callers that obtain models elsewhere.
func (e *Engine) UseModel(m Model, state ModelState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = m
	e.state = state
}

// State returns the current model lifecycle state.
func (e *Engine) State() ModelState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Samples returns how many observations are currently held.
func (e *Engine) Samples() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.raw)
}

// Ingest appends one observation to the bounded histories. When a history
// exceeds twice the window it is trimmed to the most recent window.
func (e *Engine) Ingest(obs Observation) {
	row := []float64{
		e.cfg.Temperature.normalize(obs.Temperature),
		e.cfg.Humidity.normalize(obs.Humidity),
		e.cfg.Pressure.normalize(obs.Pressure),
		e.cfg.Hazard.normalize(obs.Hazard),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.normalized = append(e.normalized, row)
	e.raw = append(e.raw, obs.Hazard)
	if limit := 2 * e.cfg.Window; len(e.raw) > limit {
		e.normalized = trimRows(e.normalized, e.cfg.Window)
		e.raw = trimValues(e.raw, e.cfg.Window)
	}
}

func trimRows(rows [][]float64, keep int) [][]float64 {
	out := make([][]float64, keep)
	copy(out, rows[len(rows)-keep:])
	return out
}

func trimValues(vals []float64, keep int) []float64 {
	out := make([]float64, keep)
	copy(out, vals[len(vals)-keep:])
	return out
}

// Predict produces the tagged near-future hazard estimate. With fewer than
// Window observations the result is COLLECTING. When a model is ready its
// single forward pass runs outside the engine lock; an inference error falls
// back to the deterministic estimator for this call only, leaving the model
// loaded. In UNLOADED, LOADING and FAILED states the fallback is used
// directly. Predict returns ErrStopped once the engine is closed.
func (e *Engine) Predict(ctx context.Context) (Prediction, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Prediction{}, ErrStopped
	}

	w := e.cfg.Window
	if len(e.raw) < w {
		p := Prediction{Status: StatusCollecting, Count: len(e.raw), Window: w}
		e.mu.Unlock()
		return p, nil
	}

	// Copy the windows so inference and the fallback work on a stable view
	// while ingestion continues.
	input := make([][]float64, w)
	for i, row := range e.normalized[len(e.normalized)-w:] {
		input[i] = append([]float64(nil), row...)
	}
	rawWindow := append([]float64(nil), e.raw[len(e.raw)-w:]...)
	model := e.model
	state := e.state
	e.mu.Unlock()

	if state.Ready() && model != nil {
		out, err := model.Infer(ctx, input)
		if err == nil {
			e.mu.Lock()
			closed := e.closed
			e.mu.Unlock()
			if closed {
				return Prediction{}, ErrStopped
			}
			value := clamp(e.cfg.Hazard.denormalize(out), 0, 100)
			return Prediction{
				Status:  StatusPredicted,
				Value:   value,
				Trained: state == StateReadyTrained,
			}, nil
		}
		monitoring.Logf("forecast: inference failed, using fallback: %v", err)
	}

	value := fallbackEstimate(rawWindow, e.cfg.Alpha, e.cfg.HorizonSteps, e.cfg.Dampening)
	return Prediction{Status: StatusEstimated, Value: value}, nil
}

// Close stops the engine. It is idempotent: closing an already-closed engine
// is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
