package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// ModelState tracks the learned-model lifecycle. Transitions move forward
// only (UNLOADED → LOADING → one of the terminal states); recovering from
// FAILED requires an external re-initialization, never happens internally.
type ModelState int

const (
	StateUnloaded ModelState = iota
	StateLoading
	StateReadyTrained
	StateReadyUntrained
	StateFailed
)

// String returns the wire name of the state.
func (s ModelState) String() string {
	switch s {
	case StateUnloaded:
		return "UNLOADED"
	case StateLoading:
		return "LOADING"
	case StateReadyTrained:
		return "READY_TRAINED"
	case StateReadyUntrained:
		return "READY_UNTRAINED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("ModelState(%d)", int(s))
	}
}

// Ready reports whether inference may be attempted in this state.
func (s ModelState) Ready() bool {
	return s == StateReadyTrained || s == StateReadyUntrained
}

// MarshalJSON encodes the state by name.
func (s ModelState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Model is the opaque inference capability the engine consumes: given a
// [window][features] numeric input it produces one normalized scalar. No
// format commitment exists beyond that.
type Model interface {
	Infer(ctx context.Context, window [][]float64) (float64, error)
}

// artifact is the on-disk weight file for the dense linear model.
type artifact struct {
	Window   int         `json:"window"`
	Features int         `json:"features"`
	Weights  [][]float64 `json:"weights"` // [window][features]
	Bias     float64     `json:"bias"`
}

// linearModel predicts the next normalized hazard as a weighted sum over the
// whole lookback window plus a bias. A zero-weight instance is the
// "structurally valid but untrained" model: it runs, but its output carries
// no more information than the deterministic fallback.
type linearModel struct {
	weights [][]float64
	bias    float64
}

func (m *linearModel) Infer(ctx context.Context, window [][]float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(window) != len(m.weights) {
		return 0, fmt.Errorf("forecast: model expects %d rows, got %d", len(m.weights), len(window))
	}
	out := m.bias
	for t, row := range window {
		if len(row) != len(m.weights[t]) {
			return 0, fmt.Errorf("forecast: model expects %d features, got %d", len(m.weights[t]), len(row))
		}
		for f, v := range row {
			out += m.weights[t][f] * v
		}
	}
	return out, nil
}

// newUntrainedModel constructs the zero-weight model for the given shape.
func newUntrainedModel(window, features int) (*linearModel, error) {
	if window <= 0 || features <= 0 {
		return nil, fmt.Errorf("forecast: invalid model shape %dx%d", window, features)
	}
	w := make([][]float64, window)
	for i := range w {
		w[i] = make([]float64, features)
	}
	return &linearModel{weights: w}, nil
}

// LoadModel loads a trained weight artifact from path. The returned state is
// READY_TRAINED when the artifact parses and matches the expected shape,
// READY_UNTRAINED when the trained parameters are absent or unusable but a
// structurally valid untrained model could be constructed, and FAILED when
// not even that is possible. The error describes why trained parameters were
// rejected; it accompanies READY_UNTRAINED as a diagnostic, not a failure.
func LoadModel(path string, window, features int) (Model, ModelState, error) {
	loadErr := func(err error) (Model, ModelState, error) {
		m, uerr := newUntrainedModel(window, features)
		if uerr != nil {
			return nil, StateFailed, uerr
		}
		return m, StateReadyUntrained, err
	}

	if path == "" {
		return loadErr(fmt.Errorf("forecast: no model artifact configured"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return loadErr(fmt.Errorf("forecast: read model artifact: %w", err))
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return loadErr(fmt.Errorf("forecast: parse model artifact: %w", err))
	}
	if a.Window != window || a.Features != features {
		return loadErr(fmt.Errorf("forecast: artifact shape %dx%d does not match engine %dx%d",
			a.Window, a.Features, window, features))
	}
	if len(a.Weights) != window {
		return loadErr(fmt.Errorf("forecast: artifact has %d weight rows, want %d", len(a.Weights), window))
	}
	for i, row := range a.Weights {
		if len(row) != features {
			return loadErr(fmt.Errorf("forecast: artifact weight row %d has %d entries, want %d",
				i, len(row), features))
		}
	}

	return &linearModel{weights: a.Weights, bias: a.Bias}, StateReadyTrained, nil
}
