package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubModel lets tests script inference outcomes.
type stubModel struct {
	out   float64
	err   error
	calls int
}

func (m *stubModel) Infer(ctx context.Context, window [][]float64) (float64, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.out, nil
}

func obsAt(hazard float64) Observation {
	return Observation{
		At:          time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Temperature: 21,
		Humidity:    45,
		Pressure:    1013,
		Hazard:      hazard,
	}
}

func fillWindow(e *Engine, n int) {
	for i := 0; i < n; i++ {
		e.Ingest(obsAt(10 + float64(i)))
	}
}

func TestPredictCollectsUntilWindowFull(t *testing.T) {
	e := NewEngine(Config{Window: 10})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		p, err := e.Predict(ctx)
		require.NoError(t, err)
		assert.Equal(t, StatusCollecting, p.Status, "at %d samples", i)
		assert.Equal(t, i, p.Count)
		assert.Equal(t, 10, p.Window)
		e.Ingest(obsAt(12))
	}

	p, err := e.Predict(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, StatusCollecting, p.Status)
	assert.GreaterOrEqual(t, p.Value, 0.0)
	assert.LessOrEqual(t, p.Value, 100.0)
}

func TestPredictUsesFallbackWithoutModel(t *testing.T) {
	e := NewEngine(Config{Window: 10})
	fillWindow(e, 10)

	p, err := e.Predict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusEstimated, p.Status)
	assert.Equal(t, StateUnloaded, e.State())
}

func TestPredictUsesTrainedModel(t *testing.T) {
	e := NewEngine(Config{Window: 10})
	fillWindow(e, 10)
	e.UseModel(&stubModel{out: 0.423}, StateReadyTrained)

	p, err := e.Predict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusPredicted, p.Status)
	assert.True(t, p.Trained)
	// default hazard bounds are [0,100], so 0.423 denormalizes to 42.3
	assert.InDelta(t, 42.3, p.Value, 1e-9)
}

func TestPredictLabelsUntrainedModel(t *testing.T) {
	e := NewEngine(Config{Window: 10})
	fillWindow(e, 10)
	e.UseModel(&stubModel{out: 0.2}, StateReadyUntrained)

	p, err := e.Predict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusPredicted, p.Status)
	assert.False(t, p.Trained, "untrained output must not be labeled trained")
}

func TestPredictClampsModelOutput(t *testing.T) {
	e := NewEngine(Config{Window: 10})
	fillWindow(e, 10)
	e.UseModel(&stubModel{out: 1.8}, StateReadyTrained)

	p, err := e.Predict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.Value)
}

func TestInferenceErrorFallsBackForOneCall(t *testing.T) {
	e := NewEngine(Config{Window: 10})
	fillWindow(e, 10)
	m := &stubModel{err: errors.New("backend unavailable")}
	e.UseModel(m, StateReadyTrained)

	p, err := e.Predict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusEstimated, p.Status)

	// The model stays loaded: the next call attempts inference again.
	m.err = nil
	m.out = 0.3
	p, err = e.Predict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusPredicted, p.Status)
	assert.Equal(t, 2, m.calls)
	assert.Equal(t, StateReadyTrained, e.State())
}

func TestHistoryTrimsToWindow(t *testing.T) {
	e := NewEngine(Config{Window: 10})
	fillWindow(e, 20)
	assert.Equal(t, 20, e.Samples())

	e.Ingest(obsAt(50)) // 21st sample exceeds 2W and trims to W
	assert.Equal(t, 10, e.Samples())

	p, err := e.Predict(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, StatusCollecting, p.Status, "trim must retain a full window")
}

func TestLoadModelLifecycle(t *testing.T) {
	e := NewEngine(Config{Window: 4})
	assert.Equal(t, StateUnloaded, e.State())

	// A missing artifact degrades to the untrained structure.
	state := e.LoadModel("/nonexistent/model.json")
	assert.Equal(t, StateReadyUntrained, state)
	assert.Equal(t, StateReadyUntrained, e.State())
}

func TestCloseIsIdempotent(t *testing.T) {
	e := NewEngine(Config{Window: 10})
	fillWindow(e, 10)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err := e.Predict(context.Background())
	assert.ErrorIs(t, err, ErrStopped)

	e.Ingest(obsAt(80)) // ignored after close
	assert.Equal(t, 10, e.Samples())
}
