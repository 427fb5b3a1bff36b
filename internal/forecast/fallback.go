package forecast

import "gonum.org/v1/gonum/stat"

// fallbackEstimate is the deterministic estimator used whenever the learned
// model is unavailable or errors: an exponentially-weighted moving average of
// the raw hazard window plus a dampened linear trend projection. It is a pure
// function of its arguments: an identical window always yields an identical
// estimate.
//
// The EWMA is seeded with the earliest value in the window and folded forward
// in chronological order; the trend is the ordinary-least-squares slope of
// hazard against sample index, projected horizon steps ahead and scaled by
// the dampening factor. The result is clamped to [0, 100].
func fallbackEstimate(window []float64, alpha float64, horizon int, dampening float64) float64 {
	if len(window) == 0 {
		return 0
	}

	ema := window[0]
	for _, v := range window[1:] {
		ema = alpha*v + (1-alpha)*ema
	}

	var trend float64
	if len(window) >= 2 {
		idx := make([]float64, len(window))
		for i := range idx {
			idx[i] = float64(i)
		}
		_, slope := stat.LinearRegression(idx, window, nil, false)
		trend = slope * float64(horizon) * dampening
	}

	return clamp(ema+trend, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
