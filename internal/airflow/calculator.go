// Package airflow estimates a room's air-exchange rate from a decaying CO
// series. When a source stops emitting, the concentration follows
// C(t) = C0·exp(-λt); fitting λ over recent measurements yields air changes
// per hour and an equivalent volumetric flow.
package airflow

import (
	"errors"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInsufficientData means fewer than two usable measurements exist.
	ErrInsufficientData = errors.New("airflow: need at least two measurements")
	// ErrNotDecaying means the CO series is rising or flat, so no exchange
	// rate can be inferred from it.
	ErrNotDecaying = errors.New("airflow: concentration is not decaying")
)

// Measurements beyond this count are discarded oldest-first; estimates use
// the most recent fitWindow of what remains.
const (
	historyLimit = 120
	fitWindow    = 10
)

// Fixed confidence weighting for conditions that inhibit airflow.
const (
	furnitureWeight = 3
	fanWeight       = 2
	occupancyWeight = 15

	defaultFurnitureCount = 6
	defaultVentSpeed      = 0.5
	defaultOccupancy      = 4
)

// Measurement is one timestamped CO reading.
type Measurement struct {
	At  time.Time
	PPM float64
}

// Estimate is a fitted air-exchange result.
type Estimate struct {
	// ACH is air changes per hour (λ·3600).
	ACH float64 `json:"ach"`
	// AirflowM3H is ACH scaled by the room volume.
	AirflowM3H float64 `json:"airflowM3h"`
	// AirflowCFM is the same flow in cubic feet per minute.
	AirflowCFM float64 `json:"airflowCfm"`
	// Confidence is a [0,1] score reflecting sample count and room
	// conditions, rounded to two decimals.
	Confidence float64 `json:"confidence"`
	// Samples is how many measurements the fit consumed.
	Samples int `json:"samples"`
}

// Calculator accumulates CO measurements for one room.
type Calculator struct {
	mu         sync.Mutex
	roomVolume float64 // m³
	history    []Measurement
}

// NewCalculator builds a calculator for a room of the given volume (m³).
func NewCalculator(roomVolumeM3 float64) *Calculator {
	return &Calculator{roomVolume: roomVolumeM3}
}

// Add records a measurement, discarding the oldest when the history is full.
func (c *Calculator) Add(at time.Time, ppm float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, Measurement{At: at, PPM: ppm})
	if len(c.history) > historyLimit {
		c.history = c.history[len(c.history)-historyLimit:]
	}
}

// Estimate fits an exponential decay to the most recent measurements. The
// fit linearises C(t) = C0·exp(-λt) as ln C = ln C0 - λt and solves by
// ordinary least squares, which needs strictly positive concentrations. A
// series that is rising, flat, or too short returns a structured error.
func (c *Calculator) Estimate() (Estimate, error) {
	c.mu.Lock()
	recent := c.history
	if len(recent) > fitWindow {
		recent = recent[len(recent)-fitWindow:]
	}
	recent = append([]Measurement(nil), recent...)
	c.mu.Unlock()

	if len(recent) < 2 {
		return Estimate{}, ErrInsufficientData
	}
	if recent[0].PPM <= recent[len(recent)-1].PPM {
		return Estimate{}, ErrNotDecaying
	}

	t0 := recent[0].At
	xs := make([]float64, 0, len(recent))
	ys := make([]float64, 0, len(recent))
	for _, m := range recent {
		if m.PPM <= 0 {
			continue // log-linearisation cannot use non-positive readings
		}
		xs = append(xs, m.At.Sub(t0).Seconds())
		ys = append(ys, math.Log(m.PPM))
	}
	if len(xs) < 2 {
		return Estimate{}, ErrInsufficientData
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	lambda := -slope // per second
	if lambda <= 0 {
		return Estimate{}, ErrNotDecaying
	}

	ach := lambda * 3600
	m3h := ach * c.roomVolume
	return Estimate{
		ACH:        ach,
		AirflowM3H: m3h,
		AirflowCFM: m3h * 0.588,
		Confidence: confidence(len(recent), defaultFurnitureCount, defaultVentSpeed, defaultOccupancy),
		Samples:    len(recent),
	}, nil
}

// confidence squashes the sample-count base and the room's airflow-inhibitor
// factors through a sigmoid into [0,1], rounded to two decimals.
func confidence(samples, furniture int, ventSpeed float64, occupancy int) float64 {
	base := 50.0
	if samples >= 5 {
		base += 25
	} else {
		base -= 25
	}
	factors := float64(furniture)*furnitureWeight +
		ventSpeed*fanWeight +
		float64(occupancy)*occupancyWeight
	return math.Round(sigmoid(base+factors)*100) / 100
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
