// Package alert maps hazard levels to severity tiers and rate-limits
// notification delivery with a per-tier cooldown. The cooldown is keyed by
// tier only, shared across current- and predicted-sourced alerts of the same
// tier; that coupling is deliberate and preserved.
package alert

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cosentry/egress/internal/monitoring"
	"github.com/cosentry/egress/internal/timeutil"
)

// Severity is the ordered classification of a hazard level.
type Severity int

const (
	SeveritySafe Severity = iota
	SeverityWarning
	SeverityDanger
	SeverityCritical
)

// String returns the wire name of the severity.
func (s Severity) String() string {
	switch s {
	case SeveritySafe:
		return "SAFE"
	case SeverityWarning:
		return "WARNING"
	case SeverityDanger:
		return "DANGER"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON encodes the severity by name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Source records whether an alert was triggered by a live reading or a
// forecast.
type Source string

const (
	SourceCurrent   Source = "current"
	SourcePredicted Source = "predicted"
)

// Thresholds are the ascending severity boundaries (ppm). A level above
// Critical is CRITICAL, above Danger is DANGER, above Warning is WARNING,
// otherwise SAFE.
type Thresholds struct {
	Warning  float64
	Danger   float64
	Critical float64
}

// DefaultThresholds returns the standard CO severity boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 35, Danger: 70, Critical: 150}
}

// Notification is one delivered alert.
type Notification struct {
	ID       string    `json:"id"`
	Severity Severity  `json:"severity"`
	Level    float64   `json:"level"`
	Source   Source    `json:"source"`
	At       time.Time `json:"at"`
}

// Notifier delivers notifications to whatever sits behind the evaluator
// (log, UI, pager). Delivery failure never mutates evaluator state.
type Notifier interface {
	Notify(n Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(n Notification) error { return f(n) }

// LogNotifier writes notifications to the monitoring logger.
func LogNotifier() Notifier {
	return NotifierFunc(func(n Notification) error {
		monitoring.Logf("alert: %s level=%.1f source=%s", n.Severity, n.Level, n.Source)
		return nil
	})
}

// Evaluator owns the per-tier alert state for a session. The state is reset
// only by constructing a new evaluator.
type Evaluator struct {
	mu         sync.Mutex
	thresholds Thresholds
	cooldown   time.Duration
	clock      timeutil.Clock
	notifier   Notifier
	lastFired  map[Severity]time.Time
}

// NewEvaluator builds an evaluator. A nil clock means the real clock; a nil
// notifier means the monitoring log; a non-positive cooldown defaults to 60s.
func NewEvaluator(th Thresholds, cooldown time.Duration, clock timeutil.Clock, notifier Notifier) *Evaluator {
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if notifier == nil {
		notifier = LogNotifier()
	}
	return &Evaluator{
		thresholds: th,
		cooldown:   cooldown,
		clock:      clock,
		notifier:   notifier,
		lastFired:  make(map[Severity]time.Time),
	}
}

// SeverityOf classifies a hazard level against the configured thresholds.
func (e *Evaluator) SeverityOf(level float64) Severity {
	switch {
	case level > e.thresholds.Critical:
		return SeverityCritical
	case level > e.thresholds.Danger:
		return SeverityDanger
	case level > e.thresholds.Warning:
		return SeverityWarning
	default:
		return SeveritySafe
	}
}

// Notify evaluates a hazard level from the given source and delivers a
// notification unless the tier is SAFE or still cooling down. It reports
// whether a delivery was attempted. The cooldown stamp is taken at attempt
// time, so a failing notifier (logged, otherwise ignored) still consumes the
// tier's slot.
func (e *Evaluator) Notify(level float64, source Source) bool {
	tier := e.SeverityOf(level)
	if tier == SeveritySafe {
		return false
	}

	e.mu.Lock()
	now := e.clock.Now()
	if last, ok := e.lastFired[tier]; ok && now.Sub(last) <= e.cooldown {
		e.mu.Unlock()
		return false
	}
	e.lastFired[tier] = now
	e.mu.Unlock()

	n := Notification{
		ID:       uuid.NewString(),
		Severity: tier,
		Level:    level,
		Source:   source,
		At:       now,
	}
	if err := e.notifier.Notify(n); err != nil {
		monitoring.Logf("alert: delivery failed for %s: %v", n.Severity, err)
	}
	return true
}

// NotifyPredicted evaluates a forecast value against the live reading.
// Predicted-sourced alerts fire only when the prediction strictly exceeds the
// current level, so a stable-but-elevated reading does not alarm twice.
func (e *Evaluator) NotifyPredicted(current, predicted float64) bool {
	if predicted <= current {
		return false
	}
	return e.Notify(predicted, SourcePredicted)
}
