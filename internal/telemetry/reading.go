// Package telemetry consumes the CO sensor's line protocol and turns it into
// typed readings for the hazard field and the forecast engine. The sensor
// emits one sample per tick, either as CSV "temperature,humidity,pressure,co"
// or as a JSON object with the same fields.
package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Reading is one calibrated multivariate sample from the sensor head.
type Reading struct {
	Temperature float64   `json:"temperature"` // °C
	Humidity    float64   `json:"humidity"`    // %RH
	Pressure    float64   `json:"pressure"`    // hPa
	Hazard      float64   `json:"co_ppm"`      // CO concentration
	At          time.Time `json:"-"`
}

// ParseLine decodes one sensor line. Lines starting with '{' are JSON;
// anything else is the four-field CSV form. Samples with non-positive
// temperature, humidity or pressure are rejected the same way the upstream
// data cleaning discards them: they indicate a dead or warming-up sensor.
func ParseLine(line string, at time.Time) (Reading, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Reading{}, fmt.Errorf("telemetry: empty line")
	}

	var r Reading
	if strings.HasPrefix(line, "{") {
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return Reading{}, fmt.Errorf("telemetry: bad JSON sample: %w", err)
		}
	} else {
		segments := strings.Split(line, ",")
		if len(segments) != 4 {
			return Reading{}, fmt.Errorf("telemetry: expected 4 CSV fields, got %d", len(segments))
		}
		vals := make([]float64, 4)
		for i, seg := range segments {
			v, err := strconv.ParseFloat(strings.TrimSpace(seg), 64)
			if err != nil {
				return Reading{}, fmt.Errorf("telemetry: bad CSV field %d %q: %w", i, seg, err)
			}
			vals[i] = v
		}
		r = Reading{Temperature: vals[0], Humidity: vals[1], Pressure: vals[2], Hazard: vals[3]}
	}

	if r.Temperature <= 0 || r.Humidity <= 0 || r.Pressure <= 0 {
		return Reading{}, fmt.Errorf("telemetry: dead-zone sample t=%.1f h=%.1f p=%.1f",
			r.Temperature, r.Humidity, r.Pressure)
	}
	if r.Hazard < 0 {
		return Reading{}, fmt.Errorf("telemetry: negative CO reading %.2f", r.Hazard)
	}

	r.At = at
	return r, nil
}
