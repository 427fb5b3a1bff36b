// Package db persists observations, fired alerts and ventilation estimates
// to sqlite. The schema is owned by the migrations directory; see migrate.go.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cosentry/egress/internal/airflow"
	"github.com/cosentry/egress/internal/alert"
	"github.com/cosentry/egress/internal/telemetry"
)

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the sqlite database at path. Migrations are not
// run here; call MigrateUp after opening.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single writer; WAL keeps readers off the write lock.
	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return &DB{db}, nil
}

// RecordObservation appends one sensor sample.
func (db *DB) RecordObservation(r telemetry.Reading) error {
	_, err := db.Exec(
		`INSERT INTO observations (temperature, humidity, pressure, co_ppm, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		r.Temperature, r.Humidity, r.Pressure, r.Hazard, r.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record observation: %w", err)
	}
	return nil
}

// RecordAlert stores a fired notification.
func (db *DB) RecordAlert(n alert.Notification) error {
	_, err := db.Exec(
		`INSERT INTO alerts (id, severity, level, source, fired_at)
		 VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.Severity.String(), n.Level, string(n.Source), n.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record alert: %w", err)
	}
	return nil
}

// RecordAirflowEstimate stores a ventilation estimate.
func (db *DB) RecordAirflowEstimate(e airflow.Estimate, at time.Time) error {
	_, err := db.Exec(
		`INSERT INTO airflow_estimates (ach, airflow_m3h, airflow_cfm, confidence, samples, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ACH, e.AirflowM3H, e.AirflowCFM, e.Confidence, e.Samples, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record airflow estimate: %w", err)
	}
	return nil
}

// AlertRecord is one persisted alert row.
type AlertRecord struct {
	ID       string    `json:"id"`
	Severity string    `json:"severity"`
	Level    float64   `json:"level"`
	Source   string    `json:"source"`
	FiredAt  time.Time `json:"fired_at"`
}

// ListAlerts returns the most recent alerts, newest first.
func (db *DB) ListAlerts(limit int) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT id, severity, level, source, fired_at
		 FROM alerts ORDER BY fired_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var out []AlertRecord
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(&rec.ID, &rec.Severity, &rec.Level, &rec.Source, &rec.FiredAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ObservationCount reports how many samples have been persisted.
func (db *DB) ObservationCount() (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM observations`).Scan(&n)
	return n, err
}
