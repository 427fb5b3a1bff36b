package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cosentry/egress/internal/airflow"
	"github.com/cosentry/egress/internal/alert"
	"github.com/cosentry/egress/internal/api"
	"github.com/cosentry/egress/internal/config"
	"github.com/cosentry/egress/internal/db"
	"github.com/cosentry/egress/internal/forecast"
	"github.com/cosentry/egress/internal/hazard"
	"github.com/cosentry/egress/internal/route"
	"github.com/cosentry/egress/internal/telemetry"
)

var (
	devMode    = flag.Bool("dev", false, "Replay fixture telemetry instead of opening the serial port")
	listen     = flag.String("listen", ":8080", "Listen address")
	configPath = flag.String("config", "", "Path to tuning config JSON (optional)")
	dbFile     = flag.String("db", "egress.db", "Path to the sqlite database")
	migrations = flag.String("migrations", "./migrations", "Path to the migrations directory")
	layoutPath = flag.String("layout", "", "Path to a grid snapshot JSON describing the building layout (optional)")
	serialPort = flag.String("port", "/dev/ttyUSB0", "Serial device of the sensor head")
	baudRate   = flag.Int("baud", 115200, "Serial baud rate")
	fixtures   = flag.String("fixtures", "fixtures.csv", "Telemetry fixture file for dev mode")
	sensorX    = flag.Int("sensor-x", -1, "Grid X of the sensor head (default: grid centre)")
	sensorY    = flag.Int("sensor-y", -1, "Grid Y of the sensor head (default: grid centre)")
)

// pipeline carries everything a sensor reading touches.
type pipeline struct {
	cfg     *config.TuningConfig
	field   *hazard.Field
	engine  *forecast.Engine
	alerts  *alert.Evaluator
	store   *db.DB
	airflow *airflow.Calculator
	sensorX int
	sensorY int
}

// handleReading pushes one sample through the whole chain: grid update,
// forecast ingest, persistence, alert evaluation and ventilation tracking.
func (p *pipeline) handleReading(ctx context.Context, r telemetry.Reading) {
	p.field.SetHazard(p.sensorX, p.sensorY, r.Hazard)
	if r.Hazard >= p.cfg.GetSpreadThreshold() {
		p.field.Spread(p.sensorX, p.sensorY, r.Hazard)
	}

	p.engine.Ingest(forecast.Observation{
		At:          r.At,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Pressure:    r.Pressure,
		Hazard:      r.Hazard,
	})
	p.airflow.Add(r.At, r.Hazard)

	if err := p.store.RecordObservation(r); err != nil {
		log.Printf("failed to record observation: %v", err)
	}

	p.alerts.Notify(r.Hazard, alert.SourceCurrent)

	pred, err := p.engine.Predict(ctx)
	if err != nil {
		return
	}
	if pred.Status != forecast.StatusCollecting {
		p.alerts.NotifyPredicted(r.Hazard, pred.Value)
	}
}

func buildField(cfg *config.TuningConfig) (*hazard.Field, error) {
	if *layoutPath != "" {
		data, err := os.ReadFile(*layoutPath)
		if err != nil {
			return nil, err
		}
		snap, err := hazard.ParseSnapshot(data)
		if err != nil {
			return nil, err
		}
		return hazard.Restore(snap, nil)
	}

	// No layout file: open floor with exits in the four corners.
	w, h := cfg.GetGridWidth(), cfg.GetGridHeight()
	return hazard.New(hazard.Params{
		Width:  w,
		Height: h,
		Exit: func(x, y int) bool {
			return (x == 0 || x == w-1) && (y == 0 || y == h-1)
		},
		SpreadRadius: cfg.GetSpreadRadius(),
		DecayRate:    cfg.GetSpreadDecayRate(),
	})
}

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := &config.TuningConfig{}
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	field, err := buildField(cfg)
	if err != nil {
		log.Fatalf("failed to build hazard field: %v", err)
	}

	store, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()
	if err := store.MigrateUp(*migrations); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	engine := forecast.NewEngine(forecast.Config{
		Window:       cfg.GetForecastWindow(),
		Alpha:        cfg.GetSmoothingAlpha(),
		HorizonSteps: cfg.GetHorizonSteps(),
		Dampening:    cfg.GetTrendDampening(),
	})
	defer engine.Close()
	if state := engine.LoadModel(cfg.GetModelArtifactPath()); !state.Ready() {
		log.Printf("forecast model unavailable (state=%s); using deterministic fallback", state)
	}

	// Fired alerts go to the log and the database.
	notifier := alert.NotifierFunc(func(n alert.Notification) error {
		log.Printf("ALERT %s level=%.1fppm source=%s", n.Severity, n.Level, n.Source)
		return store.RecordAlert(n)
	})
	alerts := alert.NewEvaluator(alert.Thresholds{
		Warning:  cfg.GetWarningThreshold(),
		Danger:   cfg.GetDangerThreshold(),
		Critical: cfg.GetCriticalThreshold(),
	}, cfg.GetAlertCooldown(), nil, notifier)

	calc := airflow.NewCalculator(cfg.GetRoomVolumeM3())

	sx, sy := *sensorX, *sensorY
	if sx < 0 {
		sx = field.Width() / 2
	}
	if sy < 0 {
		sy = field.Height() / 2
	}
	p := &pipeline{
		cfg:     cfg,
		field:   field,
		engine:  engine,
		alerts:  alerts,
		store:   store,
		airflow: calc,
		sensorX: sx,
		sensorY: sy,
	}

	var port telemetry.Port
	if *devMode {
		data, err := os.ReadFile(*fixtures)
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		port = telemetry.NewReplayPort(strings.Split(strings.TrimSpace(string(data)), "\n"), time.Second)
	} else {
		port, err = telemetry.OpenSerial(*serialPort, *baudRate)
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", *serialPort, err)
		}
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// telemetry feed routine
	wg.Add(1)
	go func() {
		defer wg.Done()
		feed := telemetry.NewFeed(port, nil)
		if err := feed.Run(ctx, func(r telemetry.Reading) {
			p.handleReading(ctx, r)
		}); err != nil && err != context.Canceled {
			log.Printf("telemetry feed stopped: %v", err)
		}
		log.Print("telemetry routine terminated")
	}()

	// ventilation estimate routine: persist a fresh estimate once a minute
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				est, err := calc.Estimate()
				if err != nil {
					continue // not enough decay data yet
				}
				if err := store.RecordAirflowEstimate(est, time.Now()); err != nil {
					log.Printf("failed to record airflow estimate: %v", err)
				}
			case <-ctx.Done():
				log.Print("airflow routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		handler := api.LoggingMiddleware(
			api.NewServer(field, route.NewPlanner(field, cfg.GetSecondsPerCell()), engine, alerts, store, calc).ServeMux(),
		)
		server := &http.Server{
			Addr:    *listen,
			Handler: handler,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
