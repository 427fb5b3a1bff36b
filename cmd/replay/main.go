// Command replay feeds a recorded sensor log through the forecast engine and
// prints each one-step-ahead prediction next to the value that actually
// arrived, plus the aggregate error. Useful for vetting a trained model
// artifact against a captured incident before deploying it.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/cosentry/egress/internal/forecast"
	"github.com/cosentry/egress/internal/telemetry"
)

var (
	logFile   = flag.String("file", "", "Recorded sensor log (CSV, one sample per line)")
	modelPath = flag.String("model", "", "Forecast model artifact (optional; fallback-only when empty)")
	window    = flag.Int("window", 10, "Forecast window size")
	quiet     = flag.Bool("quiet", false, "Print only the summary line")
)

func main() {
	flag.Parse()

	if *logFile == "" {
		log.Fatal("-file is required")
	}

	f, err := os.Open(*logFile)
	if err != nil {
		log.Fatalf("failed to open log: %v", err)
	}
	defer f.Close()

	engine := forecast.NewEngine(forecast.Config{Window: *window})
	defer engine.Close()
	if *modelPath != "" {
		if state := engine.LoadModel(*modelPath); !state.Ready() {
			log.Printf("model artifact unusable (state=%s); using fallback", state)
		}
	}

	ctx := context.Background()
	var predicted float64
	var havePrediction bool
	var absErrSum float64
	var compared, skipped int

	at := time.Now()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		r, err := telemetry.ParseLine(scanner.Text(), at)
		if err != nil {
			skipped++
			continue
		}
		at = at.Add(time.Second)

		if havePrediction {
			diff := math.Abs(predicted - r.Hazard)
			absErrSum += diff
			compared++
			if !*quiet {
				fmt.Printf("observed=%7.2f predicted=%7.2f |err|=%6.2f\n", r.Hazard, predicted, diff)
			}
		}

		engine.Ingest(forecast.Observation{
			At:          r.At,
			Temperature: r.Temperature,
			Humidity:    r.Humidity,
			Pressure:    r.Pressure,
			Hazard:      r.Hazard,
		})

		pred, err := engine.Predict(ctx)
		if err != nil {
			log.Fatalf("predict failed: %v", err)
		}
		havePrediction = pred.Status != forecast.StatusCollecting
		if havePrediction {
			predicted = pred.Value
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("failed to read log: %v", err)
	}

	if compared == 0 {
		fmt.Printf("no predictions made: log too short for window %d (skipped %d bad lines)\n", *window, skipped)
		return
	}
	fmt.Printf("samples=%d compared=%d skipped=%d mae=%.3f\n",
		engine.Samples(), compared, skipped, absErrSum/float64(compared))
}
