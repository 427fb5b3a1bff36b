package telemetry

import (
	"bufio"
	"context"
	"io"

	"go.bug.st/serial"

	"github.com/cosentry/egress/internal/monitoring"
	"github.com/cosentry/egress/internal/timeutil"
)

// Port is the minimal surface a sensor transport must provide. The real
// implementation is a serial port; tests use MockPort.
type Port interface {
	io.ReadCloser
}

// OpenSerial opens the sensor's serial device in 8N1 framing.
func OpenSerial(device string, baud int) (Port, error) {
	return serial.Open(device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// Feed reads newline-delimited samples off a Port and hands each decoded
// Reading to a callback. Malformed lines are logged and skipped so a single
// glitched sample never stalls the pipeline.
type Feed struct {
	port  Port
	clock timeutil.Clock
}

// NewFeed wraps a port. A nil clock defaults to wall time.
func NewFeed(port Port, clock timeutil.Clock) *Feed {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Feed{port: port, clock: clock}
}

// Run blocks until the port is exhausted or ctx is cancelled. The scanner
// runs in its own goroutine so cancellation does not wait on a blocked Read;
// closing the port is what actually unblocks it.
func (f *Feed) Run(ctx context.Context, handle func(Reading)) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(f.port)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			f.port.Close()
			<-lines // drain until the scanner goroutine exits
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			r, err := ParseLine(line, f.clock.Now())
			if err != nil {
				monitoring.Logf("telemetry: dropping sample: %v", err)
				continue
			}
			handle(r)
		}
	}
}
