package telemetry

import (
	"io"
	"sync"
	"time"
)

// MockPort replays canned bytes and then returns io.EOF. Close unblocks any
// pending Read, matching how a real serial port behaves on teardown.
type MockPort struct {
	mu     sync.Mutex
	buf    []byte
	closed bool
}

// NewMockPort returns a port that serves the given bytes.
func NewMockPort(data []byte) *MockPort {
	return &MockPort{buf: append([]byte(nil), data...)}
}

func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	if len(m.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.buf)
	m.buf = m.buf[n:]
	return n, nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// NewReplayPort streams the given lines one per interval, looping forever.
// It backs the daemon's -dev mode, where no sensor hardware is attached.
func NewReplayPort(lines []string, interval time.Duration) Port {
	pr, pw := io.Pipe()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		i := 0
		for range ticker.C {
			if _, err := io.WriteString(pw, lines[i%len(lines)]+"\n"); err != nil {
				return // reader closed
			}
			i++
		}
	}()
	return pr
}
