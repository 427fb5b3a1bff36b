package hazard

import (
	"encoding/json"
	"fmt"

	"github.com/cosentry/egress/internal/timeutil"
)

// Snapshot is the portable form of a field, used by tests and the API
// surface. Timestamps are intentionally omitted; a restored field stamps all
// cells with the restore time.
type Snapshot struct {
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Cells  []CellSnapshot `json:"cells"`
}

// CellSnapshot is one cell within a Snapshot.
type CellSnapshot struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Hazard float64 `json:"hazard"`
	IsWall bool    `json:"isWall"`
	IsExit bool    `json:"isExit"`
}

// Snapshot captures the current field state in row-major cell order.
func (f *Field) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	s := Snapshot{
		Width:  f.width,
		Height: f.height,
		Cells:  make([]CellSnapshot, len(f.cells)),
	}
	for i, c := range f.cells {
		s.Cells[i] = CellSnapshot{X: c.X, Y: c.Y, Hazard: c.Hazard, IsWall: c.IsWall, IsExit: c.IsExit}
	}
	return s
}

// Restore reconstructs a field from a snapshot. Cells missing from the
// snapshot come up as zero-hazard traversable cells.
func Restore(s Snapshot, clock timeutil.Clock) (*Field, error) {
	if s.Width <= 0 || s.Height <= 0 {
		return nil, ErrInvalidDimensions
	}
	f, err := New(Params{Width: s.Width, Height: s.Height, Clock: clock})
	if err != nil {
		return nil, err
	}

	now := f.clock.Now()
	for i := range f.cells {
		f.cells[i].Hazard = 0
	}
	f.exits = f.exits[:0]
	for _, cs := range s.Cells {
		if !f.InBounds(cs.X, cs.Y) {
			return nil, fmt.Errorf("hazard: snapshot cell (%d,%d) outside %dx%d grid",
				cs.X, cs.Y, s.Width, s.Height)
		}
		id := cs.Y*s.Width + cs.X
		f.cells[id] = Cell{
			ID: id, X: cs.X, Y: cs.Y,
			Hazard:      cs.Hazard,
			IsWall:      cs.IsWall,
			IsExit:      cs.IsExit && !cs.IsWall,
			LastUpdated: now,
		}
		if f.cells[id].IsExit {
			f.exits = append(f.exits, id)
		}
	}
	return f, nil
}

// ParseSnapshot decodes the snapshot wire form.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("hazard: invalid snapshot: %w", err)
	}
	return s, nil
}
