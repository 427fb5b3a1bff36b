// Package hazard owns the building's spatial CO concentration field: a fixed
// width×height grid of cells carrying a hazard level, wall/exit flags and the
// time of the last update. The field is mutated only by the telemetry feed;
// the route planner and the API borrow read access per query.
package hazard

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/cosentry/egress/internal/timeutil"
)

// ErrInvalidDimensions is returned by New when width or height is not positive.
var ErrInvalidDimensions = errors.New("hazard: grid dimensions must be positive")

// Initial concentrations for non-wall cells are sampled from this low
// "normal indoor air" band (ppm).
const (
	normalBandLow  = 2.0
	normalBandHigh = 6.0
)

// Cell is one addressable unit of the grid. X/Y and the wall/exit flags are
// immutable after construction; the hazard level and timestamp change as
// telemetry arrives. The cell ID is bijective with its coordinates via
// id = y*width + x.
type Cell struct {
	ID          int       `json:"id"`
	X           int       `json:"x"`
	Y           int       `json:"y"`
	Hazard      float64   `json:"hazard"`
	IsWall      bool      `json:"isWall"`
	IsExit      bool      `json:"isExit"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Params configures field construction. Zero values fall back to defaults.
type Params struct {
	Width  int
	Height int

	// Wall and Exit are sampled once per cell at construction; the resulting
	// flags never change. Either may be nil. A cell flagged as both wall and
	// exit is treated as a wall.
	Wall func(x, y int) bool
	Exit func(x, y int) bool

	// SpreadRadius is the Chebyshev radius affected by Spread. Default: 3.
	SpreadRadius int
	// DecayRate is the exponential distance decay used by Spread. Default: 0.5.
	DecayRate float64

	Clock timeutil.Clock
}

// Field is the grid of cells. All mutation is expected to come from a single
// telemetry feed; the RWMutex only serialises that writer against concurrent
// HTTP readers, it does not provide snapshot isolation (queries reflect state
// as of the call).
type Field struct {
	mu     sync.RWMutex
	width  int
	height int
	cells  []Cell // row-major, index = y*width + x
	exits  []int  // cell IDs flagged as exits, in row-major order

	spreadRadius int
	decayRate    float64
	clock        timeutil.Clock
}

// New builds a field from the given params. Every non-wall cell receives an
// initial hazard drawn from the normal band; the RNG is seeded from the
// dimensions so repeated constructions of the same layout agree.
func New(p Params) (*Field, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if p.SpreadRadius <= 0 {
		p.SpreadRadius = 3
	}
	if p.DecayRate <= 0 {
		p.DecayRate = 0.5
	}
	if p.Clock == nil {
		p.Clock = timeutil.RealClock{}
	}

	rng := rand.New(rand.NewSource(int64(p.Width)*7919 + int64(p.Height)))
	now := p.Clock.Now()

	f := &Field{
		width:        p.Width,
		height:       p.Height,
		cells:        make([]Cell, p.Width*p.Height),
		spreadRadius: p.SpreadRadius,
		decayRate:    p.DecayRate,
		clock:        p.Clock,
	}
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			id := y*p.Width + x
			c := Cell{ID: id, X: x, Y: y, LastUpdated: now}
			if p.Wall != nil && p.Wall(x, y) {
				c.IsWall = true
			} else {
				c.Hazard = normalBandLow + rng.Float64()*(normalBandHigh-normalBandLow)
				if p.Exit != nil && p.Exit(x, y) {
					c.IsExit = true
					f.exits = append(f.exits, id)
				}
			}
			f.cells[id] = c
		}
	}
	return f, nil
}

// Width returns the grid width.
func (f *Field) Width() int { return f.width }

// Height returns the grid height.
func (f *Field) Height() int { return f.height }

// InBounds reports whether (x,y) lies within the grid boundaries.
func (f *Field) InBounds(x, y int) bool {
	return x >= 0 && x < f.width && y >= 0 && y < f.height
}

// At returns a copy of the cell at (x,y), or false when the coordinates fall
// outside the grid. It never panics.
func (f *Field) At(x, y int) (Cell, bool) {
	if !f.InBounds(x, y) {
		return Cell{}, false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cells[y*f.width+x], true
}

// SetHazard overwrites the hazard level at (x,y) and stamps the update time.
// It reports false (and does nothing) when the coordinates are out of bounds.
// The value is not clamped here; callers deliver raw concentrations.
func (f *Field) SetHazard(x, y int, value float64) bool {
	if !f.InBounds(x, y) {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &f.cells[y*f.width+x]
	c.Hazard = value
	c.LastUpdated = f.clock.Now()
	return true
}

// Spread models a point release at the source cell: the source is set to
// intensity and every other non-wall cell within the spread radius
// (Chebyshev) takes the maximum of its current level and
// intensity*exp(-d*decayRate), where d is the Euclidean distance to the
// source. The neighbour update is monotone non-decreasing, so repeated
// identical calls are idempotent. Out-of-bounds sources report false.
func (f *Field) Spread(srcX, srcY int, intensity float64) bool {
	if !f.InBounds(srcX, srcY) {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	src := &f.cells[srcY*f.width+srcX]
	if !src.IsWall {
		src.Hazard = intensity
		src.LastUpdated = now
	}

	for dy := -f.spreadRadius; dy <= f.spreadRadius; dy++ {
		for dx := -f.spreadRadius; dx <= f.spreadRadius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			x, y := srcX+dx, srcY+dy
			if x < 0 || x >= f.width || y < 0 || y >= f.height {
				continue
			}
			c := &f.cells[y*f.width+x]
			if c.IsWall {
				continue
			}
			dist := math.Sqrt(float64(dx*dx + dy*dy))
			level := intensity * math.Exp(-dist*f.decayRate)
			if level > c.Hazard {
				c.Hazard = level
				c.LastUpdated = now
			}
		}
	}
	return true
}

// Exits returns copies of all exit cells in row-major order.
func (f *Field) Exits() []Cell {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Cell, len(f.exits))
	for i, id := range f.exits {
		out[i] = f.cells[id]
	}
	return out
}
