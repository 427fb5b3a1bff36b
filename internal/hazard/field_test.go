package hazard

import (
	"math"
	"testing"
	"time"

	"github.com/cosentry/egress/internal/timeutil"
)

func testClock() *timeutil.MockClock {
	return timeutil.NewMockClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
}

func mustField(t *testing.T, p Params) *Field {
	t.Helper()
	if p.Clock == nil {
		p.Clock = testClock()
	}
	f, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestNewRejectsInvalidDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 10}, {10, 0}, {-1, 10}, {10, -5}, {0, 0}} {
		if _, err := New(Params{Width: dims[0], Height: dims[1]}); err == nil {
			t.Errorf("New(%dx%d) expected error", dims[0], dims[1])
		}
	}
}

func TestNewSeedsNormalBand(t *testing.T) {
	f := mustField(t, Params{Width: 8, Height: 8})
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c, ok := f.At(x, y)
			if !ok {
				t.Fatalf("At(%d,%d) out of bounds", x, y)
			}
			if c.Hazard < normalBandLow || c.Hazard > normalBandHigh {
				t.Errorf("cell (%d,%d) hazard %v outside normal band", x, y, c.Hazard)
			}
			if c.ID != y*8+x {
				t.Errorf("cell (%d,%d) ID = %d, want %d", x, y, c.ID, y*8+x)
			}
		}
	}
}

func TestWallsCarryNoHazardAndExitsRegister(t *testing.T) {
	f := mustField(t, Params{
		Width: 5, Height: 5,
		Wall: func(x, y int) bool { return x == 2 },
		Exit: func(x, y int) bool { return x == 4 && y == 4 },
	})

	c, _ := f.At(2, 3)
	if !c.IsWall {
		t.Error("expected (2,3) to be a wall")
	}
	if c.Hazard != 0 {
		t.Errorf("wall hazard = %v, want 0", c.Hazard)
	}

	exits := f.Exits()
	if len(exits) != 1 || exits[0].X != 4 || exits[0].Y != 4 {
		t.Errorf("Exits() = %+v, want single exit at (4,4)", exits)
	}
}

func TestAtOutOfBounds(t *testing.T) {
	f := mustField(t, Params{Width: 3, Height: 3})
	for _, pt := range [][2]int{{-1, 0}, {0, -1}, {3, 0}, {0, 3}, {100, 100}} {
		if _, ok := f.At(pt[0], pt[1]); ok {
			t.Errorf("At(%d,%d) = ok, want false", pt[0], pt[1])
		}
	}
}

func TestSetHazard(t *testing.T) {
	clock := testClock()
	f := mustField(t, Params{Width: 4, Height: 4, Clock: clock})

	clock.Advance(10 * time.Second)
	if !f.SetHazard(1, 2, 42.5) {
		t.Fatal("SetHazard in bounds returned false")
	}
	c, _ := f.At(1, 2)
	if c.Hazard != 42.5 {
		t.Errorf("hazard = %v, want 42.5", c.Hazard)
	}
	if !c.LastUpdated.Equal(clock.Now()) {
		t.Errorf("LastUpdated = %v, want %v", c.LastUpdated, clock.Now())
	}

	if f.SetHazard(-1, 0, 10) || f.SetHazard(0, 4, 10) {
		t.Error("SetHazard out of bounds returned true")
	}
}

func TestSpreadDecaysWithDistance(t *testing.T) {
	f := mustField(t, Params{Width: 9, Height: 9})
	// Clear the seeded band so the decay shape is visible.
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			f.SetHazard(x, y, 0)
		}
	}

	if !f.Spread(4, 4, 80) {
		t.Fatal("Spread in bounds returned false")
	}

	src, _ := f.At(4, 4)
	if src.Hazard != 80 {
		t.Errorf("source hazard = %v, want 80", src.Hazard)
	}

	adj, _ := f.At(5, 4) // distance 1
	want := 80 * math.Exp(-0.5)
	if math.Abs(adj.Hazard-want) > 1e-9 {
		t.Errorf("adjacent hazard = %v, want %v", adj.Hazard, want)
	}

	diag, _ := f.At(5, 5) // distance sqrt(2)
	want = 80 * math.Exp(-math.Sqrt2*0.5)
	if math.Abs(diag.Hazard-want) > 1e-9 {
		t.Errorf("diagonal hazard = %v, want %v", diag.Hazard, want)
	}

	// Beyond the Chebyshev radius nothing changes.
	far, _ := f.At(8, 4)
	if far.Hazard != 0 {
		t.Errorf("hazard at radius 4 = %v, want 0", far.Hazard)
	}
}

func TestSpreadSkipsWalls(t *testing.T) {
	f := mustField(t, Params{
		Width: 7, Height: 7,
		Wall: func(x, y int) bool { return x == 3 && y == 2 },
	})
	f.Spread(3, 3, 100)

	wall, _ := f.At(3, 2)
	if wall.Hazard != 0 {
		t.Errorf("wall hazard = %v, want 0 after Spread", wall.Hazard)
	}
}

func TestSpreadIsIdempotent(t *testing.T) {
	once := mustField(t, Params{Width: 10, Height: 10})
	twice := mustField(t, Params{Width: 10, Height: 10})

	once.Spread(5, 5, 60)
	twice.Spread(5, 5, 60)
	twice.Spread(5, 5, 60)

	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			a, _ := once.At(x, y)
			b, _ := twice.At(x, y)
			if a.Hazard != b.Hazard {
				t.Fatalf("cell (%d,%d): once=%v twice=%v", x, y, a.Hazard, b.Hazard)
			}
		}
	}
}

func TestSpreadIsMonotone(t *testing.T) {
	f := mustField(t, Params{Width: 10, Height: 10})
	f.SetHazard(6, 5, 90) // pre-existing higher reading next to the source

	f.Spread(5, 5, 40)

	c, _ := f.At(6, 5)
	if c.Hazard != 90 {
		t.Errorf("neighbour with higher prior hazard was lowered: got %v, want 90", c.Hazard)
	}
}

func TestSpreadOutOfBounds(t *testing.T) {
	f := mustField(t, Params{Width: 4, Height: 4})
	if f.Spread(-1, 2, 50) || f.Spread(2, 9, 50) {
		t.Error("Spread out of bounds returned true")
	}
}
