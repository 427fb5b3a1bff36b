package hazard

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSnapshotRoundTrip(t *testing.T) {
	f := mustField(t, Params{
		Width: 4, Height: 3,
		Wall: func(x, y int) bool { return x == 1 && y == 1 },
		Exit: func(x, y int) bool { return x == 3 && y == 2 },
	})
	f.SetHazard(0, 0, 33)

	snap := f.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := ParseSnapshot(data)
	if err != nil {
		t.Fatalf("ParseSnapshot: %v", err)
	}

	restored, err := Restore(parsed, testClock())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if diff := cmp.Diff(snap, restored.Snapshot()); diff != "" {
		t.Errorf("restored snapshot mismatch (-want +got):\n%s", diff)
	}

	exits := restored.Exits()
	if len(exits) != 1 || exits[0].X != 3 || exits[0].Y != 2 {
		t.Errorf("restored exits = %+v, want single exit at (3,2)", exits)
	}
}

func TestRestoreRejectsBadSnapshots(t *testing.T) {
	if _, err := Restore(Snapshot{Width: 0, Height: 5}, testClock()); err == nil {
		t.Error("expected error for zero width")
	}

	s := Snapshot{Width: 2, Height: 2, Cells: []CellSnapshot{{X: 5, Y: 0}}}
	if _, err := Restore(s, testClock()); err == nil {
		t.Error("expected error for out-of-grid cell")
	}
}

func TestParseSnapshotRejectsGarbage(t *testing.T) {
	if _, err := ParseSnapshot([]byte("{not json")); err == nil {
		t.Error("expected parse error")
	}
}
