package sqlapdb

import (
	"testing"

	"github.com/ap-survey/apdb/internal/pixel"
)

func TestFilterByRegionKeepsOnlyContainedRows(t *testing.T) {
	center := pixel.DirectionFromRaDec(0, 0)
	region := pixel.Circle{Center: center, RadiusRad: 0.01}
	rows := []map[string]any{
		{"ra": 0.0, "decl": 0.0},
		{"ra": 180.0, "decl": 0.0},
	}
	out := filterByRegion(rows, region)
	if len(out) != 1 {
		t.Fatalf("filterByRegion() returned %d rows, want 1", len(out))
	}
	if out[0]["ra"] != 0.0 {
		t.Errorf("filterByRegion() kept the wrong row: %v", out[0])
	}
}

func TestFilterByRegionNilRegionPassesThrough(t *testing.T) {
	rows := []map[string]any{{"ra": 1.0, "decl": 1.0}}
	out := filterByRegion(rows, nil)
	if len(out) != 1 {
		t.Errorf("filterByRegion(nil) dropped rows, want passthrough")
	}
}

func TestFilterByObjectIDs(t *testing.T) {
	rows := []map[string]any{
		{"diaObjectId": int64(1)},
		{"diaObjectId": int64(2)},
		{"diaObjectId": int64(3)},
	}
	out := filterByObjectIDs(rows, []int64{1, 3})
	if len(out) != 2 {
		t.Fatalf("filterByObjectIDs() returned %d rows, want 2", len(out))
	}
}

func TestAssembleFrame(t *testing.T) {
	rows := []map[string]any{{"a": int64(1)}, {"a": int64(2)}}
	f, err := assembleFrame([]string{"a"}, rows)
	if err != nil {
		t.Fatalf("assembleFrame: %v", err)
	}
	if f.NumRows() != 2 {
		t.Errorf("NumRows() = %d, want 2", f.NumRows())
	}
}
