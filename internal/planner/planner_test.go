package planner

import (
	"testing"
	"time"

	"github.com/ap-survey/apdb/internal/pixel"
	"github.com/ap-survey/apdb/internal/schema"
)

func testCatalog(t *testing.T, timePartitionTables bool) *schema.Catalog {
	t.Helper()
	cat, err := schema.Load(schema.Options{TimePartitionTables: timePartitionTables, TimePartitionDays: 30})
	if err != nil {
		t.Fatalf("schema.Load: %v", err)
	}
	return cat
}

func testPixelizer(t *testing.T) pixel.Pixelizer {
	t.Helper()
	p, err := pixel.New(pixel.SchemeHTM, 6)
	if err != nil {
		t.Fatalf("pixel.New: %v", err)
	}
	return p
}

func TestBuildPlanAbsent(t *testing.T) {
	cat := testCatalog(t, true)
	pix := testPixelizer(t)
	region := pixel.Circle{Center: pixel.NewDirection(1, 1, -1), RadiusRad: 0.025}
	result := BuildPlan(cat, pix, schema.TableSource, region, nil, Params{}, true)
	if !result.Absent {
		t.Error("BuildPlan with absent=true: want Result.Absent, got false")
	}
	if len(result.Queries) != 0 {
		t.Errorf("BuildPlan with absent=true: want no queries, got %d", len(result.Queries))
	}
}

func TestBuildPlanValidRegionIsNotAbsent(t *testing.T) {
	cat := testCatalog(t, true)
	pix := testPixelizer(t)
	// A small valid region with absent=false yields a plan that is not
	// marked Absent.
	region := pixel.Circle{Center: pixel.NewDirection(1, 0, 0), RadiusRad: 0.001}
	result := BuildPlan(cat, pix, schema.TableObject, region, nil, Params{PartPixMaxRanges: 64}, false)
	if result.Absent {
		t.Error("BuildPlan with a valid region: want Absent=false")
	}
}

func TestBuildPlanObjectTableHasNoTimePartitionedPhysicalTables(t *testing.T) {
	cat := testCatalog(t, true)
	pix := testPixelizer(t)
	region := pixel.Circle{Center: pixel.NewDirection(1, 1, -1), RadiusRad: 0.1}
	result := BuildPlan(cat, pix, schema.TableObject, region, nil, Params{PartPixMaxRanges: 64}, false)
	for _, q := range result.Queries {
		if q.Table != cat.TableName(schema.TableObject) {
			t.Errorf("DiaObject query targets %q, want %q (no time-partition suffix)", q.Table, cat.TableName(schema.TableObject))
		}
	}
}

func TestBuildPlanSourceTableWithWindowFansOutOverTimePartitions(t *testing.T) {
	cat := testCatalog(t, true)
	pix := testPixelizer(t)
	region := pixel.Circle{Center: pixel.NewDirection(1, 1, -1), RadiusRad: 0.1}
	window := &TimeWindow{
		Start: pixel.PartitionZeroEpoch.Add(365 * 24 * time.Hour),
		End:   pixel.PartitionZeroEpoch.Add(395 * 24 * time.Hour),
	}
	result := BuildPlan(cat, pix, schema.TableSource, region, window, Params{PartPixMaxRanges: 64, TimePartitionDays: 30}, false)
	if len(result.Queries) == 0 {
		t.Fatal("expected at least one query spanning the time window")
	}
	seen := map[string]bool{}
	for _, q := range result.Queries {
		seen[q.Table] = true
		if len(q.Predicates) != 1 {
			t.Errorf("time-partition-tables query has %d predicates, want 1 (spatial only)", len(q.Predicates))
		}
	}
	if len(seen) < 2 {
		t.Errorf("expected queries across multiple physical time-partition tables, saw %d distinct tables", len(seen))
	}
}

func TestBuildPlanInRowTimePartitionAddsColumnPredicate(t *testing.T) {
	cat := testCatalog(t, false)
	pix := testPixelizer(t)
	region := pixel.Circle{Center: pixel.NewDirection(1, 1, -1), RadiusRad: 0.1}
	window := &TimeWindow{
		Start: pixel.PartitionZeroEpoch.Add(365 * 24 * time.Hour),
		End:   pixel.PartitionZeroEpoch.Add(395 * 24 * time.Hour),
	}
	result := BuildPlan(cat, pix, schema.TableSource, region, window, Params{PartPixMaxRanges: 64, TimePartitionDays: 30}, false)
	for _, q := range result.Queries {
		if q.Table != cat.TableName(schema.TableSource) {
			t.Errorf("in-row mode query targets %q, want single base table %q", q.Table, cat.TableName(schema.TableSource))
		}
		if len(q.Predicates) != 2 {
			t.Errorf("in-row mode query has %d predicates, want 2 (spatial + temporal)", len(q.Predicates))
		}
	}
}

// TestBuildPlanInRowQueryPerTimePartEmitsOneQueryPerPartition covers the
// query_per_time_part=true branch: a window spanning multiple in-row time
// partitions must produce one query per partition (cross-producted with
// the spatial predicates), not a single query ANDing every
// apdb_time_part value together, which would never match any row.
func TestBuildPlanInRowQueryPerTimePartEmitsOneQueryPerPartition(t *testing.T) {
	cat := testCatalog(t, false)
	pix := testPixelizer(t)
	region := pixel.Circle{Center: pixel.NewDirection(1, 1, -1), RadiusRad: 0.1}
	window := &TimeWindow{
		Start: pixel.PartitionZeroEpoch.Add(365 * 24 * time.Hour),
		End:   pixel.PartitionZeroEpoch.Add(395 * 24 * time.Hour),
	}
	params := Params{PartPixMaxRanges: 64, TimePartitionDays: 30, QueryPerTimePart: true}
	result := BuildPlan(cat, pix, schema.TableSource, region, window, params, false)

	lo, hi := pixel.TimePartitionRange(window.Start, window.End, params.TimePartitionDays)
	wantTimeParts := int(hi-lo+1)
	if wantTimeParts < 2 {
		t.Fatalf("test window spans only %d time partitions, want >= 2", wantTimeParts)
	}

	seenTimeParts := map[any]bool{}
	for _, q := range result.Queries {
		if len(q.Predicates) != 2 {
			t.Fatalf("in-row query_per_time_part query has %d predicates, want 2 (spatial + single temporal)", len(q.Predicates))
		}
		tp := q.Predicates[1]
		if tp.Clause != "apdb_time_part = ?" {
			t.Fatalf("temporal predicate clause = %q, want %q", tp.Clause, "apdb_time_part = ?")
		}
		seenTimeParts[tp.Args[0]] = true
	}
	if len(seenTimeParts) != wantTimeParts {
		t.Errorf("saw %d distinct apdb_time_part values across queries, want %d", len(seenTimeParts), wantTimeParts)
	}
}
