package ingest

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/frame"
	"github.com/ap-survey/apdb/internal/pixel"
	"github.com/ap-survey/apdb/internal/schema"
)

func testCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	cat, err := schema.Load(schema.Options{TimePartitionTables: true, TimePartitionDays: 30})
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

func objectsFrame(t *testing.T, ids []int64, ras, decs []float64) *frame.Frame {
	t.Helper()
	idVals := make([]frame.Value, len(ids))
	raVals := make([]frame.Value, len(ids))
	decVals := make([]frame.Value, len(ids))
	for i := range ids {
		idVals[i] = ids[i]
		raVals[i] = ras[i]
		decVals[i] = decs[i]
	}
	f, err := frame.NewFrame([]frame.TypedColumn{
		{Name: "diaObjectId", Values: idVals},
		{Name: "ra", Values: raVals},
		{Name: "decl", Values: decVals},
	})
	if err != nil {
		t.Fatalf("frame.NewFrame: %v", err)
	}
	return f
}

func sourcesFrame(t *testing.T, sourceIDs, objectIDs []int64, ras, decs, mids []float64) *frame.Frame {
	t.Helper()
	n := len(sourceIDs)
	srcVals := make([]frame.Value, n)
	objVals := make([]frame.Value, n)
	raVals := make([]frame.Value, n)
	decVals := make([]frame.Value, n)
	midVals := make([]frame.Value, n)
	for i := 0; i < n; i++ {
		srcVals[i] = sourceIDs[i]
		objVals[i] = objectIDs[i]
		raVals[i] = ras[i]
		decVals[i] = decs[i]
		midVals[i] = mids[i]
	}
	f, err := frame.NewFrame([]frame.TypedColumn{
		{Name: "diaSourceId", Values: srcVals},
		{Name: "diaObjectId", Values: objVals},
		{Name: "ra", Values: raVals},
		{Name: "decl", Values: decVals},
		{Name: "midPointTai", Values: midVals},
	})
	if err != nil {
		t.Fatalf("frame.NewFrame: %v", err)
	}
	return f
}

func testParams() Params {
	return Params{RaColumn: "ra", DeclColumn: "decl", TimePartitionTables: true, TimePartitionDays: 30}
}

func TestBuildWritesOrdersTablesObjectLastThenObjectThenSourceThenForced(t *testing.T) {
	cat := testCatalog(t)
	pix := testPixelizer(t)
	objects := objectsFrame(t, []int64{1}, []float64{10}, []float64{20})
	sources := sourcesFrame(t, []int64{100}, []int64{1}, []float64{10}, []float64{20}, []float64{59000})
	forced := sourcesFrame(t, []int64{200}, []int64{1}, []float64{10}, []float64{20}, []float64{59000})

	writes, err := BuildWrites(cat, pix, testParams(), time.Now(), objects, sources, forced)
	if err != nil {
		t.Fatalf("BuildWrites: %v", err)
	}
	if len(writes) != 4 {
		t.Fatalf("len(writes) = %d, want 4", len(writes))
	}
	wantPrefixes := []string{"DiaObjectLast", "DiaObject", "DiaSource", "DiaForcedSource"}
	for i, want := range wantPrefixes {
		if writes[i].Table == "" {
			t.Fatalf("writes[%d].Table is empty", i)
		}
		// DiaObject and DiaSource/DiaForcedSource may carry a time-partition
		// suffix; DiaObjectLast never does.
		if want == "DiaObjectLast" && writes[i].Table != want {
			t.Errorf("writes[0].Table = %q, want %q", writes[i].Table, want)
		}
		if !strings.HasPrefix(writes[i].Table, want) {
			t.Errorf("writes[%d].Table = %q, want prefix %q", i, writes[i].Table, want)
		}
	}
}

func TestBuildWritesDerivesObjectPartition(t *testing.T) {
	cat := testCatalog(t)
	pix := testPixelizer(t)
	objects := objectsFrame(t, []int64{1}, []float64{10}, []float64{20})

	writes, err := BuildWrites(cat, pix, testParams(), time.Now(), objects, nil, nil)
	if err != nil {
		t.Fatalf("BuildWrites: %v", err)
	}

	wantPart := int64(pix.Pixel(pixel.DirectionFromRaDec(10*3.141592653589793/180, 20*3.141592653589793/180)))

	for _, tr := range writes {
		for _, row := range tr.Rows {
			got := columnValue(t, row, "apdb_part")
			if got != wantPart {
				t.Errorf("table %s: apdb_part = %v, want %v", tr.Table, got, wantPart)
			}
		}
	}
}

func TestBuildWritesPropagatesPartitionToSources(t *testing.T) {
	cat := testCatalog(t)
	pix := testPixelizer(t)
	objects := objectsFrame(t, []int64{1}, []float64{10}, []float64{20})
	sources := sourcesFrame(t, []int64{100}, []int64{1}, []float64{99}, []float64{-40}, []float64{59000})

	writes, err := BuildWrites(cat, pix, testParams(), time.Now(), objects, sources, nil)
	if err != nil {
		t.Fatalf("BuildWrites: %v", err)
	}

	wantPart := int64(pix.Pixel(pixel.DirectionFromRaDec(10*3.141592653589793/180, 20*3.141592653589793/180)))

	found := false
	for _, tr := range writes {
		if tr.Table != cat.PhysicalTableName(schema.TableSource, pixel.TimePartition(time.Now(), 30)) {
			continue
		}
		found = true
		for _, row := range tr.Rows {
			got := columnValue(t, row, "apdb_part")
			if got != wantPart {
				t.Errorf("source row apdb_part = %v, want propagated object partition %v", got, wantPart)
			}
		}
	}
	if !found {
		t.Fatal("no rows produced for the DiaSource physical table")
	}
}

func TestBuildWritesSolarSystemSourceUsesOwnCoordinates(t *testing.T) {
	cat := testCatalog(t)
	pix := testPixelizer(t)
	objects := objectsFrame(t, []int64{1}, []float64{10}, []float64{20})
	sources := sourcesFrame(t, []int64{100}, []int64{0}, []float64{200}, []float64{-60}, []float64{59000})

	writes, err := BuildWrites(cat, pix, testParams(), time.Now(), objects, sources, nil)
	if err != nil {
		t.Fatalf("BuildWrites: %v", err)
	}

	wantPart := int64(pix.Pixel(pixel.DirectionFromRaDec(200*3.141592653589793/180, -60*3.141592653589793/180)))

	for _, tr := range writes {
		if tr.Table != cat.PhysicalTableName(schema.TableSource, pixel.TimePartition(time.Now(), 30)) {
			continue
		}
		for _, row := range tr.Rows {
			got := columnValue(t, row, "apdb_part")
			if got != wantPart {
				t.Errorf("solar-system source apdb_part = %v, want own-coordinate partition %v", got, wantPart)
			}
		}
	}
}

func TestBuildWritesUnknownObjectIdIsDataError(t *testing.T) {
	cat := testCatalog(t)
	pix := testPixelizer(t)
	objects := objectsFrame(t, []int64{1}, []float64{10}, []float64{20})
	forced := sourcesFrame(t, []int64{200}, []int64{999}, []float64{10}, []float64{20}, []float64{59000})

	_, err := BuildWrites(cat, pix, testParams(), time.Now(), objects, nil, forced)
	if err == nil {
		t.Fatal("BuildWrites: want error for unknown diaObjectId, got nil")
	}
	if !apdberr.IsDataError(err) {
		t.Errorf("BuildWrites error = %v, want DataError", err)
	}
}

func TestBuildWritesRejectsVisitBeforeTimePartitionStart(t *testing.T) {
	cat := testCatalog(t)
	pix := testPixelizer(t)
	objects := objectsFrame(t, []int64{1}, []float64{10}, []float64{20})

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	params := testParams()
	params.TimePartitionStart = &start

	_, err := BuildWrites(cat, pix, params, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), objects, nil, nil)
	if err == nil {
		t.Fatal("BuildWrites: want error for visit before time_partition_start, got nil")
	}
	if !apdberr.IsDataError(err) {
		t.Errorf("BuildWrites error = %v, want DataError", err)
	}
}

func TestNormalizeNonFiniteFloatBecomesNil(t *testing.T) {
	if got := normalize(math.Inf(1)); got != nil {
		t.Errorf("normalize(+Inf) = %v, want nil", got)
	}
	if got := normalize(math.NaN()); got != nil {
		t.Errorf("normalize(NaN) = %v, want nil", got)
	}
	if got := normalize(3.5); got != 3.5 {
		t.Errorf("normalize(3.5) = %v, want unchanged", got)
	}
}

func columnValue(t *testing.T, row Row, col string) frame.Value {
	t.Helper()
	for i, c := range row.Columns {
		if c == col {
			return row.Values[i]
		}
	}
	t.Fatalf("row missing column %q (have %v)", col, row.Columns)
	return nil
}
