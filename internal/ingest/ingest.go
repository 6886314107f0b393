// Package ingest implements the six-step write path from a caller-supplied
// set of DiaObject/DiaSource/DiaForcedSource frames to ordered, partition-key
// annotated rows ready for a driver-specific writer: derive apdb_part for
// objects, propagate it to sources, derive apdb_time_part from visit time,
// append the upsert/history bookkeeping columns, validate, and normalize
// values. Nothing here talks to a driver directly; Writer is the seam a
// backend facade implements.
package ingest

import (
	"context"
	"math"
	"time"

	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/frame"
	"github.com/ap-survey/apdb/internal/pixel"
	"github.com/ap-survey/apdb/internal/schema"
)

// Params carries the subset of engine configuration ingest needs.
type Params struct {
	RaColumn, DeclColumn string
	TimePartitionTables  bool
	TimePartitionDays    int
	// TimePartitionStart and TimePartitionEnd bound the visits a
	// time-partition-tables deployment will accept; nil disables the
	// check (in-row mode carries no such restriction).
	TimePartitionStart, TimePartitionEnd *time.Time
}

// Row is one table row as column name/value pairs, in the order the
// catalog's column list puts them.
type Row struct {
	Columns []string
	Values  []frame.Value
}

// TableRows is every row destined for one physical table.
type TableRows struct {
	Table string
	Rows  []Row
}

// Writer is the minimal contract a backend facade must satisfy to receive
// ingest's output. A single row becomes a single prepared or inline INSERT;
// backends that want a batched statement build it themselves from the
// successive InsertRow calls for one TableRows group.
type Writer interface {
	InsertRow(ctx context.Context, table string, columns []string, values []frame.Value) error
}

// Store runs the full ingest pipeline and issues the writes in the order
// spec.md §5 requires: DiaObjectLast, then DiaObject, then DiaSource, then
// DiaForcedSource, so readers never observe a history write without its
// corresponding latest-version write.
func Store(ctx context.Context, cat *schema.Catalog, pix pixel.Pixelizer, params Params, visitTime time.Time, objects, sources, forcedSources *frame.Frame, w Writer) error {
	writes, err := BuildWrites(cat, pix, params, visitTime, objects, sources, forcedSources)
	if err != nil {
		return err
	}
	for _, tr := range writes {
		for _, row := range tr.Rows {
			if err := w.InsertRow(ctx, tr.Table, row.Columns, row.Values); err != nil {
				return apdberr.WrapDriverError("ingest.Store", err)
			}
		}
	}
	return nil
}

// BuildWrites runs steps 1-5 of the ingest pipeline (partition derivation,
// propagation, time-part derivation, extra columns, validation) and returns
// the rows ready to write, grouped and ordered by target table. It performs
// no I/O, so it can be exercised without a live writer.
func BuildWrites(cat *schema.Catalog, pix pixel.Pixelizer, params Params, visitTime time.Time, objects, sources, forcedSources *frame.Frame) ([]TableRows, error) {
	if err := checkTimeWindow(params, visitTime); err != nil {
		return nil, err
	}

	var out []TableRows

	var objectParts map[int64]int64
	if objects != nil && objects.NumRows() > 0 {
		parted, partMap, err := annotateObjectParts(pix, params, objects)
		if err != nil {
			return nil, err
		}
		objectParts = partMap

		timePart := pixel.TimePartition(visitTime, params.TimePartitionDays)

		lastObjectRows, err := buildRows(cat, schema.TableObjectLast, parted, map[string]frame.Value{
			"lastNonForcedSource": visitTime,
			"validityStart":       visitTime,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, TableRows{Table: cat.TableName(schema.TableObjectLast), Rows: lastObjectRows})

		extra := map[string]frame.Value{"validityStart": visitTime}
		if !params.TimePartitionTables {
			extra["apdb_time_part"] = timePart
		}
		objectRows, err := buildRows(cat, schema.TableObject, parted, extra)
		if err != nil {
			return nil, err
		}
		objTable := cat.TableName(schema.TableObject)
		if params.TimePartitionTables && cat.TimePartitionedTables(schema.TableObject) {
			objTable = cat.PhysicalTableName(schema.TableObject, timePart)
		}
		out = append(out, TableRows{Table: objTable, Rows: objectRows})
	}

	timePart := pixel.TimePartition(visitTime, params.TimePartitionDays)

	if sources != nil && sources.NumRows() > 0 {
		rows, table, err := buildPropagatedRows(cat, pix, params, schema.TableSource, objectParts, sources, timePart)
		if err != nil {
			return nil, err
		}
		out = append(out, TableRows{Table: table, Rows: rows})
	}

	if forcedSources != nil && forcedSources.NumRows() > 0 {
		rows, table, err := buildPropagatedRows(cat, pix, params, schema.TableForcedSource, objectParts, forcedSources, timePart)
		if err != nil {
			return nil, err
		}
		out = append(out, TableRows{Table: table, Rows: rows})
	}

	return out, nil
}

func checkTimeWindow(params Params, visitTime time.Time) error {
	if !params.TimePartitionTables {
		return nil
	}
	if params.TimePartitionStart != nil && visitTime.Before(*params.TimePartitionStart) {
		return apdberr.NewDataError("ingest.Store", "visit_time %s precedes time_partition_start %s", visitTime, *params.TimePartitionStart)
	}
	if params.TimePartitionEnd != nil && visitTime.After(*params.TimePartitionEnd) {
		return apdberr.NewDataError("ingest.Store", "visit_time %s is after time_partition_end %s", visitTime, *params.TimePartitionEnd)
	}
	return nil
}

// annotateObjectParts computes apdb_part for every object row from its
// (ra, decl) and returns a working copy of the frame with apdb_part
// overwritten, plus the diaObjectId -> apdb_part map used to propagate
// partitions to sources and forced sources.
func annotateObjectParts(pix pixel.Pixelizer, params Params, objects *frame.Frame) (*frame.Frame, map[int64]int64, error) {
	cols := objects.Columns()
	n := objects.NumRows()

	idCol, ok := findColumn(objects, "diaObjectId")
	if !ok {
		return nil, nil, apdberr.NewDataError("ingest.annotateObjectParts", "DiaObject frame is missing diaObjectId")
	}

	partMap := make(map[int64]int64, n)
	parts := make([]frame.Value, n)
	for r := 0; r < n; r++ {
		id, ok := toInt64(idCol.Values[r])
		if !ok {
			return nil, nil, apdberr.NewDataError("ingest.annotateObjectParts", "row %d: diaObjectId is not an integer", r)
		}
		part, err := partFromRowCoords(pix, params, objects, r)
		if err != nil {
			return nil, nil, err
		}
		partMap[id] = int64(part)
		parts[r] = int64(part)
	}

	out := make([]frame.TypedColumn, 0, len(cols)+1)
	seenPart := false
	for _, c := range objects.ColumnsTyped() {
		if c.Name == "apdb_part" {
			out = append(out, frame.TypedColumn{Name: "apdb_part", Values: parts})
			seenPart = true
			continue
		}
		out = append(out, c)
	}
	if !seenPart {
		out = append(out, frame.TypedColumn{Name: "apdb_part", Values: parts})
	}

	rebuilt, err := frame.NewFrame(out)
	if err != nil {
		return nil, nil, err
	}
	return rebuilt, partMap, nil
}

// buildPropagatedRows assigns apdb_part to each source/forced-source row
// from the object partition map (diaObjectId == 0 rows take their own
// ra/dec instead), then derives apdb_time_part and validates required
// columns, returning rows for the single physical table this visit writes.
func buildPropagatedRows(cat *schema.Catalog, pix pixel.Pixelizer, params Params, table string, objectParts map[int64]int64, rows *frame.Frame, timePart int64) ([]Row, string, error) {
	idCol, ok := findColumn(rows, "diaObjectId")
	if !ok {
		return nil, "", apdberr.NewDataError("ingest.buildPropagatedRows", "%s frame is missing diaObjectId", table)
	}

	n := rows.NumRows()
	parts := make([]frame.Value, n)
	for r := 0; r < n; r++ {
		id, ok := toInt64(idCol.Values[r])
		if !ok {
			return nil, "", apdberr.NewDataError("ingest.buildPropagatedRows", "%s row %d: diaObjectId is not an integer", table, r)
		}
		if id == 0 {
			part, err := partFromRowCoords(pix, params, rows, r)
			if err != nil {
				return nil, "", err
			}
			parts[r] = int64(part)
			continue
		}
		part, ok := objectParts[id]
		if !ok {
			return nil, "", apdberr.NewDataError("ingest.buildPropagatedRows", "%s row %d references unknown diaObjectId %d", table, r, id)
		}
		parts[r] = part
	}

	extra := map[string]frame.Value{}
	if !params.TimePartitionTables {
		extra["apdb_time_part"] = timePart
	}

	built, err := buildRowsWithColumn(cat, table, rows, "apdb_part", parts, extra)
	if err != nil {
		return nil, "", err
	}

	phys := cat.TableName(table)
	if cat.TimePartitionedTables(table) {
		phys = cat.PhysicalTableName(table, timePart)
	}
	return built, phys, nil
}

func partFromRowCoords(pix pixel.Pixelizer, params Params, f *frame.Frame, row int) (uint64, error) {
	raCol := params.RaColumn
	if raCol == "" {
		raCol = "ra"
	}
	decCol := params.DeclColumn
	if decCol == "" {
		decCol = "decl"
	}
	ra, ok := toFloat64(f.At(row, raCol))
	if !ok {
		return 0, apdberr.NewDataError("ingest.partFromRowCoords", "row %d: missing or non-numeric %s", row, raCol)
	}
	dec, ok := toFloat64(f.At(row, decCol))
	if !ok {
		return 0, apdberr.NewDataError("ingest.partFromRowCoords", "row %d: missing or non-numeric %s", row, decCol)
	}
	dir := pixel.DirectionFromRaDec(ra*math.Pi/180, dec*math.Pi/180)
	return pix.Pixel(dir), nil
}

// buildRows assembles rows for a logical table from a frame plus constant
// extra columns (same value on every row, e.g. validityStart), validating
// that every partition/clustering column the catalog names is present.
func buildRows(cat *schema.Catalog, table string, f *frame.Frame, extra map[string]frame.Value) ([]Row, error) {
	return buildRowsWithColumn(cat, table, f, "", nil, extra)
}

// buildRowsWithColumn is buildRows plus an optional per-row override column
// (overrideName/overrideValues), used to inject the propagated apdb_part
// values that don't come from the caller's frame.
func buildRowsWithColumn(cat *schema.Catalog, table string, f *frame.Frame, overrideName string, overrideValues []frame.Value, extra map[string]frame.Value) ([]Row, error) {
	required := append(append([]string{}, cat.PartitionColumns(table)...), cat.ClusteringColumns(table)...)
	cols := f.Columns()
	present := make(map[string]bool, len(cols)+len(extra)+1)
	for _, c := range cols {
		present[c] = true
	}
	for name := range extra {
		present[name] = true
	}
	if overrideName != "" {
		present[overrideName] = true
	}
	for _, req := range required {
		if !present[req] {
			return nil, apdberr.NewDataError("ingest.buildRows", "%s: missing required column %q", table, req)
		}
	}

	n := f.NumRows()
	rows := make([]Row, n)
	for r := 0; r < n; r++ {
		names := make([]string, 0, len(cols)+len(extra)+1)
		values := make([]frame.Value, 0, len(cols)+len(extra)+1)
		for _, c := range cols {
			if c == overrideName {
				continue
			}
			if _, isExtra := extra[c]; isExtra {
				continue
			}
			names = append(names, c)
			values = append(values, normalize(f.At(r, c)))
		}
		if overrideName != "" {
			names = append(names, overrideName)
			values = append(values, normalize(overrideValues[r]))
		}
		for name, v := range extra {
			if name == overrideName {
				continue
			}
			names = append(names, name)
			values = append(values, normalize(v))
		}
		rows[r] = Row{Columns: names, Values: values}
	}
	return rows, nil
}

// normalize applies the value normalization step 5 requires: non-finite
// floats become null, everything else (including time.Time, which a
// backend's writer renders to its own wire timestamp type) passes through.
func normalize(v frame.Value) frame.Value {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
	case float32:
		f := float64(n)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
	}
	return v
}

func findColumn(f *frame.Frame, name string) (frame.TypedColumn, bool) {
	for _, c := range f.ColumnsTyped() {
		if c.Name == name {
			return c, true
		}
	}
	return frame.TypedColumn{}, false
}

func toInt64(v frame.Value) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(v frame.Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
