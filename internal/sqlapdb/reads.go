package sqlapdb

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/frame"
	"github.com/ap-survey/apdb/internal/pixel"
	"github.com/ap-survey/apdb/internal/schema"
)

// GetDiaObjects has no partitioner to push region into a WHERE clause:
// it scans DiaObjectLast in full and filters client-side with
// region.Contains, which is the reference backend's explicit tradeoff
// for not carrying a planner/executor.
func (s *Store) GetDiaObjects(ctx context.Context, region pixel.Region) (*frame.Frame, error) {
	cols := columnNames(s.catalog, schema.TableObjectLast)
	rows, err := s.queryAll(ctx, s.catalog.TableName(schema.TableObjectLast), cols)
	if err != nil {
		return nil, err
	}
	filtered := filterByRegion(rows, region)
	return assembleFrame(cols, filtered)
}

func (s *Store) GetDiaSources(ctx context.Context, region pixel.Region, objectIDs []int64, visitTime time.Time) (frame.Result, error) {
	return s.getSources(ctx, schema.TableSource, region, objectIDs, visitTime)
}

func (s *Store) GetDiaForcedSources(ctx context.Context, region pixel.Region, objectIDs []int64, visitTime time.Time) (frame.Result, error) {
	return s.getSources(ctx, schema.TableForcedSource, region, objectIDs, visitTime)
}

// getSources has no history-window config of its own (read_*_months is
// a Cassandra partition-pruning knob; this backend has no partitions to
// prune), so it never returns apdb.AbsentResult: every call is answered
// from the full table, filtered by region and, when given, objectIDs.
func (s *Store) getSources(ctx context.Context, table string, region pixel.Region, objectIDs []int64, visitTime time.Time) (frame.Result, error) {
	cols := columnNames(s.catalog, table)
	rows, err := s.queryAll(ctx, s.catalog.TableName(table), cols)
	if err != nil {
		return nil, err
	}
	rows = filterByRegion(rows, region)
	if len(objectIDs) > 0 {
		rows = filterByObjectIDs(rows, objectIDs)
	}
	return assembleFrame(cols, rows)
}

// GetSSObjects returns the full solar-system object catalog.
func (s *Store) GetSSObjects(ctx context.Context) (*frame.Frame, error) {
	cols := columnNames(s.catalog, schema.TableSSObject)
	rows, err := s.queryAll(ctx, s.catalog.TableName(schema.TableSSObject), cols)
	if err != nil {
		return nil, err
	}
	return assembleFrame(cols, rows)
}

func (s *Store) queryAll(ctx context.Context, table string, cols []string) ([]map[string]any, error) {
	cql := fmt.Sprintf("SELECT %s FROM `%s`", backtickJoin(cols), table)
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, cql)
	s.obs.RecordPartitionLatency(ctx, table, "full_scan", float64(time.Since(start).Milliseconds()))
	if err != nil {
		s.obs.RecordError(ctx, table, "read")
		return nil, apdberr.WrapDriverError("sqlapdb.queryAll", err)
	}
	defer rows.Close()

	out := make([]map[string]any, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apdberr.WrapDriverError("sqlapdb.queryAll.scan", err)
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			m[c] = vals[i]
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apdberr.WrapDriverError("sqlapdb.queryAll.rows", err)
	}
	return out, nil
}

func filterByRegion(rows []map[string]any, region pixel.Region) []map[string]any {
	if region == nil {
		return rows
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		ra, raOK := toFloat64(row["ra"])
		dec, decOK := toFloat64(row["decl"])
		if !raOK || !decOK {
			continue
		}
		dir := pixel.DirectionFromRaDec(ra*math.Pi/180, dec*math.Pi/180)
		if region.Contains(dir) {
			out = append(out, row)
		}
	}
	return out
}

func filterByObjectIDs(rows []map[string]any, ids []int64) []map[string]any {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		id, ok := toInt64(row["diaObjectId"])
		if !ok {
			continue
		}
		if _, member := set[id]; member {
			out = append(out, row)
		}
	}
	return out
}

func assembleFrame(cols []string, rows []map[string]any) (*frame.Frame, error) {
	typed := make([]frame.TypedColumn, len(cols))
	for i, c := range cols {
		values := make([]frame.Value, len(rows))
		for r, row := range rows {
			values[r] = row[c]
		}
		typed[i] = frame.TypedColumn{Name: c, Values: values}
	}
	return frame.NewFrame(typed)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
