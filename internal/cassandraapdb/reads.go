package cassandraapdb

import (
	"context"
	"strings"
	"time"

	"github.com/ap-survey/apdb/internal/apdb"
	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/executor"
	"github.com/ap-survey/apdb/internal/frame"
	"github.com/ap-survey/apdb/internal/pixel"
	"github.com/ap-survey/apdb/internal/planner"
	"github.com/ap-survey/apdb/internal/schema"
	"github.com/ap-survey/apdb/internal/session"
)

// recordFanout reports the width of a per-partition query plan, the
// signal internal/obsv.Metrics.RecordFanout exists to watch: a plan that
// fans out to thousands of partitions is the first symptom of a
// pixelization level or time-partition-days mismatch.
func (s *Store) recordFanout(ctx context.Context, table string, n int) {
	s.obs.RecordFanout(ctx, table, n)
	s.log.Debugf("cassandraapdb: %s fanout=%d\n", table, n)
}

// GetDiaObjects returns the latest version of every DiaObject in region,
// read from DiaObjectLast and assembled immediately: object counts per
// partition are small enough that per-partition typed columns are cheap.
func (s *Store) GetDiaObjects(ctx context.Context, region pixel.Region) (*frame.Frame, error) {
	cols := columnNames(s.catalog, schema.TableObjectLast)
	plan := planner.BuildPlan(s.catalog, s.pix, schema.TableObjectLast, region, nil, s.plannerParams(), false)
	if plan.Absent || len(plan.Queries) == 0 {
		return frame.EmptyFrame(cols), nil
	}
	s.recordFanout(ctx, schema.TableObjectLast, len(plan.Queries))

	run := func(ctx context.Context, q planner.PlannedQuery) (*frame.Frame, error) {
		return s.runImmediateQuery(ctx, session.ProfileReadObject, q, cols)
	}
	result, err := executor.ExecuteImmediate(ctx, s.cfg.ReadConcurrency, plan.Queries, run)
	if err != nil {
		s.obs.RecordError(ctx, schema.TableObjectLast, "read")
	}
	return result, err
}

// GetDiaSources returns DiaSource rows in region, bounded by
// read_sources_months, assembled by delayed concatenation since source
// counts can span hundreds of partitions.
func (s *Store) GetDiaSources(ctx context.Context, region pixel.Region, objectIDs []int64, visitTime time.Time) (frame.Result, error) {
	return s.getSources(ctx, schema.TableSource, s.cfg.ReadSourcesMonths, region, objectIDs, visitTime)
}

// GetDiaForcedSources is GetDiaSources for DiaForcedSource, bounded by
// read_forced_sources_months.
func (s *Store) GetDiaForcedSources(ctx context.Context, region pixel.Region, objectIDs []int64, visitTime time.Time) (frame.Result, error) {
	return s.getSources(ctx, schema.TableForcedSource, s.cfg.ReadForcedSourcesMonths, region, objectIDs, visitTime)
}

// historyWindowStart computes the start of a source-read history window
// as exactly historyMonths*30 days in MJD (spec P6, mirroring the
// original's mjd_start = mjd_end - months*30), not a calendar-month
// subtraction: AddDate(0, -N, 0) drifts against months of varying length
// and would disagree with the MJD-based residual filter applied to the
// returned rows. It returns both the time.Time bound (for the planner's
// partition-range lookup) and the MJD bound (for the residual
// FilterByMidPointAfter filter), computed from the same duration so the
// two never drift against each other.
func historyWindowStart(visitTime time.Time, historyMonths int) (start time.Time, mjdStart float64) {
	window := time.Duration(historyMonths*30) * 24 * time.Hour
	start = visitTime.Add(-window)
	mjdStart = pixel.MJD(visitTime) - float64(historyMonths*30)
	return start, mjdStart
}

func (s *Store) getSources(ctx context.Context, table string, historyMonths int, region pixel.Region, objectIDs []int64, visitTime time.Time) (frame.Result, error) {
	if historyMonths <= 0 {
		return apdb.AbsentResult{}, nil
	}

	start, mjdStart := historyWindowStart(visitTime, historyMonths)
	window := &planner.TimeWindow{Start: start, End: visitTime}
	plan := planner.BuildPlan(s.catalog, s.pix, table, region, window, s.plannerParams(), false)
	cols := columnNames(s.catalog, table)
	if plan.Absent {
		return apdb.AbsentResult{}, nil
	}
	if len(plan.Queries) == 0 {
		return frame.NewRowBuffer(cols), nil
	}
	s.recordFanout(ctx, table, len(plan.Queries))

	run := func(ctx context.Context, q planner.PlannedQuery) (*frame.RowBuffer, error) {
		return s.runDelayedQuery(ctx, session.ProfileReadSource, q, cols)
	}
	result, err := executor.ExecuteDelayed(ctx, s.cfg.ReadConcurrency, plan.Queries, run)
	if err != nil {
		s.obs.RecordError(ctx, table, "read")
		return nil, err
	}

	if len(objectIDs) > 0 {
		result = executor.FilterByObjectIDs(result, objectIDs)
	}
	result = executor.FilterByMidPointAfter(result, mjdStart)
	return result, nil
}

// GetSSObjects returns the full solar-system object catalog: one
// unpartitioned table, fetched with a single unconditional select.
func (s *Store) GetSSObjects(ctx context.Context) (*frame.Frame, error) {
	cols := columnNames(s.catalog, schema.TableSSObject)
	cql := "SELECT " + strings.Join(quoteAll(cols), ", ") + ` FROM "` + s.catalog.TableName(schema.TableSSObject) + `"`
	rows, err := s.fetchRows(ctx, session.ProfileReadObject, cql, nil)
	if err != nil {
		return nil, err
	}
	return assembleFrame(cols, rows)
}

func (s *Store) runImmediateQuery(ctx context.Context, profile string, q planner.PlannedQuery, cols []string) (*frame.Frame, error) {
	cql, args := buildSelect(q.Table, cols, q.Predicates)
	start := time.Now()
	rows, err := s.fetchRows(ctx, profile, cql, args)
	s.obs.RecordPartitionLatency(ctx, q.Table, profile, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, err
	}
	return assembleFrame(cols, rows)
}

func (s *Store) runDelayedQuery(ctx context.Context, profile string, q planner.PlannedQuery, cols []string) (*frame.RowBuffer, error) {
	cql, args := buildSelect(q.Table, cols, q.Predicates)
	start := time.Now()
	rows, err := s.fetchRows(ctx, profile, cql, args)
	s.obs.RecordPartitionLatency(ctx, q.Table, profile, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, err
	}
	buf := frame.NewRowBuffer(cols)
	for _, row := range rows {
		vals := make([]frame.Value, len(cols))
		for i, c := range cols {
			vals[i] = row[c]
		}
		buf.Append(vals)
	}
	return buf, nil
}

// fetchRows runs one single-partition CQL select and drains it into
// name -> value maps via gocql's MapScan, which sidesteps needing a
// static destination type per column (the column set differs per table).
func (s *Store) fetchRows(ctx context.Context, profile string, cql string, args []any) ([]map[string]any, error) {
	iter := s.cluster.Query(ctx, profile, cql, args...).Iter()
	var rows []map[string]any
	row := map[string]any{}
	for iter.MapScan(row) {
		rows = append(rows, row)
		row = map[string]any{}
	}
	if err := iter.Close(); err != nil {
		return nil, apdberr.WrapDriverError("cassandraapdb.fetchRows", err)
	}
	return rows, nil
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

func buildSelect(table string, cols []string, preds []planner.Predicate) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(quoteAll(cols), ", "))
	b.WriteString(` FROM "`)
	b.WriteString(table)
	b.WriteString(`"`)

	var args []any
	if len(preds) > 0 {
		b.WriteString(" WHERE ")
		clauses := make([]string, len(preds))
		for i, p := range preds {
			clauses[i] = p.Clause
			args = append(args, p.Args...)
		}
		b.WriteString(strings.Join(clauses, " AND "))
	}
	return b.String(), args
}

func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = `"` + c + `"`
	}
	return out
}
