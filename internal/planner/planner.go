// Package planner translates a logical read (region, optional object-id
// filter, optional time window, target table) into a list of
// single-partition physical queries whose WHERE clause touches only
// partition-key columns.
package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/ap-survey/apdb/internal/pixel"
	"github.com/ap-survey/apdb/internal/schema"
)

// TimeWindow is an inclusive [Start, End] range in TAI, used to bound
// temporal partitions for source/forced-source reads.
type TimeWindow struct {
	Start, End time.Time
}

// Predicate is one WHERE-clause fragment with its bind arguments. Only
// partition-key predicates are ever produced by this package: object-id
// membership and exact time bounds are residual filters applied by the
// executor after rows come back.
type Predicate struct {
	Clause string
	Args   []any
}

// PlannedQuery is one independent, single-partition CQL statement: a
// physical table name plus the predicates to AND together.
type PlannedQuery struct {
	Table      string
	Predicates []Predicate
}

// Result is the planner's output. Absent distinguishes "this table's
// history window is disabled" (read_sources_months == 0) from an empty
// plan produced by a region with no intersecting pixels — the former
// must surface to callers as a sentinel, not as zero queries that read
// as "nothing matched."
type Result struct {
	Absent  bool
	Queries []PlannedQuery
}

// Params carries the subset of engine configuration the planner needs,
// decoupled from the full config.Config so this package stays a pure
// function layer.
type Params struct {
	QueryPerSpatialPart bool
	QueryPerTimePart    bool
	PartPixMaxRanges    int
	TimePartitionDays   int
}

// BuildPlan runs the planner algorithm from spec §4.4. window is nil for
// reads that carry no temporal component (getDiaObjects); absent is true
// when the caller has already determined the history window is disabled
// (read_sources_months == 0) — BuildPlan returns Result{Absent: true}
// immediately without touching the pixelizer.
func BuildPlan(cat *schema.Catalog, pix pixel.Pixelizer, table string, region pixel.Region, window *TimeWindow, params Params, absent bool) Result {
	if absent {
		return Result{Absent: true}
	}

	spatialPreds := spatialPredicates(pix, region, params)
	if len(spatialPreds) == 0 {
		return Result{} // empty pixel set: empty plan, not an error
	}

	if !cat.TimePartitionedTables(table) || window == nil {
		phys := cat.TableName(table)
		if window == nil {
			queries := make([]PlannedQuery, 0, len(spatialPreds))
			for _, sp := range spatialPreds {
				queries = append(queries, PlannedQuery{Table: phys, Predicates: []Predicate{sp}})
			}
			return Result{Queries: queries}
		}

		// temporalColumnPredicate returns one apdb_time_part predicate per
		// covered partition in query_per_time_part mode: each must become
		// its own single-partition query, cross-producted against the
		// spatial predicates, mirroring the per-spatial-part branch below
		// and the original's per-temporal-predicate query loop. ANDing
		// them into one query's WHERE clause (as query_per_spatial_part
		// does for the IN-list case) would instead match zero rows, since
		// apdb_time_part cannot equal two different partitions at once.
		temporalPreds := temporalColumnPredicate(*window, params)
		queries := make([]PlannedQuery, 0, len(spatialPreds)*len(temporalPreds))
		for _, sp := range spatialPreds {
			for _, tp := range temporalPreds {
				queries = append(queries, PlannedQuery{Table: phys, Predicates: []Predicate{sp, tp}})
			}
		}
		return Result{Queries: queries}
	}

	loPart, hiPart := pixel.TimePartitionRange(window.Start, window.End, params.TimePartitionDays)
	queries := make([]PlannedQuery, 0, len(spatialPreds)*int(hiPart-loPart+1))
	for p := loPart; p <= hiPart; p++ {
		phys := cat.PhysicalTableName(table, p)
		for _, sp := range spatialPreds {
			queries = append(queries, PlannedQuery{Table: phys, Predicates: []Predicate{sp}})
		}
	}
	return Result{Queries: queries}
}

// spatialPredicates implements step 1 of the planner algorithm: small
// regions get per-pixel or IN-list predicates; large regions fall back
// to coarse BETWEEN-range predicates from the pixelizer's envelope.
func spatialPredicates(pix pixel.Pixelizer, region pixel.Region, params Params) []Predicate {
	maxRanges := params.PartPixMaxRanges
	if maxRanges <= 0 {
		maxRanges = 64
	}
	pixels := pix.Pixels(region)
	if len(pixels) == 0 {
		return nil
	}
	if len(pixels) <= maxRanges {
		if params.QueryPerSpatialPart {
			preds := make([]Predicate, len(pixels))
			for i, p := range pixels {
				preds[i] = Predicate{Clause: "apdb_part = ?", Args: []any{p}}
			}
			return preds
		}
		return []Predicate{inPredicate("apdb_part", pixelsToArgs(pixels))}
	}

	ranges := pix.Envelope(region, maxRanges)
	preds := make([]Predicate, len(ranges))
	for i, r := range ranges {
		preds[i] = Predicate{Clause: "apdb_part BETWEEN ? AND ?", Args: []any{r.Lo, r.Hi - 1}}
	}
	return preds
}

// temporalColumnPredicate implements step 2 of the planner algorithm
// for the in-row time-partition mode (time_partition_tables == false):
// a single apdb_time_part IN predicate over every covered partition, or,
// when QueryPerTimePart is set, one apdb_time_part equality predicate per
// covered partition, each attached alongside a spatial predicate on the
// single physical table.
func temporalColumnPredicate(window TimeWindow, params Params) []Predicate {
	lo, hi := pixel.TimePartitionRange(window.Start, window.End, params.TimePartitionDays)
	if params.QueryPerTimePart {
		preds := make([]Predicate, 0, hi-lo+1)
		for p := lo; p <= hi; p++ {
			preds = append(preds, Predicate{Clause: "apdb_time_part = ?", Args: []any{p}})
		}
		return preds
	}
	args := make([]any, 0, hi-lo+1)
	for p := lo; p <= hi; p++ {
		args = append(args, p)
	}
	return []Predicate{inPredicate("apdb_time_part", args)}
}

func pixelsToArgs(pixels []uint64) []any {
	args := make([]any, len(pixels))
	for i, p := range pixels {
		args[i] = p
	}
	return args
}

func inPredicate(column string, args []any) Predicate {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	return Predicate{Clause: fmt.Sprintf("%s IN (%s)", column, placeholders), Args: args}
}
