// Package executor runs a planned query list at bounded concurrency,
// assembles the results into one tabular result, and applies the
// residual filters the planner could not push into the partition key.
package executor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/frame"
	"github.com/ap-survey/apdb/internal/planner"
)

// DelayedRunner executes one planned query and returns its raw rows,
// without assembling a typed frame. Used for the read-source profile,
// where deferring assembly is materially cheaper across hundreds of
// partitions.
type DelayedRunner func(ctx context.Context, q planner.PlannedQuery) (*frame.RowBuffer, error)

// ImmediateRunner executes one planned query and returns an
// already-assembled frame. Used for the read-object profile.
type ImmediateRunner func(ctx context.Context, q planner.PlannedQuery) (*frame.Frame, error)

// ExecuteDelayed runs queries at the given concurrency bound, collecting
// every result before surfacing the first error (drain-then-raise, never
// fail-fast — a partially consumed stream must not leak). Column-name
// equality across buffers is enforced by RowBuffer.Concat.
func ExecuteDelayed(ctx context.Context, concurrency int, queries []planner.PlannedQuery, run DelayedRunner) (*frame.RowBuffer, error) {
	if len(queries) == 0 {
		return frame.NewRowBuffer(nil), nil
	}

	results := make([]*frame.RowBuffer, len(queries))
	var g errgroup.Group
	sem := make(chan struct{}, boundedConcurrency(concurrency))

	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}
			buf, err := run(ctx, q)
			if err != nil {
				return err
			}
			results[i] = buf
			return nil
		})
	}

	// g.Wait blocks until every goroutine returns regardless of whether
	// an earlier one errored: plain errgroup.Group (unlike
	// errgroup.WithContext) never cancels its siblings, so this is a
	// true drain-then-raise-first-error, not fail-fast.
	err := g.Wait()

	merged := frame.NewRowBuffer(nil)
	for _, r := range results {
		if r == nil {
			continue
		}
		if mergeErr := merged.Concat(r); mergeErr != nil {
			if err == nil {
				err = mergeErr
			}
		}
	}
	if err != nil {
		return nil, apdberr.WrapDriverError("executor.ExecuteDelayed", err)
	}
	return merged, nil
}

// ExecuteImmediate is the immediate-assembly counterpart of
// ExecuteDelayed, used by the read-object profile.
func ExecuteImmediate(ctx context.Context, concurrency int, queries []planner.PlannedQuery, run ImmediateRunner) (*frame.Frame, error) {
	if len(queries) == 0 {
		return frame.EmptyFrame(nil), nil
	}

	results := make([]*frame.Frame, len(queries))
	var g errgroup.Group
	sem := make(chan struct{}, boundedConcurrency(concurrency))

	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}
			f, err := run(ctx, q)
			if err != nil {
				return err
			}
			results[i] = f
			return nil
		})
	}

	err := g.Wait()

	var merged *frame.Frame
	for _, f := range results {
		if f == nil {
			continue
		}
		if merged == nil {
			merged = f
			continue
		}
		if mergeErr := merged.Concat(f); mergeErr != nil && err == nil {
			err = mergeErr
		}
	}
	if merged == nil {
		merged = frame.EmptyFrame(nil)
	}
	if err != nil {
		return nil, apdberr.WrapDriverError("executor.ExecuteImmediate", err)
	}
	return merged, nil
}

func boundedConcurrency(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// FilterByObjectIDs keeps only rows whose diaObjectId column is a member
// of ids, applied after merge since it is a clustering-column predicate
// the planner cannot push into the partition key.
func FilterByObjectIDs(result *frame.RowBuffer, ids []int64) *frame.RowBuffer {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	out := frame.NewRowBuffer(result.Columns())
	for i := 0; i < result.NumRows(); i++ {
		v := result.At(i, "diaObjectId")
		id, ok := toInt64(v)
		if !ok {
			continue
		}
		if _, member := set[id]; member {
			out.Append(rowValues(result, i))
		}
	}
	return out
}

// FilterByMidPointAfter keeps only rows whose midPointTai column exceeds
// mjdStart, applied unconditionally on source/forced-source reads since
// the partition coarsens to whole days.
func FilterByMidPointAfter(result *frame.RowBuffer, mjdStart float64) *frame.RowBuffer {
	out := frame.NewRowBuffer(result.Columns())
	for i := 0; i < result.NumRows(); i++ {
		v := result.At(i, "midPointTai")
		f, ok := toFloat64(v)
		if !ok {
			continue
		}
		if f > mjdStart {
			out.Append(rowValues(result, i))
		}
	}
	return out
}

func rowValues(result *frame.RowBuffer, row int) []frame.Value {
	cols := result.Columns()
	vals := make([]frame.Value, len(cols))
	for i, c := range cols {
		vals[i] = result.At(row, c)
	}
	return vals
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
	default:
		return 0, false
	}
}
