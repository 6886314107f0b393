// Package apdb defines the facade contract every backend (Cassandra, SQL)
// implements: the read/write/schema operations spec.md §6 names, plus the
// SSObject and history operations SPEC_FULL.md supplements.
package apdb

import (
	"context"
	"time"

	"github.com/ap-survey/apdb/internal/frame"
	"github.com/ap-survey/apdb/internal/pixel"
	"github.com/ap-survey/apdb/internal/schema"
)

// APDB is the backend-agnostic facade. Cassandra and SQL backends both
// implement it; callers type-switch only to inspect NotImplementedError,
// never to dispatch differently per backend.
type APDB interface {
	// GetDiaObjects returns the latest version of every DiaObject whose
	// position falls in region.
	GetDiaObjects(ctx context.Context, region pixel.Region) (*frame.Frame, error)

	// GetDiaSources returns DiaSource rows in region within the backend's
	// configured history window, optionally restricted to objectIDs.
	// Returns an AbsentResult (check with IsAbsent) when the backend's
	// read_sources_months is 0.
	GetDiaSources(ctx context.Context, region pixel.Region, objectIDs []int64, visitTime time.Time) (frame.Result, error)

	// GetDiaForcedSources is GetDiaSources for DiaForcedSource.
	GetDiaForcedSources(ctx context.Context, region pixel.Region, objectIDs []int64, visitTime time.Time) (frame.Result, error)

	// Store ingests one visit's worth of rows, in DiaObjectLast ->
	// DiaObject -> DiaSource -> DiaForcedSource order. sources and
	// forcedSources may be nil.
	Store(ctx context.Context, visitTime time.Time, objects, sources, forcedSources *frame.Frame) error

	// MakeSchema creates every physical table. Idempotent when drop is
	// false.
	MakeSchema(ctx context.Context, drop bool) error

	// TableDef returns the logical schema for a table name, or false if
	// unknown.
	TableDef(logical string) (schema.TableDef, bool)

	// GetSSObjects returns the full solar-system object catalog.
	GetSSObjects(ctx context.Context) (*frame.Frame, error)

	// StoreSSObjects upserts solar-system object rows.
	StoreSSObjects(ctx context.Context, ssObjects *frame.Frame) error

	// GetDiaObjectsHistory returns every stored version of the given
	// objects, grouped by object and most recent first within each object.
	// Cassandra backends return
	// NotImplementedError; the SQL reference backend implements it.
	GetDiaObjectsHistory(ctx context.Context, objectIDs []int64) (*frame.Frame, error)

	// ReassignDiaSources moves sources from one diaObjectId to another
	// (association re-processing). Cassandra backends return
	// NotImplementedError.
	ReassignDiaSources(ctx context.Context, reassignment map[int64]int64) error

	// CountUnassociatedObjects counts DiaObjects with no DiaSource rows.
	// Cassandra backends return NotImplementedError.
	CountUnassociatedObjects(ctx context.Context) (int64, error)

	// Close releases any held connections.
	Close() error
}

// AbsentResult is the sentinel frame.Result returned by GetDiaSources /
// GetDiaForcedSources when the corresponding history window is disabled
// (read_sources_months == 0 or read_forced_sources_months == 0) —
// observably distinct from a frame.Result with zero rows, which means "no
// rows matched," not "this read is disabled."
type AbsentResult struct{}

func (AbsentResult) Columns() []string               { return nil }
func (AbsentResult) NumRows() int                     { return 0 }
func (AbsentResult) At(int, string) frame.Value       { panic("apdb: At called on AbsentResult") }
func (AbsentResult) Rows() []map[string]frame.Value   { return nil }

// IsAbsent reports whether r is the Absent sentinel.
func IsAbsent(r frame.Result) bool {
	_, ok := r.(AbsentResult)
	return ok
}

var _ frame.Result = AbsentResult{}
