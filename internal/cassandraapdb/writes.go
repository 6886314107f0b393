package cassandraapdb

import (
	"context"
	"strings"
	"time"

	"github.com/ap-survey/apdb/internal/frame"
	"github.com/ap-survey/apdb/internal/ingest"
	"github.com/ap-survey/apdb/internal/pixel"
	"github.com/ap-survey/apdb/internal/schema"
	"github.com/ap-survey/apdb/internal/session"
)

// Store ingests one visit's rows through the shared ingest pipeline,
// writing DiaObjectLast, DiaObject, DiaSource and DiaForcedSource in
// that order via InsertRow.
func (s *Store) Store(ctx context.Context, visitTime time.Time, objects, sources, forcedSources *frame.Frame) error {
	s.recordBatch(ctx, schema.TableObject, objects, visitTime)
	s.recordBatch(ctx, schema.TableSource, sources, visitTime)
	s.recordBatch(ctx, schema.TableForcedSource, forcedSources, visitTime)

	if err := ingest.Store(ctx, s.catalog, s.pix, s.ingestParams(), visitTime, objects, sources, forcedSources, s); err != nil {
		s.obs.RecordError(ctx, schema.TableObject, "write")
		return err
	}
	return nil
}

func (s *Store) recordBatch(ctx context.Context, table string, f *frame.Frame, visitTime time.Time) {
	if f == nil {
		return
	}
	s.obs.RecordBatchSize(ctx, table, f.NumRows())
	s.log.Event("store", table, f.NumRows(), "visit="+visitTime.Format(time.RFC3339))
}

func (s *Store) ingestParams() ingest.Params {
	var ra, decl string
	if len(s.cfg.RaDecColumns) == 2 {
		ra, decl = s.cfg.RaDecColumns[0], s.cfg.RaDecColumns[1]
	}
	p := ingest.Params{
		RaColumn:            ra,
		DeclColumn:          decl,
		TimePartitionTables: s.cfg.TimePartitionTables,
		TimePartitionDays:   s.cfg.TimePartitionDays,
	}
	if s.cfg.TimePartitionTables {
		start := parseConfigTime(s.cfg.TimePartitionStart, time.Time{})
		end := parseConfigTime(s.cfg.TimePartitionEnd, time.Time{})
		if !start.IsZero() {
			p.TimePartitionStart = &start
		}
		if !end.IsZero() {
			p.TimePartitionEnd = &end
		}
	}
	return p
}

// InsertRow satisfies ingest.Writer: one row becomes one prepared INSERT,
// the statement text cached by (table, column-set) fingerprint through
// session.Cluster.PreparedInsert.
func (s *Store) InsertRow(ctx context.Context, table string, columns []string, values []frame.Value) error {
	fp := session.PreparedFingerprint{Table: table, Columns: strings.Join(columns, ",")}
	stmt := s.cluster.PreparedInsert(fp, func() string {
		return buildInsert(table, columns)
	})
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return s.cluster.Query(ctx, session.ProfileWrite, stmt, args...).Exec()
}

func buildInsert(table string, columns []string) string {
	var b strings.Builder
	b.WriteString(`INSERT INTO "`)
	b.WriteString(table)
	b.WriteString(`" (`)
	b.WriteString(strings.Join(quoteAll(columns), ", "))
	b.WriteString(") VALUES (")
	b.WriteString(strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))
	b.WriteString(")")
	return b.String()
}

// StoreSSObjects upserts solar-system object rows into the single
// unpartitioned SSObject table, one InsertRow per row (SSObject has no
// partition-key derivation to perform, so it bypasses the ingest
// pipeline entirely).
func (s *Store) StoreSSObjects(ctx context.Context, ssObjects *frame.Frame) error {
	if ssObjects == nil {
		return nil
	}
	cols := ssObjects.Columns()
	table := s.catalog.TableName(schema.TableSSObject)
	for r := 0; r < ssObjects.NumRows(); r++ {
		values := make([]frame.Value, len(cols))
		for i, c := range cols {
			values[i] = ssObjects.At(r, c)
		}
		if err := s.InsertRow(ctx, table, cols, values); err != nil {
			return err
		}
	}
	return nil
}

// MakeSchema creates every physical table (including the time-partition
// table family when configured) and records the immutable metadata row
// this deployment must never contradict.
func (s *Store) MakeSchema(ctx context.Context, drop bool) error {
	start := parseConfigTime(s.cfg.TimePartitionStart, pixel.PartitionZeroEpoch)
	end := parseConfigTime(s.cfg.TimePartitionEnd, start)
	lo, hi := pixel.TimePartitionRange(start, end, s.cfg.TimePartitionDays)

	if err := s.catalog.MakeSchema(ctx, s.cluster, drop, lo, hi); err != nil {
		return err
	}
	return s.writeMetadata(ctx, drop)
}
