package sqlapdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/frame"
	"github.com/ap-survey/apdb/internal/schema"
)

// Store ingests one visit's rows. Unlike the Cassandra facade this does
// not run the shared ingest pipeline (there is no pixelizer to derive
// apdb_part from): DiaObject rows close out their previous open version
// (validityEnd = visitTime) before a fresh history row is inserted, and
// DiaObjectLast is upserted in place. DiaSource/DiaForcedSource rows are
// plain appends, since neither carries a validity interval.
func (s *Store) Store(ctx context.Context, visitTime time.Time, objects, sources, forcedSources *frame.Frame) error {
	if objects != nil {
		s.obs.RecordBatchSize(ctx, schema.TableObject, objects.NumRows())
		s.log.Event("store", schema.TableObject, objects.NumRows(), "visit="+visitTime.Format(time.RFC3339))
		if err := s.storeObjects(ctx, visitTime, objects); err != nil {
			s.obs.RecordError(ctx, schema.TableObject, "write")
			return err
		}
	}
	if sources != nil {
		s.obs.RecordBatchSize(ctx, schema.TableSource, sources.NumRows())
		s.log.Event("store", schema.TableSource, sources.NumRows(), "visit="+visitTime.Format(time.RFC3339))
		if err := s.appendRows(ctx, schema.TableSource, sources); err != nil {
			s.obs.RecordError(ctx, schema.TableSource, "write")
			return err
		}
	}
	if forcedSources != nil {
		s.obs.RecordBatchSize(ctx, schema.TableForcedSource, forcedSources.NumRows())
		s.log.Event("store", schema.TableForcedSource, forcedSources.NumRows(), "visit="+visitTime.Format(time.RFC3339))
		if err := s.appendRows(ctx, schema.TableForcedSource, forcedSources); err != nil {
			s.obs.RecordError(ctx, schema.TableForcedSource, "write")
			return err
		}
	}
	return nil
}

func (s *Store) storeObjects(ctx context.Context, visitTime time.Time, objects *frame.Frame) error {
	cols := objects.Columns()
	idIdx := -1
	for i, c := range cols {
		if c == "diaObjectId" {
			idIdx = i
		}
	}
	if idIdx < 0 {
		return apdberr.NewDataError("sqlapdb.storeObjects", "DiaObject frame is missing diaObjectId")
	}

	objTable := s.catalog.TableName(schema.TableObject)
	lastTable := s.catalog.TableName(schema.TableObjectLast)

	for r := 0; r < objects.NumRows(); r++ {
		id := objects.At(r, "diaObjectId")

		closePrev := fmt.Sprintf("UPDATE `%s` SET `validityEnd` = ? WHERE `diaObjectId` = ? AND `validityEnd` IS NULL", objTable)
		if _, err := s.db.ExecContext(ctx, closePrev, visitTime, id); err != nil {
			return apdberr.WrapDriverError("sqlapdb.storeObjects.close", err)
		}

		histCols := append(append([]string{}, cols...), "validityStart", "validityEnd")
		histVals := make([]any, 0, len(histCols))
		for _, c := range cols {
			histVals = append(histVals, objects.At(r, c))
		}
		histVals = append(histVals, visitTime, nil)
		if err := s.insertRow(ctx, objTable, histCols, histVals); err != nil {
			return err
		}

		lastCols := append(append([]string{}, cols...), "validityStart")
		lastVals := make([]any, 0, len(lastCols))
		for _, c := range cols {
			lastVals = append(lastVals, objects.At(r, c))
		}
		lastVals = append(lastVals, visitTime)
		if err := s.upsertRow(ctx, lastTable, lastCols, lastVals); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) appendRows(ctx context.Context, table string, f *frame.Frame) error {
	phys := s.catalog.TableName(table)
	cols := f.Columns()
	for r := 0; r < f.NumRows(); r++ {
		vals := make([]any, len(cols))
		for i, c := range cols {
			vals[i] = f.At(r, c)
		}
		if err := s.insertRow(ctx, phys, cols, vals); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertRow(ctx context.Context, table string, cols []string, vals []any) error {
	cql := fmt.Sprintf("INSERT INTO `%s` (%s) VALUES (%s)", table, backtickJoin(cols), placeholders(len(cols)))
	_, err := s.db.ExecContext(ctx, cql, vals...)
	return apdberr.WrapDriverError("sqlapdb.insertRow", err)
}

// upsertRow mirrors the teacher's `INSERT ... ON CONFLICT DO UPDATE`
// idiom, rendered with MySQL's ON DUPLICATE KEY UPDATE syntax.
func (s *Store) upsertRow(ctx context.Context, table string, cols []string, vals []any) error {
	update := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == "diaObjectId" {
			continue
		}
		update = append(update, fmt.Sprintf("`%s` = VALUES(`%s`)", c, c))
	}
	cql := fmt.Sprintf("INSERT INTO `%s` (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		table, backtickJoin(cols), placeholders(len(cols)), strings.Join(update, ", "))
	_, err := s.db.ExecContext(ctx, cql, vals...)
	return apdberr.WrapDriverError("sqlapdb.upsertRow", err)
}

// StoreSSObjects upserts solar-system object rows into the single
// SSObject table.
func (s *Store) StoreSSObjects(ctx context.Context, ssObjects *frame.Frame) error {
	if ssObjects == nil {
		return nil
	}
	phys := s.catalog.TableName(schema.TableSSObject)
	cols := ssObjects.Columns()
	for r := 0; r < ssObjects.NumRows(); r++ {
		vals := make([]any, len(cols))
		for i, c := range cols {
			vals[i] = ssObjects.At(r, c)
		}
		if err := s.upsertRow(ctx, phys, cols, vals); err != nil {
			return err
		}
	}
	return nil
}

func backtickJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("`%s`", c)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
