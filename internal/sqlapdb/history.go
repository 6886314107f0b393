package sqlapdb

import (
	"context"
	"fmt"

	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/frame"
	"github.com/ap-survey/apdb/internal/schema"
)

// GetDiaObjectsHistory returns every stored version of the given objects
// from the DiaObject history table, grouped by diaObjectId (ascending) and
// most recent first within each object. This is the
// operation the Cassandra facade cannot offer without a secondary index;
// here it is a plain ORDER BY over the validityStart clustering column.
func (s *Store) GetDiaObjectsHistory(ctx context.Context, objectIDs []int64) (*frame.Frame, error) {
	cols := columnNames(s.catalog, schema.TableObject)
	if len(objectIDs) == 0 {
		return frame.EmptyFrame(cols), nil
	}

	table := s.catalog.TableName(schema.TableObject)
	placeholders := placeholders(len(objectIDs))
	cql := fmt.Sprintf("SELECT %s FROM `%s` WHERE `diaObjectId` IN (%s) ORDER BY `diaObjectId`, `validityStart` DESC",
		backtickJoin(cols), table, placeholders)

	args := make([]any, len(objectIDs))
	for i, id := range objectIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, cql, args...)
	if err != nil {
		return nil, apdberr.WrapDriverError("sqlapdb.GetDiaObjectsHistory", err)
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
			return nil, apdberr.WrapDriverError("sqlapdb.GetDiaObjectsHistory.scan", err)
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			m[c] = vals[i]
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apdberr.WrapDriverError("sqlapdb.GetDiaObjectsHistory.rows", err)
	}
	return assembleFrame(cols, out)
}

// ReassignDiaSources moves DiaSource rows from one diaObjectId to
// another, one UPDATE per mapping entry. Cassandra cannot do this in
// place because diaObjectId is part of the clustering key; here it is
// an ordinary column update.
func (s *Store) ReassignDiaSources(ctx context.Context, reassignment map[int64]int64) error {
	table := s.catalog.TableName(schema.TableSource)
	cql := fmt.Sprintf("UPDATE `%s` SET `diaObjectId` = ? WHERE `diaObjectId` = ?", table)
	for from, to := range reassignment {
		if _, err := s.db.ExecContext(ctx, cql, to, from); err != nil {
			return apdberr.WrapDriverError("sqlapdb.ReassignDiaSources", err)
		}
	}
	return nil
}

// CountUnassociatedObjects counts DiaObjectLast rows with no matching
// DiaSource row, a full-table anti-join Cassandra's column-store layout
// cannot express without a secondary index on diaObjectId.
func (s *Store) CountUnassociatedObjects(ctx context.Context) (int64, error) {
	lastTable := s.catalog.TableName(schema.TableObjectLast)
	sourceTable := s.catalog.TableName(schema.TableSource)
	cql := fmt.Sprintf(
		"SELECT COUNT(*) FROM `%s` o WHERE NOT EXISTS (SELECT 1 FROM `%s` src WHERE src.`diaObjectId` = o.`diaObjectId`)",
		lastTable, sourceTable)

	var count int64
	if err := s.db.QueryRowContext(ctx, cql).Scan(&count); err != nil {
		return 0, apdberr.WrapDriverError("sqlapdb.CountUnassociatedObjects", err)
	}
	return count, nil
}
