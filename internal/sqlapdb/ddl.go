package sqlapdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/schema"
)

// sqlTypeMap renders the shared logical schema's catalog types as plain
// SQL column types, the MySQL-compatible counterpart of schema's own
// cqlTypeMap.
var sqlTypeMap = map[string]string{
	"DOUBLE":   "DOUBLE",
	"FLOAT":    "FLOAT",
	"DATETIME": "DATETIME",
	"BIGINT":   "BIGINT",
	"INTEGER":  "INT",
	"INT":      "INT",
	"TINYINT":  "TINYINT",
	"BLOB":     "BLOB",
	"CHAR":     "VARCHAR(255)",
	"BOOL":     "BOOLEAN",
}

// MakeSchema creates one physical table per logical table. Unlike the
// Cassandra facade, apdb_part/apdb_time_part are stored as plain nullable
// columns for schema-shape parity only — they are never part of the SQL
// primary key, since this backend has no partitioner to populate them
// meaningfully. The primary key is the catalog's clustering-column list;
// DiaObject additionally carries validityStart/validityEnd so every
// version of an object is its own row.
func (s *Store) MakeSchema(ctx context.Context, drop bool) error {
	for name, t := range s.catalog.TableSchemas() {
		phys := s.catalog.TableName(name)
		if drop {
			if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS `%s`", phys)); err != nil {
				return apdberr.WrapDriverError("sqlapdb.MakeSchema.drop", err)
			}
		}
		if _, err := s.db.ExecContext(ctx, createTableDDL(phys, t)); err != nil {
			return apdberr.WrapDriverError("sqlapdb.MakeSchema.create", err)
		}
	}
	return nil
}

func createTableDDL(physicalName string, t schema.TableDef) string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, col := range t.Columns {
		sqlType, ok := sqlTypeMap[col.Type]
		if !ok {
			sqlType = col.Type
		}
		defs = append(defs, fmt.Sprintf("`%s` %s", col.Name, sqlType))
	}
	if key := clusteringPrimaryKey(t); key != "" {
		defs = append(defs, key)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (%s)", physicalName, strings.Join(defs, ", "))
}

// clusteringPrimaryKey builds the PRIMARY KEY clause from the catalog's
// clustering-column index only, deliberately excluding the partition
// columns Cassandra needs but this backend does not.
func clusteringPrimaryKey(t schema.TableDef) string {
	var clust []string
	for _, idx := range t.Indices {
		if idx.Type == schema.IndexPrimary {
			clust = idx.Columns
			break
		}
	}
	if len(clust) == 0 {
		return ""
	}
	quoted := make([]string, len(clust))
	for i, c := range clust {
		quoted[i] = fmt.Sprintf("`%s`", c)
	}
	return fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoted, ", "))
}
