// Package sqlapdb implements the apdb.APDB facade against a plain SQL
// database: table-per-entity, validityStart/validityEnd interval rows,
// no partitioner, no planner, no executor. It exists so the facade's
// NotImplementedError path (returned by the Cassandra backend for
// history-style reads) has a real implementation to contrast against,
// grounded on the teacher's internal/storage/sqlite query style.
package sqlapdb

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"

	"github.com/ap-survey/apdb/internal/apdb"
	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/backend"
	"github.com/ap-survey/apdb/internal/config"
	"github.com/ap-survey/apdb/internal/obsv"
	"github.com/ap-survey/apdb/internal/schema"
)

func init() {
	backend.Register("sql", New)
}

// Store is the SQL-backed apdb.APDB implementation.
type Store struct {
	db      *sql.DB
	catalog *schema.Catalog
	obs     *obsv.Metrics
	log     *obsv.Logger
}

// New opens the configured DSN and loads the shared schema catalog. The
// catalog's column/index definitions are reused for table layout, but
// the time-partition-tables expansion and apdb_part/apdb_time_part
// partition-key treatment that Cassandra depends on do not apply here:
// this backend creates one physical table per logical table, full stop.
func New(ctx context.Context, cfg *config.Config) (apdb.APDB, error) {
	db, err := sql.Open("mysql", cfg.SQLDataSourceName)
	if err != nil {
		return nil, apdberr.WrapDriverError("sqlapdb.New", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apdberr.WrapDriverError("sqlapdb.New", err)
	}

	cat, err := schema.Load(schema.Options{
		SchemaFile:      cfg.SchemaFile,
		ExtraSchemaFile: cfg.ExtraSchemaFile,
		Prefix:          cfg.Prefix,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	metrics, err := obsv.NewDefault()
	if err != nil {
		db.Close()
		return nil, err
	}
	logger := obsv.NewLogger(cfg.EventLogFile)
	logger.SetVerbose(cfg.Timer)

	return &Store{db: db, catalog: cat, obs: metrics, log: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// TableDef returns the logical schema for a table name.
func (s *Store) TableDef(logical string) (schema.TableDef, bool) {
	t, ok := s.catalog.TableSchemas()[logical]
	return t, ok
}

func columnNames(cat *schema.Catalog, table string) []string {
	def := cat.TableSchemas()[table]
	names := make([]string, len(def.Columns))
	for i, c := range def.Columns {
		names[i] = c.Name
	}
	return names
}
