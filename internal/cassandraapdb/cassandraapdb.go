// Package cassandraapdb implements the apdb.APDB facade against a
// Cassandra cluster: a thin composition of session, schema, pixel,
// planner, executor and ingest, grounded on the teacher's
// internal/storage/dolt/store.go "one file per concern" shape.
package cassandraapdb

import (
	"context"
	"time"

	"github.com/ap-survey/apdb/internal/apdb"
	"github.com/ap-survey/apdb/internal/backend"
	"github.com/ap-survey/apdb/internal/config"
	"github.com/ap-survey/apdb/internal/obsv"
	"github.com/ap-survey/apdb/internal/pixel"
	"github.com/ap-survey/apdb/internal/planner"
	"github.com/ap-survey/apdb/internal/schema"
	"github.com/ap-survey/apdb/internal/session"
)

func init() {
	backend.Register("cassandra", New)
}

// Store is the Cassandra-backed apdb.APDB implementation.
type Store struct {
	cluster *session.Cluster
	catalog *schema.Catalog
	pix     pixel.Pixelizer
	cfg     *config.Config
	obs     *obsv.Metrics
	log     *obsv.Logger
}

// New opens a cluster session, loads the schema catalog and pixelizer,
// and checks the stored metadata record for immutability violations
// before returning a ready Store.
func New(ctx context.Context, cfg *config.Config) (apdb.APDB, error) {
	cluster, err := session.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pix, err := pixel.New(cfg.PartPixelization, cfg.PartPixLevel)
	if err != nil {
		cluster.Close()
		return nil, err
	}

	cat, err := schema.Load(schema.Options{
		SchemaFile:          cfg.SchemaFile,
		ExtraSchemaFile:     cfg.ExtraSchemaFile,
		Prefix:              cfg.Prefix,
		TimePartitionTables: cfg.TimePartitionTables,
		TimePartitionDays:   cfg.TimePartitionDays,
	})
	if err != nil {
		cluster.Close()
		return nil, err
	}

	metrics, err := obsv.NewDefault()
	if err != nil {
		cluster.Close()
		return nil, err
	}
	logger := obsv.NewLogger(cfg.EventLogFile)
	logger.SetVerbose(cfg.Timer)

	s := &Store{cluster: cluster, catalog: cat, pix: pix, cfg: cfg, obs: metrics, log: logger}
	if err := s.checkMetadata(ctx); err != nil {
		cluster.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying cluster connection.
func (s *Store) Close() error {
	s.cluster.Close()
	return nil
}

// TableDef returns the logical schema for a table name.
func (s *Store) TableDef(logical string) (schema.TableDef, bool) {
	t, ok := s.catalog.TableSchemas()[logical]
	return t, ok
}

func (s *Store) plannerParams() planner.Params {
	return planner.Params{
		QueryPerSpatialPart: s.cfg.QueryPerSpatialPart,
		QueryPerTimePart:    s.cfg.QueryPerTimePart,
		PartPixMaxRanges:    s.cfg.PartPixMaxRanges,
		TimePartitionDays:   s.cfg.TimePartitionDays,
	}
}

func columnNames(cat *schema.Catalog, table string) []string {
	def := cat.TableSchemas()[table]
	names := make([]string, len(def.Columns))
	for i, c := range def.Columns {
		names[i] = c.Name
	}
	return names
}

func parseConfigTime(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return fallback
	}
	return t
}
