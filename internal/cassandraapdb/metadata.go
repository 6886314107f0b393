package cassandraapdb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/pixel"
	"github.com/ap-survey/apdb/internal/session"
)

// metadataTable holds one immutable row per deployment-fixed setting:
// partition_zero_epoch, time_partition_days, part_pixelization and
// part_pix_level must never change after makeSchema has run once,
// matching spec.md §3's "must never change after initialization."
func (s *Store) metadataTable() string {
	return s.catalog.TableName("metadata")
}

const (
	metaTimePartitionDays = "time_partition_days"
	metaPixelization      = "part_pixelization"
	metaPixLevel          = "part_pix_level"
	metaPartitionEpoch    = "partition_zero_epoch"
)

func (s *Store) ensureMetadataTable(ctx context.Context) error {
	cql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (name text PRIMARY KEY, value text)`, s.metadataTable())
	return s.cluster.ExecDDL(ctx, cql)
}

// readMetadata assumes the metadata table already exists (callers run
// ensureMetadataTable first); an empty result just means makeSchema has
// never recorded a value for this deployment yet, not a conflict.
func (s *Store) readMetadata(ctx context.Context) (map[string]string, error) {
	cql := fmt.Sprintf(`SELECT name, value FROM "%s"`, s.metadataTable())
	rows, err := s.fetchRows(ctx, session.ProfileReadObject, cql, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		name, _ := row["name"].(string)
		value, _ := row["value"].(string)
		out[name] = value
	}
	return out, nil
}

// checkMetadata compares the cluster's recorded deployment-fixed settings
// against this Store's configuration, returning a ConfigError on any
// mismatch rather than silently shifting every historical row into the
// wrong partition or pixel.
func (s *Store) checkMetadata(ctx context.Context) error {
	if err := s.ensureMetadataTable(ctx); err != nil {
		return err
	}
	existing, err := s.readMetadata(ctx)
	if err != nil {
		return err
	}
	want := map[string]string{
		metaTimePartitionDays: strconv.Itoa(s.cfg.TimePartitionDays),
		metaPixelization:      s.cfg.PartPixelization,
		metaPixLevel:          strconv.Itoa(s.cfg.PartPixLevel),
		metaPartitionEpoch:    pixel.PartitionZeroEpoch.String(),
	}
	for key, wantVal := range want {
		gotVal, ok := existing[key]
		if !ok {
			continue
		}
		if gotVal != wantVal {
			return apdberr.NewConfigError("cassandraapdb.checkMetadata",
				fmt.Errorf("%s is %q on the cluster but %q in configuration; this setting is immutable after makeSchema", key, gotVal, wantVal))
		}
	}
	return nil
}

// writeMetadata records this deployment's fixed settings. Existing,
// matching rows are left untouched; a drop (full schema re-init) rewrites
// them unconditionally. writeMetadata assumes checkMetadata already ran
// (at Store construction) and found no conflict, so this only ever adds
// rows that were previously absent, except under drop.
func (s *Store) writeMetadata(ctx context.Context, drop bool) error {
	if err := s.ensureMetadataTable(ctx); err != nil {
		return err
	}
	existing, err := s.readMetadata(ctx)
	if err != nil {
		return err
	}
	values := map[string]string{
		metaTimePartitionDays: strconv.Itoa(s.cfg.TimePartitionDays),
		metaPixelization:      s.cfg.PartPixelization,
		metaPixLevel:          strconv.Itoa(s.cfg.PartPixLevel),
		metaPartitionEpoch:    pixel.PartitionZeroEpoch.String(),
	}
	insert := fmt.Sprintf(`INSERT INTO "%s" (name, value) VALUES (?, ?)`, s.metadataTable())
	for key, val := range values {
		if !drop {
			if _, ok := existing[key]; ok {
				continue
			}
		}
		if err := s.cluster.Query(ctx, session.ProfileWrite, insert, key, val).Exec(); err != nil {
			return apdberr.WrapDriverError("cassandraapdb.writeMetadata", err)
		}
	}
	return nil
}
