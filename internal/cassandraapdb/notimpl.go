package cassandraapdb

import (
	"context"

	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/frame"
)

// GetDiaObjectsHistory is not implemented against Cassandra: DiaObjectLast
// only ever holds the latest version per object, and Cassandra's DiaObject
// table is append-only without an indexed path back from diaObjectId to
// its full version history. The SQL reference backend implements this.
func (s *Store) GetDiaObjectsHistory(ctx context.Context, objectIDs []int64) (*frame.Frame, error) {
	return nil, apdberr.NewNotImplemented("cassandraapdb.GetDiaObjectsHistory")
}

// ReassignDiaSources is not implemented against Cassandra: diaObjectId is
// part of the clustering key on DiaSource, so changing it means a
// delete-then-reinsert across partitions this facade does not attempt.
func (s *Store) ReassignDiaSources(ctx context.Context, reassignment map[int64]int64) error {
	return apdberr.NewNotImplemented("cassandraapdb.ReassignDiaSources")
}

// CountUnassociatedObjects is not implemented against Cassandra: it would
// require a full-table scan with no partition key predicate, which this
// engine never issues.
func (s *Store) CountUnassociatedObjects(ctx context.Context) (int64, error) {
	return 0, apdberr.NewNotImplemented("cassandraapdb.CountUnassociatedObjects")
}
