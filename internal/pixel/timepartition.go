package pixel

import (
	"math"
	"time"
)

// PartitionZeroEpoch is the fixed start of partition 0: 1970-01-01T00:00:00
// TAI. It must never change after a keyspace is initialized; MakeSchema
// records it so later mismatches surface as a ConfigError instead of
// silently shifting every historical row into the wrong partition.
var PartitionZeroEpoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 24 * 3600

// TimePartition computes floor((t - epoch) / (partitionDays * 1 day)) as
// an integer time-partition index. Non-decreasing in t: every instant in
// the same partitionDays-long bucket maps to the same index.
func TimePartition(t time.Time, partitionDays int) int64 {
	seconds := t.Sub(PartitionZeroEpoch).Seconds()
	return int64(math.Floor(seconds / float64(partitionDays*secondsPerDay)))
}

// TimePartitionRange returns the inclusive [start, end] time-partition
// indices for the configured time_partition_start/time_partition_end
// window, used by MakeSchema to pre-create the per-partition table
// family under time-partition-tables mode.
func TimePartitionRange(start, end time.Time, partitionDays int) (lo, hi int64) {
	lo = TimePartition(start, partitionDays)
	hi = TimePartition(end, partitionDays)
	return
}

// mjdEpoch is the Julian Date of MJD 0 (1858-11-17T00:00:00), independent
// of PartitionZeroEpoch above: midPointTai is stored as a true Modified
// Julian Date, while apdb_time_part uses the Unix-epoch-relative scheme
// spec.md fixes for partition boundaries. The two must not be conflated.
var mjdEpoch = time.Date(1858, 11, 17, 0, 0, 0, 0, time.UTC)

// MJD converts t to a Modified Julian Date, used to compare against the
// stored midPointTai column when applying the residual time-window
// filter after a partition-coarsened read.
func MJD(t time.Time) float64 {
	return t.Sub(mjdEpoch).Seconds() / secondsPerDay
}
