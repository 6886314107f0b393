// Package obsv is the engine's observability seam: OpenTelemetry
// counters/histograms for query fan-out width, per-partition latency and
// write batch sizes, plus a plain stdlib-log structured logger in the
// teacher's register. Every exported recorder is a no-op-safe method on
// *Metrics so callers never nil-check before calling it.
package obsv

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/ap-survey/apdb"

// Metrics holds the instruments executor and ingest record against. The
// zero value is not usable; build one with New or NewDefault.
type Metrics struct {
	fanout    metric.Int64Histogram
	latency   metric.Float64Histogram
	batchSize metric.Int64Histogram
	errors    metric.Int64Counter
}

// NewDefault builds a Metrics backed by an in-process MeterProvider with
// no configured reader: instruments still aggregate, but nothing is
// exported. This is the right default for a CLI-driven engine that does
// not run its own metrics endpoint; cmd/apdbctl can swap in a
// provider wired to a real reader when one is configured.
func NewDefault() (*Metrics, error) {
	return New(sdkmetric.NewMeterProvider())
}

// New builds a Metrics from a caller-supplied MeterProvider, letting
// cmd/apdbctl attach a real periodic reader/exporter in front of the
// same instruments this package defines.
func New(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)

	fanout, err := meter.Int64Histogram(
		"apdb.query.fanout",
		metric.WithDescription("number of per-partition queries issued by one read call"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram(
		"apdb.query.partition_latency",
		metric.WithDescription("wall-clock latency of a single per-partition query"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	batchSize, err := meter.Int64Histogram(
		"apdb.ingest.batch_size",
		metric.WithDescription("number of rows written in one ingest batch"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"apdb.query.errors",
		metric.WithDescription("count of failed per-partition queries or ingest batches"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{fanout: fanout, latency: latency, batchSize: batchSize, errors: errCounter}, nil
}

// RecordFanout records the width of a single read call's per-partition
// query plan, tagged by the logical table it targeted.
func (m *Metrics) RecordFanout(ctx context.Context, table string, width int) {
	if m == nil {
		return
	}
	m.fanout.Record(ctx, int64(width), metric.WithAttributes(tableAttr(table)))
}

// RecordPartitionLatency records how long one per-partition query took,
// tagged by table and Cassandra execution profile.
func (m *Metrics) RecordPartitionLatency(ctx context.Context, table, profile string, ms float64) {
	if m == nil {
		return
	}
	m.latency.Record(ctx, ms, metric.WithAttributes(tableAttr(table), profileAttr(profile)))
}

// RecordBatchSize records the row count of one ingest batch, tagged by
// table.
func (m *Metrics) RecordBatchSize(ctx context.Context, table string, rows int) {
	if m == nil {
		return
	}
	m.batchSize.Record(ctx, int64(rows), metric.WithAttributes(tableAttr(table)))
}

// RecordError increments the failure counter for table, tagged by the
// operation that failed ("read" or "write").
func (m *Metrics) RecordError(ctx context.Context, table, op string) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(tableAttr(table), opAttr(op)))
}
