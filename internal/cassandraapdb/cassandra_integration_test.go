//go:build cassandra

package cassandraapdb

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ap-survey/apdb/internal/apdb"
	"github.com/ap-survey/apdb/internal/config"
	"github.com/ap-survey/apdb/internal/frame"
	"github.com/ap-survey/apdb/internal/pixel"
)

// startCassandra boots a single-node Cassandra container with
// testcontainers-go, matching the teacher's container-gated integration
// test convention for storage backends that need a real server (see
// internal/storage/dolt/server_integration_test.go for the analogous
// dolt-server variant). A one-object form of scenario S2, scenario S5 and
// the metadata immutability check run against it.
func startCassandra(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "cassandra:4.1",
		ExposedPorts: []string{"9042/tcp"},
		WaitingFor:   wait.ForLog("Starting listening for CQL clients").WithStartupTimeout(3 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("starting cassandra container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "9042")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return host + ":" + port.Port()
}

func testConfig(contactPoint string) *config.Config {
	return &config.Config{
		Backend:                 "cassandra",
		ContactPoints:           []string{contactPoint},
		Keyspace:                "apdb_test",
		ReadConsistency:         "ONE",
		WriteConsistency:        "ONE",
		ReadTimeout:             10 * time.Second,
		WriteTimeout:            10 * time.Second,
		ReadConcurrency:         4,
		PartPixelization:        "mq3c",
		PartPixLevel:            6,
		PartPixMaxRanges:        64,
		RaDecColumns:            []string{"ra", "decl"},
		TimePartitionTables:     false,
		TimePartitionDays:       30,
		QueryPerSpatialPart:     false,
		QueryPerTimePart:        false,
		ReadSourcesMonths:       12,
		ReadForcedSourcesMonths: 12,
	}
}

// TestScenarioStoreThenReadBackObject is a one-object form of scenario
// S2: a stored DiaObject is visible to a subsequent region read.
func TestScenarioStoreThenReadBackObject(t *testing.T) {
	addr := startCassandra(t)
	cfg := testConfig(addr)
	ctx := context.Background()

	store, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()
	if err := store.MakeSchema(ctx, true); err != nil {
		t.Fatalf("MakeSchema: %v", err)
	}

	objects, err := frame.NewFrame([]frame.TypedColumn{
		{Name: "diaObjectId", Values: []frame.Value{int64(1)}},
		{Name: "ra", Values: []frame.Value{10.0}},
		{Name: "decl", Values: []frame.Value{20.0}},
	})
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	if err := store.Store(ctx, time.Now().UTC(), objects, nil, nil); err != nil {
		t.Fatalf("Store: %v", err)
	}

	region := pixel.Circle{Center: pixel.DirectionFromRaDec(10.0*pixelDeg, 20.0*pixelDeg), RadiusRad: 1 * pixelDeg}
	got, err := store.GetDiaObjects(ctx, region)
	if err != nil {
		t.Fatalf("GetDiaObjects: %v", err)
	}
	if got.NumRows() != 1 {
		t.Fatalf("GetDiaObjects() returned %d rows, want 1", got.NumRows())
	}
}

// TestScenarioReadSourcesAbsentWindow is scenario S5: read_sources_months
// == 0 must yield apdb.AbsentResult, not a zero-row result.
func TestScenarioReadSourcesAbsentWindow(t *testing.T) {
	addr := startCassandra(t)
	cfg := testConfig(addr)
	cfg.ReadSourcesMonths = 0
	ctx := context.Background()

	store, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()
	if err := store.MakeSchema(ctx, true); err != nil {
		t.Fatalf("MakeSchema: %v", err)
	}

	region := pixel.Circle{Center: pixel.DirectionFromRaDec(0, 0), RadiusRad: 1 * pixelDeg}
	result, err := store.GetDiaSources(ctx, region, nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("GetDiaSources: %v", err)
	}
	if !apdb.IsAbsent(result) {
		t.Fatalf("GetDiaSources() with read_sources_months=0: want AbsentResult, got %T", result)
	}
}

// TestScenarioMetadataImmutability checks the metadata immutability guard
// (not one of the numbered scenarios): recreating the schema with a
// different partitioning scheme must fail, not silently drift.
func TestScenarioMetadataImmutability(t *testing.T) {
	addr := startCassandra(t)
	cfg := testConfig(addr)
	ctx := context.Background()

	store, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := store.MakeSchema(ctx, true); err != nil {
		t.Fatalf("MakeSchema: %v", err)
	}
	store.Close()

	drifted := testConfig(addr)
	drifted.PartPixLevel = cfg.PartPixLevel + 1
	if _, err := New(ctx, drifted); err == nil {
		t.Fatal("New() with a drifted part_pix_level: want ConfigError, got nil")
	}
}

const pixelDeg = 3.141592653589793 / 180
