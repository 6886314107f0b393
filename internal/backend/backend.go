// Package backend selects and constructs the configured APDB engine,
// mirroring the teacher's storage/factory registry-of-constructors
// pattern: each concrete backend registers itself by name at package init,
// and New dispatches on Config.Backend.
package backend

import (
	"context"

	"github.com/ap-survey/apdb/internal/apdb"
	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/config"
)

// Factory constructs a backend from the loaded configuration.
type Factory func(ctx context.Context, cfg *config.Config) (apdb.APDB, error)

var registry = make(map[string]Factory)

// Register adds a named backend factory. Called from each backend
// package's init function, matching the teacher's RegisterBackend.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New dispatches on cfg.Backend ("cassandra" by default, or "sql") and
// constructs the corresponding engine. An unregistered or unknown backend
// name is a ConfigError, never a panic.
func New(ctx context.Context, cfg *config.Config) (apdb.APDB, error) {
	name := cfg.Backend
	if name == "" {
		name = "cassandra"
	}
	factory, ok := registry[name]
	if !ok {
		return nil, apdberr.NewConfigError("backend.New", unknownBackend(name))
	}
	return factory(ctx, cfg)
}

type unknownBackendError string

func (e unknownBackendError) Error() string { return "unknown backend: " + string(e) }

func unknownBackend(name string) error { return unknownBackendError(name) }
