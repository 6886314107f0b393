package main

import (
	"context"

	"github.com/ap-survey/apdb/internal/apdb"
	"github.com/ap-survey/apdb/internal/backend"
	"github.com/ap-survey/apdb/internal/config"
)

// openBackend loads configuration from --config (or the usual search
// path) and constructs the engine it names, matching the teacher's
// pattern of resolving the store once per command invocation.
func openBackend(ctx context.Context) (apdb.APDB, *config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	store, err := backend.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}
