package main

import (
	"context"

	"github.com/onecodex/taxonomy-time-machine/internal/query"
	ttmstorage "github.com/onecodex/taxonomy-time-machine/internal/storage"
	"github.com/onecodex/taxonomy-time-machine/internal/storage/sqlite"
)

func openEngine(ctx context.Context) (ttmstorage.Storage, *query.Engine, error) {
	cfg := configFrom(ctx)
	store, err := sqlite.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return store, query.New(store), nil
}
