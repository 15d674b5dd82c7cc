package main

import (
	"context"

	"github.com/onecodex/taxonomy-time-machine/internal/config"
)

type ctxKey int

const configKey ctxKey = 0

func withConfig(ctx context.Context, cfg config.Config) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey, cfg)
}

func configFrom(ctx context.Context) config.Config {
	cfg, _ := ctx.Value(configKey).(config.Config)
	return cfg
}
