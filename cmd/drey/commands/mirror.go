package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/drey/internal/config"
	"github.com/dyluth/drey/internal/printer"
	"github.com/dyluth/drey/pkg/mirror"
)

// connectMirror opens the configured mirror and verifies Redis is reachable.
func connectMirror(ctx context.Context, cfg *config.DreyConfig) (*mirror.Client, error) {
	if cfg.Mirror == nil {
		return nil, printer.Error(
			"no mirror configured",
			"This command needs a Redis mirror but the configuration has no 'mirror' section.",
			[]string{"Add a mirror to drey.yml:\n  mirror:\n    name: workspace\n    redis_url: redis://localhost:6379"},
		)
	}

	redisOpts, err := cfg.Mirror.RedisOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client, err := mirror.NewClient(redisOpts, cfg.Mirror.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create mirror client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", cfg.Mirror.RedisURL),
			map[string]string{"mirror": cfg.Mirror.Name, "error": err.Error()},
			[]string{"Check that Redis is running and redis_url in drey.yml is correct"},
		)
	}

	return client, nil
}
