package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wardwatch-systems/wardwatch/internal/analyzer"
	"github.com/wardwatch-systems/wardwatch/internal/archive"
	"github.com/wardwatch-systems/wardwatch/internal/config"
	"github.com/wardwatch-systems/wardwatch/internal/cursor"
	"github.com/wardwatch-systems/wardwatch/internal/ingest"
	"github.com/wardwatch-systems/wardwatch/internal/messaging"
	"github.com/wardwatch-systems/wardwatch/internal/registry"
	"github.com/wardwatch-systems/wardwatch/internal/repository"
	"github.com/wardwatch-systems/wardwatch/internal/rules"
)

// pipeline bundles the wired collaborators plus their teardown.
type pipeline struct {
	analyzer *analyzer.Analyzer
	alerts   repository.Repository
	systems  registry.Registry
	adapter  ingest.Adapter
	cleanup  func()
}

// buildPipeline wires the full pipeline from configuration. Optional
// backends (redis, nats, opensearch) are only dialed when enabled.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	connString := cfg.Database.Postgres.ConnString()

	alerts, err := repository.NewPostgresRepository(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect alert store: %w", err)
	}

	sealer := registry.NewCredentialSealer(cfg.Sweep.SealKey)
	systems, err := registry.NewPostgresRegistry(ctx, connString, sealer)
	if err != nil {
		alerts.Close()
		return nil, fmt.Errorf("failed to connect system registry: %w", err)
	}

	teardown := []func(){func() { systems.Close() }, func() { alerts.Close() }}
	cleanup := func() {
		for _, fn := range teardown {
			fn()
		}
	}

	var cursors cursor.Store = cursor.NoopStore{}
	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		teardown = append([]func(){func() { client.Close() }}, teardown...)
		cursors = cursor.NewRedisStore(client, 0)
	}

	var publisher messaging.Publisher = messaging.NoopPublisher{}
	if cfg.NATS.Enabled {
		pub, err := messaging.Connect(cfg.NATS.URL, "wardwatch")
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		teardown = append([]func(){pub.Close}, teardown...)
		publisher = pub
	}

	var archiver archive.Archiver
	if cfg.Archive.Enabled {
		archiver, err = archive.NewOpenSearchArchiver(archive.Config{
			URL:         cfg.Archive.URL,
			Username:    cfg.Archive.Username,
			Password:    cfg.Archive.Password,
			Insecure:    cfg.Archive.Insecure,
			IndexPrefix: cfg.Archive.IndexPrefix,
		})
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to connect archive: %w", err)
		}
	}

	ruleCfg, err := ruleConfig(cfg)
	if err != nil {
		cleanup()
		return nil, err
	}

	adapter := ingest.NewHTTPAdapter(30*time.Second, cfg.Sweep.PageLimit)
	evaluator := rules.NewEvaluator(rules.BuiltinRegistry(ruleCfg), logger.Logger)

	a := analyzer.New(analyzer.Deps{
		Adapter:     adapter,
		Evaluator:   evaluator,
		Alerts:      alerts,
		Systems:     systems,
		Cursors:     cursors,
		Archiver:    archiver,
		Publisher:   publisher,
		Logger:      logger.Logger,
		PageLimit:   cfg.Sweep.PageLimit,
		Concurrency: cfg.Sweep.Concurrency,
	})

	return &pipeline{
		analyzer: a,
		alerts:   alerts,
		systems:  systems,
		adapter:  adapter,
		cleanup:  cleanup,
	}, nil
}

// ruleConfig translates configuration into rule knobs, resolving the
// reference zone.
func ruleConfig(cfg *config.Config) (rules.Config, error) {
	zone, err := time.LoadLocation(cfg.Detection.ReferenceZone)
	if err != nil {
		return rules.Config{}, fmt.Errorf("invalid detection.reference_zone %q: %w", cfg.Detection.ReferenceZone, err)
	}

	rc := rules.Config{
		TrustedOriginPrefixes: cfg.Detection.TrustedOriginPrefixes,
		BusinessHoursStart:    cfg.Detection.BusinessHoursStart,
		BusinessHoursEnd:      cfg.Detection.BusinessHoursEnd,
		AutomationSignatures:  cfg.Detection.AutomationSignatures,
		ReferenceZone:         zone,
	}
	if err := rc.Validate(); err != nil {
		return rules.Config{}, err
	}
	return rc, nil
}
