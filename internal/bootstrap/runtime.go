package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution"
	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/source"
	"github.com/angelmondragon/sponsorlens-backend/pkg/bigquery"
	"github.com/angelmondragon/sponsorlens-backend/pkg/config"
	"github.com/angelmondragon/sponsorlens-backend/pkg/db"
	"github.com/angelmondragon/sponsorlens-backend/pkg/logger"
	"github.com/angelmondragon/sponsorlens-backend/pkg/metrics"
	"github.com/angelmondragon/sponsorlens-backend/pkg/migrate"
	"github.com/angelmondragon/sponsorlens-backend/pkg/pubsub"
	"github.com/angelmondragon/sponsorlens-backend/pkg/redis"
)

// Runtime holds the shared clients and the attribution engine for a binary.
// Redis, BigQuery and PubSub are nil when not configured.
type Runtime struct {
	DB          *db.Client
	Redis       *redis.Client
	BigQuery    *bigquery.Client
	PubSub      *pubsub.Client
	Attribution attribution.Service

	closers []func() error
}

// Open connects every configured dependency and wires the engine.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer) (rt *Runtime, err error) {
	rt = &Runtime{}
	defer func() {
		if err != nil {
			err = multierr.Append(err, rt.Close())
			rt = nil
		}
	}()

	rt.DB, err = db.New(ctx, cfg.DB, logg)
	if err != nil {
		return rt, fmt.Errorf("bootstrap database: %w", err)
	}
	rt.closers = append(rt.closers, rt.DB.Close)

	if err = migrate.MaybeRunDev(ctx, cfg, logg, rt.DB); err != nil {
		return rt, fmt.Errorf("dev migrations: %w", err)
	}

	if cfg.Redis.Enabled() {
		rt.Redis, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return rt, fmt.Errorf("bootstrap redis: %w", err)
		}
		rt.closers = append(rt.closers, rt.Redis.Close)
	} else {
		logg.Warn(ctx, "redis not configured; result cache and idempotency disabled")
	}

	if cfg.Attribution.Source() == config.EventSourceBigQuery {
		rt.BigQuery, err = bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			return rt, fmt.Errorf("bootstrap bigquery: %w", err)
		}
		rt.closers = append(rt.closers, rt.BigQuery.Close)
	}

	if cfg.FeatureFlags.PublishResults {
		rt.PubSub, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return rt, fmt.Errorf("bootstrap pubsub: %w", err)
		}
		rt.closers = append(rt.closers, rt.PubSub.Close)
	}

	rt.Attribution, err = NewEngine(EngineParams{
		Config:   cfg,
		Logger:   logg,
		DB:       rt.DB.DB(),
		Redis:    rt.Redis,
		BigQuery: rt.BigQuery,
		PubSub:   rt.PubSub,
		Registry: reg,
	})
	if err != nil {
		return rt, err
	}
	return rt, nil
}

// Close releases clients in reverse order of creation.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	var errs error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errs
}

// EngineParams are the collaborators NewEngine picks from.
type EngineParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *gorm.DB
	Redis    *redis.Client
	BigQuery *bigquery.Client
	PubSub   *pubsub.Client
	Registry prometheus.Registerer
}

// NewEngine selects the event source, cache and notifier from config and
// builds the attribution service.
func NewEngine(p EngineParams) (attribution.Service, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if p.DB == nil {
		return nil, fmt.Errorf("database required")
	}

	events, err := eventSource(p)
	if err != nil {
		return nil, err
	}

	params := attribution.ServiceParams{
		Events:       events,
		Paths:        attribution.NewPathRepository(p.DB),
		Results:      attribution.NewResultRepository(p.DB),
		Logger:       p.Logger,
		HalfLifeDays: p.Config.Attribution.HalfLifeDays,
		QueryTimeout: p.Config.Attribution.QueryTimeout,
	}
	if p.Registry != nil {
		params.Metrics = metrics.NewAttributionMetrics(p.Registry)
	}
	if p.Redis != nil && p.Config.FeatureFlags.CacheLatestRuns {
		cache, err := attribution.NewRedisResultCache(p.Redis, p.Config.Attribution.ResultCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("result cache: %w", err)
		}
		params.Cache = cache
	}
	if p.PubSub != nil {
		notifier, err := attribution.NewPubSubNotifier(p.PubSub.AttributionPublisher())
		if err != nil {
			return nil, fmt.Errorf("result notifier: %w", err)
		}
		params.Notifier = notifier
	}

	svc, err := attribution.NewService(params)
	if err != nil {
		return nil, fmt.Errorf("attribution service: %w", err)
	}
	return svc, nil
}

func eventSource(p EngineParams) (attribution.EventSource, error) {
	switch p.Config.Attribution.Source() {
	case config.EventSourceBigQuery:
		if p.BigQuery == nil {
			return nil, fmt.Errorf("bigquery client required for %s event source", config.EventSourceBigQuery)
		}
		src, err := source.NewBigQueryEventSource(p.BigQuery, p.Config.BigQuery.TouchpointEventsTable)
		if err != nil {
			return nil, fmt.Errorf("bigquery event source: %w", err)
		}
		return src, nil
	case config.EventSourcePostgres:
		src, err := source.NewPostgresEventSource(p.DB)
		if err != nil {
			return nil, fmt.Errorf("postgres event source: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unsupported attribution event source %q", p.Config.Attribution.EventSource)
	}
}
