// Package app assembles the storage, cache, worker and service graph shared
// by the HTTP gateway and the operator CLI.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/VPRamon/TSI-sub000/internal/repository"
	"github.com/VPRamon/TSI-sub000/internal/service"
	"github.com/VPRamon/TSI-sub000/pkg/cache"
	"github.com/VPRamon/TSI-sub000/pkg/config"
	"github.com/VPRamon/TSI-sub000/pkg/database"
	"github.com/VPRamon/TSI-sub000/pkg/jobs"
	"github.com/VPRamon/TSI-sub000/pkg/retry"
)

const populateQueueName = "populate"

// App holds the wired components.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB    *sqlx.DB
	Redis *redis.Client

	Metrics      *service.MetricsService
	Cache        *service.CacheService
	Auth         *service.AuthService
	Tracker      *service.JobTracker
	Queue        *jobs.Queue
	PopulateJobs *service.PopulateJobs
	Schedules    *service.ScheduleService
	Analytics    *service.AnalyticsService
	Exports      *service.ExportService
	Backfill     *service.BackfillScheduler

	scheduleRepo *repository.ScheduleRepository
}

// RetryPolicy converts the retry configuration.
func RetryPolicy(cfg config.RetryConfig) retry.Policy {
	policy := retry.Policy{MaxAttempts: cfg.MaxAttempts, BaseDelay: cfg.BaseDelay, MaxDelay: cfg.MaxDelay}
	if policy.MaxAttempts <= 0 {
		policy = retry.DefaultPolicy
	}
	return policy
}

// New connects to PostgreSQL and Redis and builds every service. Redis is
// optional: when it cannot be reached the read cache is disabled.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := RetryPolicy(cfg.Retry)

	db, err := database.NewPostgres(ctx, cfg.Database, policy)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, DB: db, Metrics: service.NewMetricsService()}

	var cacheRepo service.CacheRepository
	if cfg.Analytics.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		} else {
			a.Redis = client
			cacheRepo = repository.NewCacheRepository(client, logger)
		}
	}
	a.Cache = service.NewCacheService(cacheRepo, a.Metrics, cfg.Analytics.CacheTTL, logger, cacheRepo != nil)

	a.scheduleRepo = repository.NewScheduleRepository(db, cfg.Database.ChunkSize)
	stores := service.AnalyticsStores{
		Schedules:  a.scheduleRepo,
		Analytics:  repository.NewAnalyticsRepository(db, cfg.Database.ChunkSize),
		Validation: repository.NewValidationRepository(db, cfg.Database.ChunkSize),
		Summaries:  repository.NewSummaryRepository(db),
	}
	a.Analytics = service.NewAnalyticsService(db, stores, a.Cache, a.Metrics, policy, logger, service.AnalyticsConfig{
		VisibilityBins: cfg.Analytics.VisibilityBins,
		CacheTTL:       cfg.Analytics.CacheTTL,
	})
	a.Exports = service.NewExportService(a.Analytics, logger, nil, nil)

	a.Auth = service.NewAuthService(service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.Expiration,
	}, logger)

	a.Tracker = service.NewJobTracker(0)
	worker := service.NewPopulateWorker(a.Analytics, a.Tracker, cfg.Jobs.MaxRetries, logger)
	a.Queue = jobs.NewQueue(populateQueueName, worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logger,
		OnFailure:  worker.OnFailure,
	})
	a.PopulateJobs = service.NewPopulateJobs(a.Queue, a.Tracker, logger)

	a.Schedules = service.NewScheduleService(db, a.scheduleRepo, a.PopulateJobs, validator.New(), policy, a.Metrics, logger, service.ScheduleServiceConfig{
		PopulateOnStore: cfg.Jobs.PopulateOnStore,
	})

	if cfg.Backfill.Enabled {
		a.Backfill = service.NewBackfillScheduler(a.scheduleRepo, a.PopulateJobs, cfg.Backfill.Cron, cfg.Backfill.BatchSize, logger)
	}

	return a, nil
}

// Start launches the population workers and, when enabled, the backfill cron.
func (a *App) Start(ctx context.Context) error {
	a.Queue.Start(ctx)
	if a.Backfill != nil {
		if err := a.Backfill.Start(); err != nil {
			return err
		}
	}
	return nil
}

// Close stops background work and releases connections.
func (a *App) Close() error {
	if a.Backfill != nil {
		stopped := a.Backfill.Stop()
		select {
		case <-stopped.Done():
		case <-time.After(10 * time.Second):
			a.Logger.Warn("backfill did not stop in time")
		}
	}
	if a.Queue != nil {
		a.Queue.Stop()
	}

	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

// PingDatabase checks the PostgreSQL pool.
func (a *App) PingDatabase(ctx context.Context) error {
	return database.Classify(a.DB.PingContext(ctx))
}

// PingRedis checks the cache connection. It is a no-op when the cache is off.
func (a *App) PingRedis(ctx context.Context) error {
	if a.Redis == nil {
		return nil
	}
	return a.Redis.Ping(ctx).Err()
}
