package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	badge "github.com/calderonstudio/ranking-backend/internal/badges"
	"github.com/calderonstudio/ranking-backend/internal/cron"
	customer "github.com/calderonstudio/ranking-backend/internal/customers"
	score "github.com/calderonstudio/ranking-backend/internal/scores"
	season "github.com/calderonstudio/ranking-backend/internal/seasons"
	"github.com/calderonstudio/ranking-backend/pkg/config"
	"github.com/calderonstudio/ranking-backend/pkg/db"
	"github.com/calderonstudio/ranking-backend/pkg/instance"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
	"github.com/calderonstudio/ranking-backend/pkg/metrics"
	"github.com/calderonstudio/ranking-backend/pkg/migrate"
	"github.com/calderonstudio/ranking-backend/pkg/outbox"
	"github.com/calderonstudio/ranking-backend/pkg/redis"
)

const lockKeyFormat = "cron-worker:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build job registry", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Scheduler.Interval(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	gormDB := dbClient.DB()

	customerRepo := customer.NewRepository(gormDB)
	seasonRepo := season.NewRepository(gormDB)
	scoreRepo := score.NewRepository(gormDB)
	badgeRepo := badge.NewRepository(gormDB)
	outboxRepo := outbox.NewRepository(gormDB)
	events := outbox.NewService(outboxRepo, logg)

	seasonService, err := season.NewService(seasonRepo, scoreRepo, badgeRepo, dbClient, events, logg)
	if err != nil {
		return nil, err
	}
	badgeService, err := badge.NewService(badgeRepo, customerRepo, dbClient, events, logg)
	if err != nil {
		return nil, err
	}

	lifecycleJob, err := cron.NewSeasonLifecycleJob(cron.SeasonLifecycleJobParams{
		Logger:    logg,
		Lifecycle: seasonService,
	})
	if err != nil {
		return nil, err
	}
	ladderJob, err := cron.NewLadderSweepJob(cron.LadderSweepJobParams{
		Logger:  logg,
		Sweeper: badgeService,
	})
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(lifecycleJob, ladderJob, retentionJob), nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
