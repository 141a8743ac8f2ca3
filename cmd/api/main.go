package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/calderonstudio/ranking-backend/api/routes"
	badge "github.com/calderonstudio/ranking-backend/internal/badges"
	cartpkg "github.com/calderonstudio/ranking-backend/internal/cart"
	checkoutpkg "github.com/calderonstudio/ranking-backend/internal/checkout"
	customer "github.com/calderonstudio/ranking-backend/internal/customers"
	notification "github.com/calderonstudio/ranking-backend/internal/notifications"
	product "github.com/calderonstudio/ranking-backend/internal/products"
	score "github.com/calderonstudio/ranking-backend/internal/scores"
	season "github.com/calderonstudio/ranking-backend/internal/seasons"
	"github.com/calderonstudio/ranking-backend/pkg/config"
	"github.com/calderonstudio/ranking-backend/pkg/db"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
	"github.com/calderonstudio/ranking-backend/pkg/migrate"
	"github.com/calderonstudio/ranking-backend/pkg/outbox"
	"github.com/calderonstudio/ranking-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	services, err := buildServices(dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, services),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(dbClient *db.Client, logg *logger.Logger) (routes.Services, error) {
	gormDB := dbClient.DB()

	customerRepo := customer.NewRepository(gormDB)
	seasonRepo := season.NewRepository(gormDB)
	scoreRepo := score.NewRepository(gormDB)
	badgeRepo := badge.NewRepository(gormDB)
	productRepo := product.NewRepository(gormDB)
	cartRepo := cartpkg.NewRepository(gormDB)

	events := outbox.NewService(outbox.NewRepository(gormDB), logg)

	notifier, err := notification.NewNotifier(events)
	if err != nil {
		return routes.Services{}, err
	}

	customerService, err := customer.NewService(customerRepo, dbClient, logg)
	if err != nil {
		return routes.Services{}, err
	}
	badgeService, err := badge.NewService(badgeRepo, customerRepo, dbClient, events, logg)
	if err != nil {
		return routes.Services{}, err
	}
	seasonService, err := season.NewService(seasonRepo, scoreRepo, badgeRepo, dbClient, events, logg)
	if err != nil {
		return routes.Services{}, err
	}
	scoreService, err := score.NewService(scoreRepo, seasonRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}
	productService, err := product.NewService(productRepo)
	if err != nil {
		return routes.Services{}, err
	}
	cartService, err := cartpkg.NewService(cartRepo, productRepo, customerRepo, dbClient, notifier, logg)
	if err != nil {
		return routes.Services{}, err
	}
	checkoutService, err := checkoutpkg.NewService(cartRepo, productRepo, scoreService, dbClient, notifier, logg)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Customers: customerService,
		Seasons:   seasonService,
		Badges:    badgeService,
		Products:  productService,
		Scores:    scoreService,
		Cart:      cartService,
		Checkout:  checkoutService,
	}, nil
}
