package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tanvirc/bazarly-backend/api/routes"
	"github.com/tanvirc/bazarly-backend/internal/audit"
	"github.com/tanvirc/bazarly-backend/internal/carts"
	"github.com/tanvirc/bazarly-backend/internal/coupons"
	"github.com/tanvirc/bazarly-backend/internal/inventory"
	"github.com/tanvirc/bazarly-backend/internal/loyalty"
	"github.com/tanvirc/bazarly-backend/internal/notifications"
	"github.com/tanvirc/bazarly-backend/internal/orders"
	"github.com/tanvirc/bazarly-backend/internal/pricing"
	"github.com/tanvirc/bazarly-backend/internal/riders"
	"github.com/tanvirc/bazarly-backend/pkg/config"
	"github.com/tanvirc/bazarly-backend/pkg/db"
	"github.com/tanvirc/bazarly-backend/pkg/logger"
	"github.com/tanvirc/bazarly-backend/pkg/migrate"
	"github.com/tanvirc/bazarly-backend/pkg/outbox"
	"github.com/tanvirc/bazarly-backend/pkg/redis"
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

	if cfg.FeatureFlags.AutoMigrate {
		sqlDB, err := dbClient.DB().DB()
		if err != nil {
			logg.Error(context.Background(), "failed to get sql handle for migrations", err)
			os.Exit(1)
		}
		if err := migrate.Up(context.Background(), sqlDB, logg); err != nil {
			logg.Error(context.Background(), "failed to run migrations", err)
			os.Exit(1)
		}
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

	gormDB := dbClient.DB()

	pricer, err := pricing.NewEngine(coupons.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing engine", err)
		os.Exit(1)
	}

	riderSvc, err := riders.NewService(riders.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create rider service", err)
		os.Exit(1)
	}

	orderSvc, err := orders.NewService(
		dbClient,
		orders.NewRepository(gormDB),
		carts.NewRepository(gormDB),
		pricer,
		inventory.NewLedger(),
		loyalty.NewLedger(),
		riderSvc,
		outbox.NewService(outbox.NewRepository(gormDB), logg),
		audit.NewRepository(),
		logg,
		orders.Config{
			ETAMin: time.Duration(cfg.Delivery.ETAMinMinutes) * time.Minute,
			ETAMax: time.Duration(cfg.Delivery.ETAMaxMinutes) * time.Minute,
		},
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:        cfg,
			Logger:        logg,
			DBPinger:      dbClient,
			RedisPinger:   redisClient,
			Idempotency:   redisClient,
			Orders:        orderSvc,
			Notifications: notifications.NewRepository(gormDB),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}
