package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cassiomorais/payhub/internal/application"
	"github.com/cassiomorais/payhub/internal/controller"
	"github.com/cassiomorais/payhub/internal/infrastructure/config"
	"github.com/cassiomorais/payhub/internal/infrastructure/observability"
	redisinfra "github.com/cassiomorais/payhub/internal/infrastructure/redis"
	"github.com/cassiomorais/payhub/internal/providers"
	"github.com/cassiomorais/payhub/internal/repository/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer("payhub", cfg.Observability.JaegerEndpoint)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			observability.Shutdown(shutdownCtx, tp)
		}()
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.EnableMetrics {
		metrics = observability.NewMetrics("payhub", registry)
	}

	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.Database.DatabaseDSN()); err != nil {
		return err
	}

	redisClient, err := redisinfra.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	repo := postgres.NewPaymentRepository(pool)

	providerRegistry, err := providers.NewRegistry(cfg.Providers, providers.Deps{
		Store: repo,
		Redirects: providers.RedirectURLs{
			SuccessURL: cfg.Payment.SuccessURL,
			FailureURL: cfg.Payment.FailureURL,
		},
		Logger: logger,
		OnBreakerStateChange: func(name string, state gobreaker.State) {
			if metrics != nil {
				metrics.ObserveBreakerState(name, state)
			}
		},
	})
	if err != nil {
		return err
	}

	service := application.NewService(
		repo,
		providerRegistry,
		postgres.NewTxManager(pool),
		redisinfra.NewLockManager(redisClient, cfg.Payment.LockTTL),
		metrics,
		logger,
	)

	router := controller.NewRouter(controller.RouterDeps{
		Service:     service,
		Pool:        pool,
		Redis:       redisClient,
		Metrics:     metrics,
		Registry:    registry,
		Logger:      logger,
		ServerCfg:   cfg.Server,
		EnableTrace: cfg.Observability.EnableTracing,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Int("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
