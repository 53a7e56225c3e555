package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclelog/platform/internal/app"
	"github.com/cyclelog/platform/internal/infra"
	"github.com/cyclelog/platform/internal/metrics"
	"github.com/cyclelog/platform/internal/projection"
	"github.com/cyclelog/platform/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("gamification worker failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("gamification-worker connected to postgres")

	var cache projection.Store
	if cfg.RedisEnabled {
		redisStore, err := projection.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisStore.Close()
		cache = redisStore
	}

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()
	consumer := infra.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaCycleTopic, cfg.KafkaGroupID, cfg.KafkaEnabled, logger)
	defer consumer.Close()

	svc := app.NewGamificationService(pool, cache, cfg.SnapshotTTL, logger)

	if producer.Enabled() {
		infra.NewOutboxPoller(pool, producer, cfg.KafkaEventsTopic, logger).Start(ctx)
	} else {
		logger.Warn("kafka disabled, gamification events stay in the outbox")
	}

	handler := worker.NewCycleHandler(svc, cache, cfg.RefreshDebounce, cfg.Location(), logger)
	defer handler.Stop()

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerMetricsPort),
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("worker metrics listening", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if !consumer.Enabled() {
			logger.Info("kafka disabled, cycle events will not be consumed")
			<-gctx.Done()
			return nil
		}
		logger.Info("consuming cycle events", "topic", cfg.KafkaCycleTopic, "group", cfg.KafkaGroupID)
		if err := handler.Run(gctx, consumer); err != nil {
			return fmt.Errorf("consume cycle events: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("gamification-worker shutting down")
	return err
}
