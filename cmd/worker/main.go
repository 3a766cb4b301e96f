// Package main runs the sink worker: it applies vote, tally and daily-statistics jobs to Postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-debate/backend/config"
	"github.com/aura-debate/backend/internal/participants"
	"github.com/aura-debate/backend/internal/realtime"
	"github.com/aura-debate/backend/internal/statistics"
	"github.com/aura-debate/backend/internal/votes"
	"github.com/aura-debate/backend/internal/worker"
	"github.com/aura-debate/backend/pkg/database"
	"github.com/aura-debate/backend/pkg/queue"
	"github.com/aura-debate/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), "debate-worker", logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	statsRepo := statistics.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewProcessor(worker.Stores{
		Daily:   statsRepo,
		Global:  statsRepo,
		History: participants.NewRepository(pool),
		Tallies: votes.NewRepository(pool),
	}, jobQueue, realtime.NewRedisPubSub(rdb.Client, cfg.Live.EventChannel, logger), logger)

	if n, err := jobQueue.DeadLetters(ctx); err == nil && n > 0 {
		logger.Warn("dead-lettered sink jobs pending", zap.Int64("count", n), zap.String("queue", queue.QueueDLQ))
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	<-done
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
