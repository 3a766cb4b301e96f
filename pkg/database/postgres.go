package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// NewPostgresPool opens the pool shared by the repositories of one process.
// appName shows up in pg_stat_activity so server and worker connections can be told apart.
func NewPostgresPool(ctx context.Context, dsn, appName string, logger *zap.Logger) (*pgxpool.Pool, error) {
	config, err := poolConfig(dsn, appName)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("postgres pool ready",
		zap.String("application_name", appName),
		zap.Int32("min_conns", config.MinConns),
		zap.Int32("max_conns", config.MaxConns),
	)
	return pool, nil
}

func poolConfig(dsn, appName string) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	if appName != "" {
		config.ConnConfig.RuntimeParams["application_name"] = appName
	}
	if config.MinConns < 1 {
		config.MinConns = 1
	}
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = time.Minute
	return config, nil
}
