package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Connect reads the connection parameters from the environment and opens a
// pgx pool, verifying the connection with a ping.
func Connect(ctx context.Context) (*pgxpool.Pool, error) {
	cfg := NewDBConfigFromEnv()
	if !cfg.Complete() {
		return nil, fmt.Errorf("DB config incomplete: DB_USER/DB_HOST/DB_PORT/DB_NAME must be set")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithFields(log.Fields{"host": cfg.Host, "db": cfg.DBName}).Info("connected to postgres")
	return pool, nil
}
