// Package db opens the Postgres account database.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/logger"
)

type DB struct {
	*sql.DB
}

// maxConnectWait bounds how long Open keeps retrying the first ping.
const maxConnectWait = 30 * time.Second

// Open connects to dsn, retrying the initial ping with exponential backoff
// until the database answers or ctx is done.
func Open(ctx context.Context, dsn string, log *logger.Logger) (*DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	if err := pingWithBackoff(ctx, "postgres", sqlDB.PingContext, log); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	return &DB{DB: sqlDB}, nil
}

func pingWithBackoff(ctx context.Context, name string, ping func(context.Context) error, log *logger.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxConnectWait

	return backoff.RetryNotify(
		func() error { return ping(ctx) },
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			log.Warn("waiting for "+name, map[string]any{
				"error": err.Error(),
				"next":  next.String(),
			})
		},
	)
}
