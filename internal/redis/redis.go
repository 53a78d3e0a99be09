// Package redis connects the session binding cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/redis/go-redis/v9"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/logger"
)

type Client struct {
	*goredis.Client
}

const (
	pingTimeout    = 2 * time.Second
	maxConnectWait = 15 * time.Second
)

// New connects to addr and waits, with backoff, for the first PING to
// succeed.
func New(ctx context.Context, addr, password string, log *logger.Logger) (*Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxConnectWait

	err := backoff.RetryNotify(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()
			return client.Ping(pingCtx).Err()
		},
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			log.Warn("waiting for redis", map[string]any{
				"addr":  addr,
				"error": err.Error(),
				"next":  next.String(),
			})
		},
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}

	return &Client{Client: client}, nil
}
