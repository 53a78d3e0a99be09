package app

import (
	"context"
	"errors"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/account"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/config"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/db"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/logger"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/redis"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/session"
)

type Infra struct {
	Accounts account.Store
	// Sessions is nil when no Redis address is configured.
	Sessions session.Store

	closers []func() error
}

func (i *Infra) Close() error {
	var errs []error
	for _, c := range i.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func setupInfra(ctx context.Context, cfg config.Config, log *logger.Logger) (*Infra, error) {
	infra := &Infra{}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		infra.Accounts = account.NewMemoryStore()
		log.Warn("using in-memory account store", nil)
	default:
		database, err := db.Open(ctx, cfg.DatabaseDSN, log.With(map[string]any{"component": "db"}))
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, database.Close)

		if err := db.Migrate(ctx, database.DB); err != nil {
			_ = infra.Close()
			return nil, err
		}
		infra.Accounts = account.NewPostgresStore(database.DB)
		log.Info("database ready", nil)
	}

	if cfg.RedisAddr != "" {
		redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword, log.With(map[string]any{"component": "redis"}))
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
		infra.closers = append(infra.closers, redisClient.Close)
		infra.Sessions = session.NewRedisStore(redisClient.Client)
		log.Info("redis ready", map[string]any{"addr": cfg.RedisAddr})
	}

	return infra, nil
}
