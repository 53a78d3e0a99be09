// Package app wires configuration, storage and HTTP into a runnable server.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/config"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/logger"
)

type App struct {
	httpServer *http.Server
	cleanup    func() error
}

func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	handler, cleanup, err := setupHTTP(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		httpServer: server,
		cleanup:    cleanup,
	}, nil
}

// Handler is the fully wired HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run blocks serving HTTP. It returns nil after Shutdown.
func (a *App) Run() error {
	err := a.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	if a.cleanup != nil {
		return a.cleanup()
	}
	return nil
}
