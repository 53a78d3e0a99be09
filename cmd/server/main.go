package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/app"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/config"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/logger"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	log := logger.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to load config", map[string]any{"error": err.Error()})
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", map[string]any{"error": err.Error()})
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize app", map[string]any{
			"error": err.Error(),
		})
	}

	go func() {
		if err := application.Run(); err != nil {
			log.Fatal("http server failed", map[string]any{
				"error": err.Error(),
			})
		}
	}()

	log.Info("sessionhalt started", map[string]any{
		"port":  cfg.AppPort,
		"env":   cfg.AppEnv,
		"store": cfg.StoreDriver,
	})

	<-ctx.Done()

	log.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Fatal("graceful shutdown failed", map[string]any{
			"error": err.Error(),
		})
	}

	log.Info("sessionhalt stopped cleanly", nil)
}
