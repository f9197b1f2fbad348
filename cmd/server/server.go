package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/janhq/jan-workspace/internal/configs"
	"github.com/janhq/jan-workspace/internal/domain/embedding"
	"github.com/janhq/jan-workspace/internal/domain/notification"
	"github.com/janhq/jan-workspace/internal/infrastructure"
	"github.com/janhq/jan-workspace/internal/infrastructure/crontab"
	"github.com/janhq/jan-workspace/internal/infrastructure/observability"
	"github.com/janhq/jan-workspace/internal/interfaces/httpserver"
)

type Application struct {
	httpServer    *httpserver.HTTPServer
	crontab       *crontab.Crontab
	worker        *embedding.Worker
	consumer      embedding.Consumer
	notifications *notification.Service
	infra         *infrastructure.Infrastructure
	config        *configs.Config
}

// Start runs the HTTP server, the sweep scheduler and, when enabled, the pull-mode worker
// until ctx is cancelled or one of them fails.
func (application *Application) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return application.httpServer.Run(ctx)
	})
	eg.Go(func() error {
		return application.crontab.Run(ctx)
	})
	if application.config.WorkerEnabled {
		eg.Go(func() error {
			return application.worker.Run(ctx, application.consumer)
		})
	}
	return eg.Wait()
}

func (application *Application) Shutdown() {
	application.notifications.WaitBroadcasts()
	application.infra.Close()
}

func main() {
	loadEnvFiles()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "jan-workspace: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := CreateApplication()
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	log := application.infra.Logger

	otelShutdown, err := observability.Setup(ctx, application.config, log)
	if err != nil {
		log.Error().Err(err).Msg("initialize observability")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("shutdown telemetry")
			}
		}()
	}

	log.Info().
		Str("service", application.config.ServiceName).
		Str("environment", application.config.Environment).
		Bool("worker_enabled", application.config.WorkerEnabled).
		Msg("starting jan-workspace")

	err = application.Start(ctx)
	application.Shutdown()
	if err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return err
	}
	log.Info().Msg("application exited cleanly")
	return nil
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
