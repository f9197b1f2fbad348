package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/janhq/jan-workspace/internal/configs"
	"github.com/janhq/jan-workspace/internal/domain"
	"github.com/janhq/jan-workspace/internal/domain/mention"
	"github.com/janhq/jan-workspace/internal/infrastructure/database"
	"github.com/janhq/jan-workspace/internal/infrastructure/database/repository/embeddingrepo"
	"github.com/janhq/jan-workspace/internal/infrastructure/database/repository/notificationrepo"
	"github.com/janhq/jan-workspace/internal/infrastructure/database/transaction"
	"github.com/janhq/jan-workspace/internal/infrastructure/logger"
	"github.com/janhq/jan-workspace/internal/infrastructure/queue"
	"github.com/janhq/jan-workspace/internal/infrastructure/realtime"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one embedding sweep and print the summary",
	RunE:  runSweep,
}

var notifyCmd = &cobra.Command{
	Use:   "notify <message_id>",
	Short: "Re-run notification fan-out for a stored message",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotify,
}

func setup() (*configs.Config, zerolog.Logger, *gorm.DB, error) {
	cfg, err := configs.Load()
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	log, err := logger.New(logger.Options{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Service:     cfg.ServiceName + "-cli",
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	db, err := database.Connect(database.Config{
		DatabaseURL: cfg.GetDatabaseWriteDSN(),
		MaxIdle:     2,
		MaxOpen:     4,
		MaxLifetime: cfg.DBConnMaxLifetime,
		LogLevel:    gormlogger.Warn,
	})
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	return cfg, log, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	_, _, db, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	state, err := database.AutoMigrate(cmd.Context(), db)
	if err != nil {
		return err
	}
	return printJSON(state)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, log, db, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.EmbeddingSweepTimeout)
	defer cancel()

	q, err := queue.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer queue.Close(q)

	repo := embeddingrepo.NewEmbeddingGormRepository(transaction.NewDatabase(db))
	result, err := domain.ProvideSweeper(repo, q, cfg).Sweep(ctx)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runNotify(cmd *cobra.Command, args []string) error {
	cfg, log, db, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	broadcaster, err := realtime.New(cfg, log)
	if err != nil {
		return err
	}
	defer realtime.Close(broadcaster)

	repo := notificationrepo.NewNotificationGormRepository(transaction.NewDatabase(db))
	svc := domain.ProvideNotificationService(repo, mention.NewResolver(repo), broadcaster, cfg)

	created, err := svc.DispatchMessage(cmd.Context(), args[0])
	svc.WaitBroadcasts()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "created %d notifications\n", len(created))
	return printJSON(created)
}
