package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	iofs "github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"github.com/janhq/jan-workspace/internal/infrastructure/logger"
	"github.com/janhq/jan-workspace/migrations"
)

// migrationsTable keeps this service's history apart from the message API's own migrations
// in a shared database.
const migrationsTable = "workspace_schema_migrations"

// MigrationState is the schema version before and after AutoMigrate.
type MigrationState struct {
	From       uint  `json:"from"`
	To         uint  `json:"to"`
	RepairedAt *uint `json:"repaired_dirty_version,omitempty"`
}

func (s MigrationState) Applied() bool {
	return s.To != s.From
}

// AutoMigrate brings the notification and embedding tables up to the bundled version.
// A dirty version left by a crashed run is forced clean and re-applied.
func AutoMigrate(ctx context.Context, gormDB *gorm.DB) (state MigrationState, err error) {
	log := logger.GetLogger().With().Str("migrations_table", migrationsTable).Logger()

	migrator, closeFn, err := newMigrator(ctx, gormDB)
	if err != nil {
		return state, err
	}
	defer func() {
		if closeErr := closeFn(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	version, dirty, err := migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info().Msg("empty schema, applying all migrations")
	case err != nil:
		return state, fmt.Errorf("read schema version: %w", err)
	}
	state.From = version

	if dirty {
		log.Warn().Uint("version", version).Msg("schema is dirty, forcing version before re-apply")
		if err := migrator.Force(int(version)); err != nil {
			return state, fmt.Errorf("force dirty version %d: %w", version, err)
		}
		state.RepairedAt = &version
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return state, fmt.Errorf("apply migrations: %w", err)
	}

	state.To, _, err = migrator.Version()
	if err != nil {
		return state, fmt.Errorf("read schema version after migrate: %w", err)
	}
	log.Info().Uint("from", state.From).Uint("to", state.To).Bool("applied", state.Applied()).Msg("workspace schema ready")
	return state, nil
}

// newMigrator pins one connection so golang-migrate's advisory lock and the DDL share a session.
func newMigrator(ctx context.Context, gormDB *gorm.DB) (*migrate.Migrate, func() error, error) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("unwrap sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("pin migration connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		_ = driver.Close()
		return nil, nil, fmt.Errorf("embedded migrations: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = source.Close()
		_ = driver.Close()
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}

	return migrator, func() error {
		sourceErr, driverErr := migrator.Close()
		return errors.Join(sourceErr, driverErr)
	}, nil
}
