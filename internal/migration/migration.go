package migration

import (
	"context"
	"embed"
	"fmt"
	"log"
	"sync"

	"dataanalyst/internal/errors"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed sql/sqlite3/*.sql sql/postgres/*.sql
var embedMigrations embed.FS

// goose keeps its dialect and filesystem in package state
var gooseMu sync.Mutex

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version(ctx context.Context, db *sqlx.DB) (int64, error)
}

// MigrationRunner applies the embedded goose migrations for one driver
type MigrationRunner struct {
	driver string
}

// NewRunner creates a migration runner for driver ("sqlite3" or "postgres")
func NewRunner(driver string) *MigrationRunner {
	return &MigrationRunner{driver: driver}
}

func (r *MigrationRunner) dir() (string, error) {
	switch r.driver {
	case "sqlite3", "postgres":
		return "sql/" + r.driver, nil
	default:
		return "", errors.ConfigInvalid(fmt.Sprintf("unsupported database driver %q", r.driver))
	}
}

// setup points goose at the embedded files; callers hold gooseMu
func (r *MigrationRunner) setup() (string, error) {
	dir, err := r.dir()
	if err != nil {
		return "", err
	}
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(r.driver); err != nil {
		return "", fmt.Errorf("goose set dialect: %w", err)
	}
	return dir, nil
}

// Run executes all pending migrations
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	dir, err := r.setup()
	if err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return errors.DatabaseError("failed to run migrations", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return errors.DatabaseError("failed to read schema version", err)
	}
	log.Printf("[Migration] %s schema at version %d", r.driver, version)
	return nil
}

// Version returns the applied schema version
func (r *MigrationRunner) Version(ctx context.Context, db *sqlx.DB) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if _, err := r.setup(); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return 0, errors.DatabaseError("failed to read schema version", err)
	}
	return version, nil
}

// Status logs the state of every migration
func (r *MigrationRunner) Status(ctx context.Context, db *sqlx.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	dir, err := r.setup()
	if err != nil {
		return err
	}
	goose.SetLogger(log.Default())
	if err := goose.StatusContext(ctx, db.DB, dir); err != nil {
		return errors.DatabaseError("failed to read migration status", err)
	}
	return nil
}
