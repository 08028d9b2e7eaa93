package migration

import (
	"context"
	"testing"

	"dataanalyst/internal/errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryDB(t *testing.T) *sqlx.DB {
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunAppliesAllMigrations(t *testing.T) {
	ctx := context.Background()
	db := memoryDB(t)
	runner := NewRunner("sqlite3")

	require.NoError(t, runner.Run(ctx, db))
	version, err := runner.Version(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	// second run is a no-op
	require.NoError(t, runner.Run(ctx, db))

	var tables []string
	require.NoError(t, db.Select(&tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('datasets', 'exports') ORDER BY name`))
	assert.Equal(t, []string{"datasets", "exports"}, tables)
}

func TestUnsupportedDriver(t *testing.T) {
	err := NewRunner("mysql").Run(context.Background(), memoryDB(t))
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
