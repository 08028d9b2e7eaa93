package container

import (
	"context"
	"testing"

	"dataanalyst/adapters/sqlstore"
	"dataanalyst/domain/dataset"
	"dataanalyst/internal/config"
	"dataanalyst/internal/migration"
	"dataanalyst/internal/visualization"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestInitWithDatabase(t *testing.T) {
	ctx := context.Background()
	cfg := config.Defaults()
	cfg.Storage.LocalDir = t.TempDir()

	db, err := sqlstore.Open(ctx, "sqlite3", "file:container_test?mode=memory&cache=shared&_foreign_keys=on")
	require.NoError(t, err)
	require.NoError(t, migration.NewRunner("sqlite3").Run(ctx, db))

	c, err := New(cfg)
	require.NoError(t, err)
	assert.Error(t, c.Start())
	assert.Error(t, c.InitWithDatabase(ctx, nil))

	require.NoError(t, c.InitWithDatabase(ctx, db))
	assert.Equal(t, "local", c.Blobs.Backend())
	assert.NotNil(t, c.DatasetRepo)
	assert.NotNil(t, c.ExportRepo)
	assert.NotNil(t, c.Sessions)
	assert.NotNil(t, c.Visualizer(visualization.TemplateLight))

	require.NoError(t, c.Start())
	require.NoError(t, c.Shutdown(ctx))
}

func TestLenientNumbersReachCleaning(t *testing.T) {
	prices := func() *dataset.Frame {
		return dataset.MustFrame(dataset.NewColumn("price", dataset.KindObject, []dataset.Value{
			dataset.String("$1,200"), dataset.String("(5)"), dataset.String("30%"),
		}))
	}

	strict, err := New(config.Defaults())
	require.NoError(t, err)
	out, err := strict.Processor.Process(prices())
	require.NoError(t, err)
	assert.Empty(t, out.NumericColumns())

	cfg := config.Defaults()
	cfg.Cleaning.LenientNumbers = true
	lenient, err := New(cfg)
	require.NoError(t, err)
	out, err = lenient.Processor.Process(prices())
	require.NoError(t, err)
	require.Equal(t, []string{"price"}, out.NumericColumns())
	col, _ := out.Column("price")
	assert.Equal(t, []float64{1200, -5, 30}, col.Floats())
}
