package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"dataanalyst/domain/core"
	"dataanalyst/domain/dataset"
	apperrors "dataanalyst/internal/errors"
	"dataanalyst/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	db, err := Open(context.Background(), "sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.NewRunner("sqlite3").Run(context.Background(), db))
	return db
}

func newDataset(session core.SessionID, name string) *dataset.Dataset {
	return &dataset.Dataset{
		ID:               core.NewDatasetID(),
		SessionID:        session,
		OriginalFilename: name,
		StorageKey:       "uploads/" + name,
		ContentHash:      core.NewHash([]byte(name)),
		FileSize:         42,
		MimeType:         "text/csv",
		RecordCount:      5,
		FieldCount:       3,
		MissingRate:      0.0667,
		Status:           dataset.StatusUploaded,
		Metadata: dataset.DatasetMetadata{Fields: []dataset.FieldInfo{
			{Name: "x", DType: "int64", UniqueCount: 5},
		}},
	}
}

func TestMigrationVersion(t *testing.T) {
	db := setupTestDB(t)
	version, err := migration.NewRunner("sqlite3").Version(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	// running again is a no-op
	require.NoError(t, migration.NewRunner("sqlite3").Run(context.Background(), db))

	_, err = migration.NewRunner("mysql").Version(context.Background(), db)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
}

func TestDatasetRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewDatasetRepository(setupTestDB(t))
	session := core.NewSessionID()

	ds := newDataset(session, "sales.csv")
	require.NoError(t, repo.Create(ctx, ds))
	assert.False(t, ds.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", got.OriginalFilename)
	assert.Equal(t, ds.ContentHash, got.ContentHash)
	assert.Equal(t, dataset.StatusUploaded, got.Status)
	assert.Equal(t, ds.Metadata, got.Metadata)
	assert.InDelta(t, 0.0667, got.MissingRate, 1e-9)

	require.NoError(t, repo.UpdateStatus(ctx, ds.ID, dataset.StatusFailed, "bad file"))
	got, err = repo.GetByID(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, dataset.StatusFailed, got.Status)
	assert.Equal(t, "bad file", got.ErrorMessage)

	require.NoError(t, repo.Delete(ctx, ds.ID))
	_, err = repo.GetByID(ctx, ds.ID)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))

	err = repo.Delete(ctx, ds.ID)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))
}

func TestDatasetRepositorySessionQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewDatasetRepository(setupTestDB(t))
	session := core.NewSessionID()

	first := newDataset(session, "first.csv")
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, first))
	second := newDataset(session, "second.csv")
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, newDataset(core.NewSessionID(), "other.csv")))

	latest, err := repo.LatestForSession(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	all, err := repo.ListBySession(ctx, session, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[1].ID)

	_, err = repo.LatestForSession(ctx, core.NewSessionID())
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))

	expired, err := repo.ListExpired(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, expired, 3)

	expired, err = repo.ListExpired(ctx, time.Now().Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestExportRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	datasets := NewDatasetRepository(db)
	exports := NewExportRepository(db)

	ds := newDataset(core.NewSessionID(), "sales.csv")
	require.NoError(t, datasets.Create(ctx, ds))

	for _, format := range []string{"csv", "pdf"} {
		require.NoError(t, exports.Create(ctx, &dataset.Export{
			ID:         core.NewExportID(),
			DatasetID:  ds.ID,
			Format:     format,
			Filename:   "data_export." + format,
			StorageKey: "exports/data_export." + format,
			Size:       10,
		}))
	}

	list, err := exports.ListByDataset(ctx, ds.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "csv", list[0].Format)

	require.NoError(t, exports.DeleteByDataset(ctx, ds.ID))
	list, err = exports.ListByDataset(ctx, ds.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
