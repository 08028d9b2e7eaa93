package sqlstore

import (
	"context"
	"time"

	"dataanalyst/domain/core"
	"dataanalyst/domain/dataset"
	"dataanalyst/internal/errors"
	"dataanalyst/ports"

	"github.com/jmoiron/sqlx"
)

type exportRepository struct {
	db *sqlx.DB
}

// NewExportRepository creates a new export repository
func NewExportRepository(db *sqlx.DB) ports.ExportRepository {
	return &exportRepository{db: db}
}

func (r *exportRepository) Create(ctx context.Context, e *dataset.Export) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO exports (id, dataset_id, format, filename, storage_key, size, created_at)
		VALUES (:id, :dataset_id, :format, :filename, :storage_key, :size, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return errors.DatabaseError("failed to create export", err)
	}
	return nil
}

func (r *exportRepository) ListByDataset(ctx context.Context, datasetID core.DatasetID) ([]*dataset.Export, error) {
	var exports []*dataset.Export
	query := r.db.Rebind(`SELECT id, dataset_id, format, filename, storage_key, size, created_at
		FROM exports WHERE dataset_id = ? ORDER BY created_at, id`)
	if err := r.db.SelectContext(ctx, &exports, query, datasetID); err != nil {
		return nil, errors.DatabaseError("failed to list exports", err)
	}
	return exports, nil
}

// DeleteByDataset removes the export records of a dataset. sqlite only
// cascades with foreign keys enabled, so the janitor calls this explicitly.
func (r *exportRepository) DeleteByDataset(ctx context.Context, datasetID core.DatasetID) error {
	query := r.db.Rebind(`DELETE FROM exports WHERE dataset_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, datasetID); err != nil {
		return errors.DatabaseError("failed to delete exports", err)
	}
	return nil
}
