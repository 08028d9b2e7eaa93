package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dataanalyst/domain/core"
	"dataanalyst/domain/dataset"
	"dataanalyst/internal/errors"
	"dataanalyst/ports"

	"github.com/jmoiron/sqlx"
)

const datasetColumns = `id, session_id, original_filename, storage_key, content_hash, file_size, mime_type,
	record_count, field_count, missing_rate, status, error_message, metadata, created_at, updated_at`

// datasetRow adds the serialized metadata column to a dataset
type datasetRow struct {
	dataset.Dataset
	MetadataJSON string `db:"metadata"`
}

func (row *datasetRow) toDataset() (*dataset.Dataset, error) {
	ds := row.Dataset
	if row.MetadataJSON != "" {
		if err := json.Unmarshal([]byte(row.MetadataJSON), &ds.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &ds, nil
}

// datasetRepository implements the DatasetRepository interface
type datasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *sqlx.DB) ports.DatasetRepository {
	return &datasetRepository{db: db}
}

// Create inserts a new dataset into the database
func (r *datasetRepository) Create(ctx context.Context, ds *dataset.Dataset) error {
	metadataJSON, err := json.Marshal(ds.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	now := time.Now().UTC()
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = now
	}
	ds.UpdatedAt = now

	query := r.db.Rebind(`INSERT INTO datasets (` + datasetColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.db.ExecContext(ctx, query,
		ds.ID, ds.SessionID, ds.OriginalFilename, ds.StorageKey, ds.ContentHash, ds.FileSize, ds.MimeType,
		ds.RecordCount, ds.FieldCount, ds.MissingRate, ds.Status, ds.ErrorMessage, string(metadataJSON),
		ds.CreatedAt.UTC(), ds.UpdatedAt,
	)
	if err != nil {
		return errors.DatabaseError("failed to create dataset", err)
	}
	return nil
}

// GetByID retrieves a dataset by its ID
func (r *datasetRepository) GetByID(ctx context.Context, id core.DatasetID) (*dataset.Dataset, error) {
	var row datasetRow
	query := r.db.Rebind(`SELECT ` + datasetColumns + ` FROM datasets WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(fmt.Sprintf("dataset %s", id))
		}
		return nil, errors.DatabaseError("failed to get dataset", err)
	}
	return row.toDataset()
}

// LatestForSession returns the most recent upload of a session
func (r *datasetRepository) LatestForSession(ctx context.Context, sessionID core.SessionID) (*dataset.Dataset, error) {
	datasets, err := r.ListBySession(ctx, sessionID, 1)
	if err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		return nil, errors.NotFound(fmt.Sprintf("dataset for session %s", sessionID))
	}
	return datasets[0], nil
}

// ListBySession returns the uploads of a session, newest first
func (r *datasetRepository) ListBySession(ctx context.Context, sessionID core.SessionID, limit int) ([]*dataset.Dataset, error) {
	query := r.db.Rebind(`SELECT ` + datasetColumns + ` FROM datasets
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`)
	return r.list(ctx, query, sessionID, limit)
}

// ListExpired returns datasets that have not been touched since cutoff
func (r *datasetRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]*dataset.Dataset, error) {
	query := r.db.Rebind(`SELECT ` + datasetColumns + ` FROM datasets
		WHERE updated_at < ?
		ORDER BY updated_at
		LIMIT ?`)
	return r.list(ctx, query, cutoff.UTC(), limit)
}

func (r *datasetRepository) list(ctx context.Context, query string, args ...interface{}) ([]*dataset.Dataset, error) {
	var rows []datasetRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseError("failed to query datasets", err)
	}
	datasets := make([]*dataset.Dataset, 0, len(rows))
	for i := range rows {
		ds, err := rows[i].toDataset()
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

// UpdateStatus records a processing state change
func (r *datasetRepository) UpdateStatus(ctx context.Context, id core.DatasetID, status dataset.DatasetStatus, errorMsg string) error {
	query := r.db.Rebind(`UPDATE datasets SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, status, errorMsg, time.Now().UTC(), id)
	if err != nil {
		return errors.DatabaseError("failed to update dataset status", err)
	}
	return expectRow(result, fmt.Sprintf("dataset %s", id))
}

// Delete removes a dataset and, through the foreign key, its exports
func (r *datasetRepository) Delete(ctx context.Context, id core.DatasetID) error {
	query := r.db.Rebind(`DELETE FROM datasets WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.DatabaseError("failed to delete dataset", err)
	}
	return expectRow(result, fmt.Sprintf("dataset %s", id))
}

func expectRow(result sql.Result, resource string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("failed to get rows affected", err)
	}
	if n == 0 {
		return errors.NotFound(resource)
	}
	return nil
}
