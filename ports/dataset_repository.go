package ports

import (
	"context"
	"time"

	"dataanalyst/domain/core"
	"dataanalyst/domain/dataset"
)

// DatasetRepository defines the interface for dataset storage operations
type DatasetRepository interface {
	// Core CRUD operations
	Create(ctx context.Context, ds *dataset.Dataset) error
	GetByID(ctx context.Context, id core.DatasetID) (*dataset.Dataset, error)
	Delete(ctx context.Context, id core.DatasetID) error

	// Session queries
	LatestForSession(ctx context.Context, sessionID core.SessionID) (*dataset.Dataset, error)
	ListBySession(ctx context.Context, sessionID core.SessionID, limit int) ([]*dataset.Dataset, error)

	// ListExpired returns datasets last updated before cutoff
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]*dataset.Dataset, error)

	UpdateStatus(ctx context.Context, id core.DatasetID, status dataset.DatasetStatus, errorMsg string) error
}
