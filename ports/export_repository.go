package ports

import (
	"context"

	"dataanalyst/domain/core"
	"dataanalyst/domain/dataset"
)

// ExportRepository records the files generated from a dataset
type ExportRepository interface {
	Create(ctx context.Context, export *dataset.Export) error
	ListByDataset(ctx context.Context, datasetID core.DatasetID) ([]*dataset.Export, error)
	DeleteByDataset(ctx context.Context, datasetID core.DatasetID) error
}
