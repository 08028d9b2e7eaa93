package dataset

import (
	"time"

	"dataanalyst/domain/core"
)

// DatasetStatus represents the processing state of a dataset
type DatasetStatus string

const (
	StatusUploaded  DatasetStatus = "uploaded"
	StatusProcessed DatasetStatus = "processed"
	StatusFailed    DatasetStatus = "failed"
)

// Dataset is the persisted record of one upload within a browser session.
// The parsed Frame itself lives in memory; the raw bytes live in the blob store
// under StorageKey so the Frame can be rebuilt after a restart.
type Dataset struct {
	ID        core.DatasetID `json:"id" db:"id"`
	SessionID core.SessionID `json:"session_id" db:"session_id"`

	OriginalFilename string    `json:"original_filename" db:"original_filename"`
	StorageKey       string    `json:"storage_key" db:"storage_key"`
	ContentHash      core.Hash `json:"content_hash" db:"content_hash"`
	FileSize         int64     `json:"file_size" db:"file_size"`
	MimeType         string    `json:"mime_type" db:"mime_type"`

	RecordCount int     `json:"record_count" db:"record_count"`
	FieldCount  int     `json:"field_count" db:"field_count"`
	MissingRate float64 `json:"missing_rate" db:"missing_rate"`

	Status       DatasetStatus `json:"status" db:"status"`
	ErrorMessage string        `json:"error_message,omitempty" db:"error_message"`

	Metadata DatasetMetadata `json:"metadata" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DatasetMetadata is stored as a JSON column
type DatasetMetadata struct {
	Fields []FieldInfo `json:"fields"`
}

// FieldInfo describes one column of an uploaded dataset
type FieldInfo struct {
	Name         string `json:"name"`
	DType        string `json:"dtype"`
	MissingCount int    `json:"missing_count"`
	UniqueCount  int    `json:"unique_count"`
}

// Export records a generated CSV, XLSX or PDF file
type Export struct {
	ID         core.ExportID  `json:"id" db:"id"`
	DatasetID  core.DatasetID `json:"dataset_id" db:"dataset_id"`
	Format     string         `json:"format" db:"format"`
	Filename   string         `json:"filename" db:"filename"`
	StorageKey string         `json:"storage_key" db:"storage_key"`
	Size       int64          `json:"size" db:"size"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// MetadataFromFrame builds the field inventory persisted with a dataset
func MetadataFromFrame(f *Frame) DatasetMetadata {
	meta := DatasetMetadata{Fields: make([]FieldInfo, 0, f.Width())}
	for _, col := range f.Columns {
		meta.Fields = append(meta.Fields, FieldInfo{
			Name:         col.Name,
			DType:        col.Kind.DType(),
			MissingCount: col.MissingCount(),
			UniqueCount:  col.UniqueCount(),
		})
	}
	return meta
}
