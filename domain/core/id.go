package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// Short returns the first 8 characters for log lines
func (id ID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	SessionID ID
	DatasetID ID
	ExportID  ID
)

func (id SessionID) String() string { return ID(id).String() }
func (id DatasetID) String() string { return ID(id).String() }
func (id ExportID) String() string  { return ID(id).String() }

func (id SessionID) Short() string { return ID(id).Short() }
func (id DatasetID) Short() string { return ID(id).Short() }

// NewSessionID creates a browser session identifier
func NewSessionID() SessionID { return SessionID(NewID()) }

// NewDatasetID creates a dataset identifier
func NewDatasetID() DatasetID { return DatasetID(NewID()) }

// NewExportID creates an export identifier
func NewExportID() ExportID { return ExportID(NewID()) }

// ParseSessionID validates a session identifier taken from a cookie or flag.
// Only UUIDs are accepted so cookie values never reach storage keys unchecked.
func ParseSessionID(s string) (SessionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("session ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid session ID %q: %w", s, err)
	}
	return SessionID(s), nil
}

// ParseDatasetID parses a string into DatasetID
func ParseDatasetID(s string) (DatasetID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("dataset ID cannot be empty")
	}
	return DatasetID(s), nil
}
