// Package session keeps the dataset each browser session is working on.
//
// Parsed frames live in memory. The raw upload is archived in the blob store
// and recorded in the datasets table, so a session survives a restart: on a
// cache miss the latest upload of the session is read back and parsed again.
package session

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"mime"
	"path"
	"path/filepath"
	"sync"
	"time"

	"dataanalyst/adapters/excel"
	"dataanalyst/domain/core"
	"dataanalyst/domain/dataset"
	"dataanalyst/internal/errors"
	"dataanalyst/internal/processing"
	"dataanalyst/ports"
)

// ErrNoData is returned by every frame lookup of a session without an upload
var ErrNoData = errors.New(errors.CodeNotFound, "No data uploaded yet.")

type entry struct {
	dataset  *dataset.Dataset
	frame    *dataset.Frame
	lastSeen time.Time
}

// Manager tracks the current dataset of every session
type Manager struct {
	datasets  ports.DatasetRepository
	exports   ports.ExportRepository
	blobs     ports.BlobStore
	processor *processing.DataProcessor
	urlTTL    time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[core.SessionID]*entry
}

// NewManager wires the repositories, blob store and cleaning pipeline
func NewManager(
	datasets ports.DatasetRepository,
	exports ports.ExportRepository,
	blobs ports.BlobStore,
	processor *processing.DataProcessor,
	urlTTL time.Duration,
) *Manager {
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &Manager{
		datasets:  datasets,
		exports:   exports,
		blobs:     blobs,
		processor: processor,
		urlTTL:    urlTTL,
		now:       time.Now,
		sessions:  make(map[core.SessionID]*entry),
	}
}

// Load parses an upload, archives it and makes it the session's dataset
func (m *Manager) Load(ctx context.Context, sessionID core.SessionID, filename string, data []byte) (*dataset.Dataset, error) {
	startTime := time.Now()
	name := filepath.Base(filename)

	frame, err := excel.Read(name, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := errors.ValidateFrame(frame); err != nil {
		return nil, err
	}

	key, err := m.blobs.Put(ctx, path.Join("uploads", sessionID.String(), name), data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to archive upload")
	}

	ds := &dataset.Dataset{
		ID:               core.NewDatasetID(),
		SessionID:        sessionID,
		OriginalFilename: name,
		StorageKey:       key,
		ContentHash:      core.NewHash(data),
		FileSize:         int64(len(data)),
		MimeType:         mimeType(name),
		RecordCount:      frame.Rows(),
		FieldCount:       frame.Width(),
		MissingRate:      frame.MissingRate(),
		Status:           dataset.StatusUploaded,
		Metadata:         dataset.MetadataFromFrame(frame),
	}
	if err := m.datasets.Create(ctx, ds); err != nil {
		if delErr := m.blobs.Delete(ctx, key); delErr != nil {
			log.Printf("[Session] failed to remove orphaned blob %s: %v", key, delErr)
		}
		return nil, err
	}

	m.store(sessionID, ds, frame)
	log.Printf("[Session] %s loaded %s (%d rows, %d columns, hash %s) in %.2fms",
		sessionID.Short(), name, frame.Rows(), frame.Width(), ds.ContentHash.Short(),
		float64(time.Since(startTime).Nanoseconds())/1e6)
	return ds, nil
}

// Frame returns the session's current frame, restoring it from the blob
// store when it is not cached
func (m *Manager) Frame(ctx context.Context, sessionID core.SessionID) (*dataset.Frame, error) {
	e, err := m.current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return e.frame, nil
}

// Dataset returns the record of the session's current dataset
func (m *Manager) Dataset(ctx context.Context, sessionID core.SessionID) (*dataset.Dataset, error) {
	e, err := m.current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return e.dataset, nil
}

// Clean runs the cleaning pipeline and replaces the session's frame
func (m *Manager) Clean(ctx context.Context, sessionID core.SessionID) (*dataset.Frame, error) {
	e, err := m.current(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cleaned, err := m.processor.Process(e.frame)
	if err != nil {
		if statusErr := m.datasets.UpdateStatus(ctx, e.dataset.ID, dataset.StatusFailed, err.Error()); statusErr != nil {
			log.Printf("[Session] failed to record cleaning failure for %s: %v", e.dataset.ID.Short(), statusErr)
		}
		return nil, err
	}
	if err := m.datasets.UpdateStatus(ctx, e.dataset.ID, dataset.StatusProcessed, ""); err != nil {
		return nil, err
	}

	ds := *e.dataset
	ds.Status = dataset.StatusProcessed
	ds.ErrorMessage = ""
	ds.RecordCount = cleaned.Rows()
	ds.FieldCount = cleaned.Width()
	ds.MissingRate = cleaned.MissingRate()
	m.store(sessionID, &ds, cleaned)
	return cleaned, nil
}

// ArchiveExport stores a generated file, records it against the session's
// dataset and returns a download link
func (m *Manager) ArchiveExport(ctx context.Context, sessionID core.SessionID, name string, data []byte) (string, error) {
	e, err := m.current(ctx, sessionID)
	if err != nil {
		return "", err
	}

	key, err := m.blobs.Put(ctx, path.Join("exports", sessionID.String(), name), data)
	if err != nil {
		return "", errors.Wrap(err, "failed to archive export")
	}
	export := &dataset.Export{
		ID:         core.NewExportID(),
		DatasetID:  e.dataset.ID,
		Format:     exportFormat(name),
		Filename:   name,
		StorageKey: key,
		Size:       int64(len(data)),
	}
	if err := m.exports.Create(ctx, export); err != nil {
		return "", err
	}
	return m.blobs.URL(ctx, key, m.urlTTL)
}

// Forget drops the cached frame of a session
func (m *Manager) Forget(sessionID core.SessionID) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// EvictIdle drops cached frames not used for longer than maxIdle and returns
// how many were dropped
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Active reports whether datasetID is the cached dataset of a live session
func (m *Manager) Active(datasetID core.DatasetID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.sessions {
		if e.dataset.ID == datasetID {
			return true
		}
	}
	return false
}

// Len returns the number of cached sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) store(sessionID core.SessionID, ds *dataset.Dataset, frame *dataset.Frame) {
	m.mu.Lock()
	m.sessions[sessionID] = &entry{dataset: ds, frame: frame, lastSeen: m.now()}
	m.mu.Unlock()
}

func (m *Manager) current(ctx context.Context, sessionID core.SessionID) (*entry, error) {
	m.mu.Lock()
	if e, ok := m.sessions[sessionID]; ok {
		e.lastSeen = m.now()
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	ds, err := m.datasets.LatestForSession(ctx, sessionID)
	if errors.GetCode(err) == errors.CodeNotFound {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, err
	}
	frame, err := m.restore(ctx, ds)
	if err != nil {
		return nil, err
	}

	m.store(sessionID, ds, frame)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID], nil
}

// restore rebuilds the frame of a persisted dataset from its raw upload
func (m *Manager) restore(ctx context.Context, ds *dataset.Dataset) (*dataset.Frame, error) {
	startTime := time.Now()
	data, err := m.blobs.Get(ctx, ds.StorageKey)
	if errors.GetCode(err) == errors.CodeNotFound {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, err
	}
	if core.NewHash(data) != ds.ContentHash {
		return nil, errors.StorageError(fmt.Sprintf("upload %s is corrupted", ds.StorageKey), nil)
	}

	frame, err := excel.Read(ds.OriginalFilename, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if ds.Status == dataset.StatusProcessed {
		if frame, err = m.processor.Process(frame); err != nil {
			return nil, err
		}
	}
	log.Printf("[Session] restored %s for %s in %.2fms",
		ds.OriginalFilename, ds.SessionID.Short(), float64(time.Since(startTime).Nanoseconds())/1e6)
	return frame, nil
}

func mimeType(name string) string {
	switch ft, _ := excel.DetectFileType(name); ft {
	case excel.FileTypeCSV:
		return "text/csv"
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func exportFormat(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return "bin"
	}
	return ext[1:]
}
