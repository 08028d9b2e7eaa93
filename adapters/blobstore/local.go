package blobstore

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"dataanalyst/internal/errors"
)

// LocalStore keeps blobs under a directory on disk
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		root = "uploads"
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.StorageError("failed to resolve upload directory", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.StorageError("failed to create upload directory", err)
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", errors.InvalidInput(fmt.Sprintf("invalid storage key %q", key))
	}
	return filepath.Join(s.root, rel), nil
}

func (s *LocalStore) Put(_ context.Context, name string, data []byte) (string, error) {
	key := ObjectKey(name)
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", errors.StorageError("failed to create directory", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", errors.StorageError(fmt.Sprintf("failed to write %s", key), err)
	}
	log.Printf("[Blob] stored %s (%d bytes)", key, len(data))
	return key, nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.NotFound(fmt.Sprintf("blob %s", key))
	}
	if err != nil {
		return nil, errors.StorageError(fmt.Sprintf("failed to read %s", key), err)
	}
	return data, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.StorageError(fmt.Sprintf("failed to delete %s", key), err)
	}
	return nil
}

func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, errors.StorageError(fmt.Sprintf("failed to stat %s", key), err)
	}
}

// URL returns a file:// link; local files never expire
func (s *LocalStore) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String(), nil
}

func (s *LocalStore) Backend() string { return "local" }
