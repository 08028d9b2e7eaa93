// Package blobstore archives uploaded files and generated exports in a local
// directory or in S3, GCS or Azure Blob Storage.
package blobstore

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"dataanalyst/internal/config"
	"dataanalyst/internal/errors"
	"dataanalyst/ports"

	"github.com/google/uuid"
)

// New returns the blob store selected by cfg.Backend
func New(ctx context.Context, cfg config.StorageConfig) (ports.BlobStore, error) {
	switch cfg.Backend {
	case config.BackendLocal, "":
		return NewLocalStore(cfg.LocalDir)
	case config.BackendS3:
		return NewS3Store(cfg)
	case config.BackendGCS:
		return NewGCSStore(ctx, cfg)
	case config.BackendAzure:
		return NewAzureStore(cfg)
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unsupported storage backend %q", cfg.Backend))
	}
}

// clock is replaced in tests
var clock = time.Now

// ObjectKey builds a unique key for name: the directory part is kept and the
// base name gets a timestamp and a short random suffix, e.g.
// uploads/sales_20240309_140506_1a2b3c4d.csv
func ObjectKey(name string) string {
	dir, file := path.Split(strings.ReplaceAll(name, `\`, "/"))
	ext := path.Ext(file)
	base := sanitize(strings.TrimSuffix(file, ext))
	if base == "" {
		base = "file"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	key := fmt.Sprintf("%s_%s_%s%s", base, clock().Format("20060102_150405"), suffix, sanitize(ext))

	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" {
		return key
	}
	return dir + "/" + key
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func checkKey(key string) error {
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return errors.InvalidInput(fmt.Sprintf("invalid storage key %q", key))
		}
	}
	return nil
}
