package blobstore

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"dataanalyst/internal/config"
	"dataanalyst/internal/errors"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore keeps blobs in a Google Cloud Storage bucket
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore authenticates with the service account file when one is
// configured and with application default credentials otherwise.
func NewGCSStore(ctx context.Context, cfg config.StorageConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.ConfigInvalid("STORAGE_BUCKET is required for gcs storage")
	}

	var opts []option.ClientOption
	if cfg.GCSCredentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, cfg.GCSCredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.ExternalServiceError("gcs", fmt.Errorf("create GCS client: %w", err))
	}
	return &GCSStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *GCSStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := ObjectKey(name)
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType(key)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", errors.ExternalServiceError("gcs", fmt.Errorf("write %q: %w", key, err))
	}
	if err := w.Close(); err != nil {
		return "", errors.ExternalServiceError("gcs", fmt.Errorf("close %q: %w", key, err))
	}
	log.Printf("[Blob] stored gs://%s/%s (%d bytes)", s.bucket, key, len(data))
	return key, nil
}

func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, errors.NotFound(fmt.Sprintf("blob %s", key))
	}
	if err != nil {
		return nil, errors.ExternalServiceError("gcs", fmt.Errorf("read %q: %w", key, err))
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.StorageError(fmt.Sprintf("failed to read %s", key), err)
	}
	return data, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return errors.ExternalServiceError("gcs", fmt.Errorf("delete %q: %w", key, err))
	}
	return nil
}

func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	_, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrObjectNotExist):
		return false, nil
	default:
		return false, errors.ExternalServiceError("gcs", fmt.Errorf("attrs %q: %w", key, err))
	}
}

// URL returns a V4 signed GET link
func (s *GCSStore) URL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	signedURL, err := s.client.Bucket(s.bucket).SignedURL(key, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", errors.ExternalServiceError("gcs", fmt.Errorf("sign GetObject for %q: %w", key, err))
	}
	return signedURL, nil
}

func (s *GCSStore) Backend() string { return "gcs" }
