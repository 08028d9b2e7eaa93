package blobstore

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"dataanalyst/internal/config"
	"dataanalyst/internal/errors"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
)

// AzureStore keeps blobs in an Azure Blob Storage container using
// shared-key credentials
type AzureStore struct {
	client    *azblob.Client
	container string
}

func NewAzureStore(cfg config.StorageConfig) (*AzureStore, error) {
	if cfg.AzureAccount == "" || cfg.AzureKey == "" || cfg.AzureContainer == "" {
		return nil, errors.ConfigInvalid("Azure storage config is incomplete")
	}

	cred, err := azblob.NewSharedKeyCredential(cfg.AzureAccount, cfg.AzureKey)
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("create shared key credential: %v", err))
	}

	serviceURL := cfg.AzureEndpoint
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AzureAccount)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, errors.ExternalServiceError("azure", fmt.Errorf("create Azure blob client: %w", err))
	}
	return &AzureStore{client: client, container: cfg.AzureContainer}, nil
}

func (s *AzureStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := ObjectKey(name)
	if _, err := s.client.UploadBuffer(ctx, s.container, key, data, nil); err != nil {
		return "", errors.ExternalServiceError("azure", fmt.Errorf("upload %q: %w", key, err))
	}
	log.Printf("[Blob] stored azure %s/%s (%d bytes)", s.container, key, len(data))
	return key, nil
}

func (s *AzureStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, errors.NotFound(fmt.Sprintf("blob %s", key))
	}
	if err != nil {
		return nil, errors.ExternalServiceError("azure", fmt.Errorf("download %q: %w", key, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.StorageError(fmt.Sprintf("failed to read %s", key), err)
	}
	return data, nil
}

func (s *AzureStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	_, err := s.client.DeleteBlob(ctx, s.container, key, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return errors.ExternalServiceError("azure", fmt.Errorf("delete %q: %w", key, err))
	}
	return nil
}

func (s *AzureStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	blobClient := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(key)
	_, err := blobClient.GetProperties(ctx, nil)
	switch {
	case err == nil:
		return true, nil
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return false, nil
	default:
		return false, errors.ExternalServiceError("azure", fmt.Errorf("properties %q: %w", key, err))
	}
}

// URL returns a read-only SAS link
func (s *AzureStore) URL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	blobClient := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(key)
	sasURL, err := blobClient.GetSASURL(sas.BlobPermissions{Read: true}, time.Now().Add(ttl), nil)
	if err != nil {
		return "", errors.ExternalServiceError("azure", fmt.Errorf("generate SAS URL for %q: %w", key, err))
	}
	return sasURL, nil
}

func (s *AzureStore) Backend() string { return "azure" }
