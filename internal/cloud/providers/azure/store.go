// Package azure writes folder uploads to an Azure Blob Storage container.
package azure

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"github.com/aiverify/aiv-upload/internal/config"
	"github.com/aiverify/aiv-upload/internal/http"
	"github.com/aiverify/aiv-upload/internal/logging"
)

// Credential sources, checked in order. Without either, the account URL must
// carry a SAS token.
const (
	EnvConnectionString = "AZURE_STORAGE_CONNECTION_STRING"
	EnvAccountKey       = "AZURE_STORAGE_KEY"
)

// Upload tuning for UploadStream.
const (
	blockSize         = 8 * 1024 * 1024
	uploadConcurrency = 4
)

type uploadStreamAPI interface {
	UploadStream(ctx context.Context, containerName string, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
}

// Store uploads blobs into one container.
type Store struct {
	client    uploadStreamAPI
	container string
}

// NewStore builds a blob client from cfg using the shared proxy-aware transport.
func NewStore(cfg *config.Config, logger *logging.Logger) (*Store, error) {
	if cfg.AzureContainer == "" {
		return nil, fmt.Errorf("azure_container is required")
	}

	httpClient, err := http.CreateTransferClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: httpClient,
		},
	}

	var client *azblob.Client
	switch {
	case os.Getenv(EnvConnectionString) != "":
		client, err = azblob.NewClientFromConnectionString(os.Getenv(EnvConnectionString), opts)
	case os.Getenv(EnvAccountKey) != "":
		if cfg.AzureAccountURL == "" {
			return nil, fmt.Errorf("azure_account_url is required with %s", EnvAccountKey)
		}
		var account string
		account, err = accountName(cfg.AzureAccountURL)
		if err != nil {
			return nil, err
		}
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(account, os.Getenv(EnvAccountKey))
		if err != nil {
			return nil, fmt.Errorf("invalid Azure account key: %w", err)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(cfg.AzureAccountURL, cred, opts)
	default:
		if cfg.AzureAccountURL == "" {
			return nil, fmt.Errorf("azure_account_url is required")
		}
		client, err = azblob.NewClientWithNoCredential(cfg.AzureAccountURL, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	return &Store{client: client, container: cfg.AzureContainer}, nil
}

// accountName extracts "acct" from https://acct.blob.core.windows.net.
func accountName(accountURL string) (string, error) {
	u, err := url.Parse(accountURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid azure_account_url: %q", accountURL)
	}
	name, _, _ := strings.Cut(u.Hostname(), ".")
	if name == "" {
		return "", fmt.Errorf("invalid azure_account_url: %q", accountURL)
	}
	return name, nil
}

// Name identifies the store in logs and receipts.
func (s *Store) Name() string {
	return "azure://" + s.container
}

// PutObject uploads body as a block blob.
func (s *Store) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.UploadStream(ctx, s.container, key, body, &azblob.UploadStreamOptions{
		BlockSize:   blockSize,
		Concurrency: uploadConcurrency,
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	return err
}
