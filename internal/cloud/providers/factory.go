// Package providers selects the upload backend named in the configuration.
package providers

import (
	"context"
	"fmt"

	"github.com/aiverify/aiv-upload/internal/api"
	"github.com/aiverify/aiv-upload/internal/cloud"
	"github.com/aiverify/aiv-upload/internal/cloud/providers/azure"
	"github.com/aiverify/aiv-upload/internal/cloud/providers/s3"
	"github.com/aiverify/aiv-upload/internal/config"
	"github.com/aiverify/aiv-upload/internal/logging"
	"github.com/aiverify/aiv-upload/internal/upload"
)

// NewUploader returns the uploader for cfg.Backend: the gateway client for
// "api", or an object store uploader for "s3" and "azure".
func NewUploader(ctx context.Context, cfg *config.Config, logger *logging.Logger) (upload.Uploader, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	switch cfg.Backend {
	case config.BackendAPI, "":
		client, err := api.NewClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendS3:
		store, err := s3.NewStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return cloud.NewFolderUploader(store, cfg.S3Prefix, logger), nil
	case config.BackendAzure:
		store, err := azure.NewStore(cfg, logger)
		if err != nil {
			return nil, err
		}
		return cloud.NewFolderUploader(store, cfg.AzurePrefix, logger), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}
