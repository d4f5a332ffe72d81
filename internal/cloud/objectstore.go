// Package cloud uploads queued folders to object storage. Each file becomes
// one object keyed by prefix/folder/subfolder/name.
package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aiverify/aiv-upload/internal/collector"
	"github.com/aiverify/aiv-upload/internal/http"
	"github.com/aiverify/aiv-upload/internal/logging"
	"github.com/aiverify/aiv-upload/internal/upload"
	"github.com/aiverify/aiv-upload/internal/validation"
)

// ObjectStore writes a single object. body is positioned at the start on
// every call.
type ObjectStore interface {
	Name() string
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

// FolderUploader implements upload.Uploader on top of an ObjectStore.
type FolderUploader struct {
	store  ObjectStore
	prefix string
	retry  http.RetryConfig
	logger *logging.Logger
}

// NewFolderUploader creates an uploader writing under prefix.
func NewFolderUploader(store ObjectStore, prefix string, logger *logging.Logger) *FolderUploader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	retry := http.DefaultRetryConfig()
	retry.OnRetry = func(attempt int, err error, errType http.ErrorType) {
		logger.Debug().Int("attempt", attempt).Str("error_type", http.ErrorTypeName(errType)).Err(err).
			Str("store", store.Name()).Msg("Retrying object upload")
	}
	return &FolderUploader{store: store, prefix: strings.Trim(prefix, "/"), retry: retry, logger: logger}
}

// SetRetryConfig overrides the per-object retry policy.
func (u *FolderUploader) SetRetryConfig(cfg http.RetryConfig) {
	u.retry = cfg
}

// ObjectKey builds the key for one entry. The folder name and every
// subfolder segment are kept as-is; empty segments are dropped.
func ObjectKey(prefix string, e collector.Entry) (string, error) {
	if err := validation.ValidateFilename(e.Blob.Name); err != nil {
		return "", err
	}
	parts := []string{strings.Trim(prefix, "/"), e.Folder}
	parts = append(parts, strings.Split(e.Dir, "/")...)
	parts = append(parts, e.Blob.Name)

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	key := strings.Join(kept, "/")
	if err := validation.ValidateObjectKey(key); err != nil {
		return "", err
	}
	return key, nil
}

type folderReceipt struct {
	Store   string   `json:"store"`
	Folder  string   `json:"folder"`
	Objects []string `json:"objects"`
}

// UploadFolder writes every file of the payload. The first file that still
// fails after retries fails the folder.
func (u *FolderUploader) UploadFolder(ctx context.Context, p *upload.Payload) ([]byte, error) {
	receipt := folderReceipt{Store: u.store.Name(), Folder: p.FolderName}

	for _, e := range p.Files {
		key, err := ObjectKey(u.prefix, e)
		if err != nil {
			return nil, fmt.Errorf("invalid object key for %s: %w", e.RelativePath(), err)
		}

		timer := StartTimer(nil, "put "+u.store.Name()+"/"+key)
		err = http.ExecuteWithRetry(ctx, u.retry, func(ctx context.Context) error {
			rc, err := e.Blob.Open()
			if err != nil {
				return err
			}
			defer rc.Close()
			contentType := e.Blob.MediaType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			return u.store.PutObject(ctx, key, rc, e.Blob.Size, contentType)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", e.RelativePath(), err)
		}
		timer.StopWithThroughput(e.Blob.Size)
		u.logger.Debug().Str("store", u.store.Name()).Str("key", key).Int64("bytes", e.Blob.Size).Msg("Object uploaded")
		receipt.Objects = append(receipt.Objects, key)
	}

	return json.Marshal(receipt)
}

var _ upload.Uploader = (*FolderUploader)(nil)
