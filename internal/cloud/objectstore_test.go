package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aiverify/aiv-upload/internal/collector"
	"github.com/aiverify/aiv-upload/internal/http"
	"github.com/aiverify/aiv-upload/internal/upload"
)

type memStore struct {
	mu       sync.Mutex
	objects  map[string]string
	types    map[string]string
	failures map[string]int // remaining failures per key
	failErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]string{}, types: map[string]string{}, failures: map[string]int{}}
}

func (m *memStore) Name() string { return "mem://test" }

func (m *memStore) PutObject(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures[key] > 0 {
		m.failures[key]--
		return m.failErr
	}
	m.objects[key] = string(data)
	m.types[key] = contentType
	return nil
}

func fastRetry() http.RetryConfig {
	cfg := http.DefaultRetryConfig()
	cfg.MaxRetries = 3
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	return cfg
}

func entry(folder, dir, name, body string) collector.Entry {
	return collector.Entry{Folder: folder, Dir: dir, Blob: collector.BytesBlob(name, []byte(body), "")}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		e       collector.Entry
		want    string
		wantErr bool
	}{
		{"root file", "", entry("ds", "", "a.csv", ""), "ds/a.csv", false},
		{"nested", "", entry("ds", "x/y", "b.csv", ""), "ds/x/y/b.csv", false},
		{"prefix trimmed", "/uploads/", entry("ds", "x", "c.csv", ""), "uploads/ds/x/c.csv", false},
		{"traversal rejected", "", entry("ds", "../etc", "passwd", ""), "", true},
		{"bad filename", "", entry("ds", "", "a/b", ""), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ObjectKey(tt.prefix, tt.e)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ObjectKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ObjectKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFolderUploader_UploadsEveryFile(t *testing.T) {
	store := newMemStore()
	u := NewFolderUploader(store, "pre", nil)
	u.SetRetryConfig(fastRetry())

	p := &upload.Payload{FolderName: "ds", Files: []collector.Entry{
		entry("ds", "", "a.csv", "1,2"),
		{Folder: "ds", Dir: "sub", Blob: collector.BytesBlob("m.json", []byte("{}"), "application/json")},
	}}

	resp, err := u.UploadFolder(context.Background(), p)
	if err != nil {
		t.Fatalf("UploadFolder: %v", err)
	}
	if store.objects["pre/ds/a.csv"] != "1,2" || store.objects["pre/ds/sub/m.json"] != "{}" {
		t.Errorf("objects = %v", store.objects)
	}
	if store.types["pre/ds/a.csv"] != "application/octet-stream" {
		t.Errorf("default content type = %q", store.types["pre/ds/a.csv"])
	}
	if store.types["pre/ds/sub/m.json"] != "application/json" {
		t.Errorf("content type = %q", store.types["pre/ds/sub/m.json"])
	}

	var receipt folderReceipt
	if err := json.Unmarshal(resp, &receipt); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if receipt.Store != "mem://test" || receipt.Folder != "ds" || len(receipt.Objects) != 2 {
		t.Errorf("receipt = %+v", receipt)
	}
}

func TestFolderUploader_RetriesTransientFailure(t *testing.T) {
	store := newMemStore()
	store.failErr = errors.New("SlowDown: please reduce your request rate")
	store.failures["ds/a.csv"] = 2

	u := NewFolderUploader(store, "", nil)
	u.SetRetryConfig(fastRetry())

	p := &upload.Payload{FolderName: "ds", Files: []collector.Entry{entry("ds", "", "a.csv", "data")}}
	if _, err := u.UploadFolder(context.Background(), p); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if store.objects["ds/a.csv"] != "data" {
		t.Errorf("body after retry = %q, want full content", store.objects["ds/a.csv"])
	}
}

func TestFolderUploader_FatalFailureFailsFolder(t *testing.T) {
	store := newMemStore()
	store.failErr = errors.New("NoSuchBucket")
	store.failures["ds/b.csv"] = 1

	u := NewFolderUploader(store, "", nil)
	u.SetRetryConfig(fastRetry())

	p := &upload.Payload{FolderName: "ds", Files: []collector.Entry{
		entry("ds", "", "a.csv", "x"),
		entry("ds", "", "b.csv", "y"),
	}}
	_, err := u.UploadFolder(context.Background(), p)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "ds/b.csv") {
		t.Errorf("error should name the file: %v", err)
	}
}
