package azure

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/aiverify/aiv-upload/internal/config"
)

type fakeUploader struct {
	container, key, contentType, body string
	err                               error
}

func (f *fakeUploader) UploadStream(_ context.Context, container, key string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error) {
	if f.err != nil {
		return azblob.UploadStreamResponse{}, f.err
	}
	data, _ := io.ReadAll(body)
	f.container, f.key, f.body = container, key, string(data)
	if o != nil && o.HTTPHeaders != nil && o.HTTPHeaders.BlobContentType != nil {
		f.contentType = *o.HTTPHeaders.BlobContentType
	}
	return azblob.UploadStreamResponse{}, nil
}

func TestStore_PutObject(t *testing.T) {
	fake := &fakeUploader{}
	s := &Store{client: fake, container: "uploads"}

	if err := s.PutObject(context.Background(), "ds/a.csv", strings.NewReader("abc"), 3, "text/csv"); err != nil {
		t.Fatal(err)
	}
	if fake.container != "uploads" || fake.key != "ds/a.csv" || fake.body != "abc" || fake.contentType != "text/csv" {
		t.Errorf("upload = %+v", fake)
	}
	if s.Name() != "azure://uploads" {
		t.Errorf("Name = %q", s.Name())
	}

	s.client = &fakeUploader{err: errors.New("ServerBusy")}
	if err := s.PutObject(context.Background(), "k", strings.NewReader(""), 0, "text/plain"); err == nil {
		t.Error("expected error")
	}
}

func TestAccountName(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://acct.blob.core.windows.net", "acct", false},
		{"https://acct.blob.core.windows.net/?sv=x&sig=y", "acct", false},
		{"not a url", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := accountName(tt.url)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("accountName(%q) = %q, %v", tt.url, got, err)
		}
	}
}

func TestNewStore_Validation(t *testing.T) {
	t.Setenv(EnvConnectionString, "")
	t.Setenv(EnvAccountKey, "")

	cfg := config.Default()
	if _, err := NewStore(cfg, nil); err == nil {
		t.Error("expected error without container")
	}

	cfg.AzureContainer = "uploads"
	if _, err := NewStore(cfg, nil); err == nil {
		t.Error("expected error without account URL")
	}

	cfg.AzureAccountURL = "https://acct.blob.core.windows.net/?sv=2024&sig=abc"
	if _, err := NewStore(cfg, nil); err != nil {
		t.Errorf("SAS URL store: %v", err)
	}
}
