package providers

import (
	"context"
	"testing"

	"github.com/aiverify/aiv-upload/internal/api"
	"github.com/aiverify/aiv-upload/internal/cloud"
	"github.com/aiverify/aiv-upload/internal/config"
)

func TestNewUploader(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	t.Setenv("AZURE_STORAGE_CONNECTION_STRING", "")
	t.Setenv("AZURE_STORAGE_KEY", "")

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		check   func(t *testing.T, u any)
		wantErr bool
	}{
		{
			name:   "api backend",
			mutate: func(c *config.Config) { c.APIBaseURL = "http://localhost:4000" },
			check: func(t *testing.T, u any) {
				if _, ok := u.(*api.Client); !ok {
					t.Errorf("got %T, want *api.Client", u)
				}
			},
		},
		{
			name: "s3 backend",
			mutate: func(c *config.Config) {
				c.Backend = config.BackendS3
				c.S3Bucket = "b"
				c.S3Region = "us-east-1"
			},
			check: func(t *testing.T, u any) {
				if _, ok := u.(*cloud.FolderUploader); !ok {
					t.Errorf("got %T, want *cloud.FolderUploader", u)
				}
			},
		},
		{
			name: "azure backend",
			mutate: func(c *config.Config) {
				c.Backend = config.BackendAzure
				c.AzureAccountURL = "https://acct.blob.core.windows.net/?sv=1&sig=2"
				c.AzureContainer = "c"
			},
			check: func(t *testing.T, u any) {
				if _, ok := u.(*cloud.FolderUploader); !ok {
					t.Errorf("got %T, want *cloud.FolderUploader", u)
				}
			},
		},
		{name: "s3 without bucket", mutate: func(c *config.Config) { c.Backend = config.BackendS3 }, wantErr: true},
		{name: "unknown backend", mutate: func(c *config.Config) { c.Backend = "ftp" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			u, err := NewUploader(context.Background(), cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewUploader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, u)
			}
		})
	}
}
