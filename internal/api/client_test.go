package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aiverify/aiv-upload/internal/collector"
	"github.com/aiverify/aiv-upload/internal/config"
	"github.com/aiverify/aiv-upload/internal/registry"
	"github.com/aiverify/aiv-upload/internal/upload"
)

func testPayload(t *testing.T, paths ...string) *upload.Payload {
	t.Helper()
	var src []collector.SourceFile
	for _, p := range paths {
		src = append(src, collector.SourceFile{RelativePath: p, Blob: collector.BytesBlob("", []byte("content of "+p), "text/csv")})
	}
	reg, _ := registry.New().Add(collector.FromFileList(src))
	return upload.BuildPayload(reg.Folders()[0])
}

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.APIBaseURL = url
	cfg.APIKey = "secret"
	c, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	c.SetRetryWait(time.Millisecond, 5*time.Millisecond)
	return c
}

func TestNewClientRejectsEmptyBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.APIBaseURL = ""

	_, err := NewClient(cfg, nil)
	if err == nil {
		t.Fatal("NewClient() should return error for empty APIBaseURL")
	}
	if !strings.Contains(err.Error(), "API base URL is empty") {
		t.Errorf("NewClient() error = %q", err.Error())
	}
}

func TestUploadFolder_SendsMultipart(t *testing.T) {
	var gotFiles []string
	var gotFields = map[string]string{}
	var gotAuth, gotPath string

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			nethttp.Error(w, "bad content type", nethttp.StatusBadRequest)
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(part)
			if part.FormName() == upload.FieldFiles {
				gotFiles = append(gotFiles, part.FileName())
			} else {
				gotFields[part.FormName()] = string(data)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7}`))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	body, err := c.UploadFolder(context.Background(), testPayload(t, "ds/a.csv", "ds/sub/b.csv"))
	if err != nil {
		t.Fatalf("UploadFolder() error = %v", err)
	}

	if string(body) != `{"id":7}` {
		t.Errorf("body = %s", body)
	}
	if gotPath != "/test_datasets/upload_folder" {
		t.Errorf("path = %s", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if strings.Join(gotFiles, ",") != "a.csv,b.csv" {
		t.Errorf("files = %v", gotFiles)
	}
	if gotFields["foldername"] != "ds" || gotFields["subfolders"] != "./,./sub" {
		t.Errorf("fields = %v", gotFields)
	}
}

func TestUploadFolder_ModelEndpoint(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotPath = r.URL.Path
		io.Copy(io.Discard, r.Body)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.APIBaseURL = server.URL
	cfg.UploadKind = config.KindModel
	c, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.UploadFolder(context.Background(), testPayload(t, "m/model.pkl")); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/test_models/upload_folder" {
		t.Errorf("path = %s", gotPath)
	}
}

func TestUploadFolder_RetriesServerErrorsWithFullBody(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		data, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(data), "content of ds/a.csv") {
			nethttp.Error(w, "truncated body", nethttp.StatusBadRequest)
			return
		}
		if attempts.Add(1) < 3 {
			w.WriteHeader(nethttp.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	body, err := c.UploadFolder(context.Background(), testPayload(t, "ds/a.csv"))
	if err != nil {
		t.Fatalf("UploadFolder() error = %v", err)
	}
	if string(body) != "ok" || attempts.Load() != 3 {
		t.Errorf("body = %q after %d attempts", body, attempts.Load())
	}
}

func TestUploadFolder_ClientErrorDetail(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"string detail", nethttp.StatusBadRequest, `{"detail":"Folder name already exists"}`, "Folder name already exists"},
		{"validation list", nethttp.StatusUnprocessableEntity, `{"detail":[{"loc":["body","foldername"],"msg":"field required"}]}`, "body.foldername: field required"},
		{"plain text", nethttp.StatusForbidden, "forbidden", "forbidden"},
		{"empty body", nethttp.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
				io.Copy(io.Discard, r.Body)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := testClient(t, server.URL)
			_, err := c.UploadFolder(context.Background(), testPayload(t, "ds/a.csv"))

			var he *HTTPError
			if !errors.As(err, &he) {
				t.Fatalf("expected *HTTPError, got %v", err)
			}
			if he.StatusCode != tt.status || he.Detail != tt.wantDetail {
				t.Errorf("HTTPError = %+v", he)
			}
			if tt.wantDetail != "" && !strings.Contains(err.Error(), tt.wantDetail) {
				t.Errorf("Error() = %q", err.Error())
			}
		})
	}
}

func TestIsConflict(t *testing.T) {
	if !IsConflict(&HTTPError{StatusCode: 409}) {
		t.Error("409 should be a conflict")
	}
	if IsConflict(errors.New("409")) || IsConflict(&HTTPError{StatusCode: 400}) {
		t.Error("only HTTPError 409 is a conflict")
	}
}

func TestUploadFolder_ConflictIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		calls.Add(1)
		io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(nethttp.StatusConflict)
		w.Write([]byte(`{"detail":"Folder ds already exists"}`))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.UploadFolder(context.Background(), testPayload(t, "ds/a.csv"))
	if !IsConflict(err) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Folder ds already exists") {
		t.Errorf("error = %q", err.Error())
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
