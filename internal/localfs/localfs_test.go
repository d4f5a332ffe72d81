package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/aiverify/aiv-upload/internal/collector"
)

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{".gitignore", true},
		{"visible.txt", false},
		{"/path/to/.hidden", true},
		{"/path/to/visible.txt", false},
		{"..", false},
		{".", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsHidden(tt.path); got != tt.expected {
				t.Errorf("IsHidden(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

// makeTree creates:
//
//	root/ds/file1.txt
//	root/ds/.hidden_file
//	root/ds/sub/file2.txt
//	root/ds/.hidden_dir/file3.txt
func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"ds/file1.txt":             "1",
		"ds/.hidden_file":          "h",
		"ds/sub/file2.txt":         "2",
		"ds/.hidden_dir/file3.txt": "3",
	}
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func relPaths(entries []collector.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.RelativePath())
	}
	sort.Strings(out)
	return out
}

func TestNewItem_CollectsDirectory(t *testing.T) {
	root := makeTree(t)

	t.Run("exclude hidden", func(t *testing.T) {
		item, err := NewItem(filepath.Join(root, "ds"), WalkOptions{SkipHiddenDirs: true, BatchSize: 1})
		if err != nil {
			t.Fatal(err)
		}
		entries, err := collector.CollectItems(context.Background(), []collector.Item{item})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"ds/file1.txt", "ds/sub/file2.txt"}
		if got := relPaths(entries); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("include hidden", func(t *testing.T) {
		item, err := NewItem(filepath.Join(root, "ds"), WalkOptions{IncludeHidden: true})
		if err != nil {
			t.Fatal(err)
		}
		entries, err := collector.CollectItems(context.Background(), []collector.Item{item})
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 4 {
			t.Errorf("got %d entries, want 4: %v", len(entries), relPaths(entries))
		}
	})
}

func TestNewItem_FileContent(t *testing.T) {
	root := makeTree(t)
	item, err := NewItem(filepath.Join(root, "ds", "file1.txt"), DefaultWalkOptions())
	if err != nil {
		t.Fatal(err)
	}
	fe, ok := item.(collector.FileEntry)
	if !ok {
		t.Fatalf("expected a file entry, got %T", item)
	}
	blob, err := fe.File(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if blob.Size != 1 || blob.Name != "file1.txt" {
		t.Errorf("blob = %+v", blob)
	}
	rc, err := blob.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "1" {
		t.Errorf("content = %q", data)
	}
}

func TestFileBlob_MediaType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	if err := os.WriteFile(path, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}
	blob, err := FileBlob(path)
	if err != nil {
		t.Fatal(err)
	}
	if blob.MediaType != "application/json" {
		t.Errorf("MediaType = %q", blob.MediaType)
	}
}

func TestNewItem_SymlinkIgnored(t *testing.T) {
	root := makeTree(t)
	link := filepath.Join(root, "link")
	if err := os.Symlink(filepath.Join(root, "ds"), link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	item, err := NewItem(link, DefaultWalkOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := item.(collector.DirectoryEntry); ok {
		t.Error("symlink must not be treated as a directory")
	}
	if _, ok := item.(collector.FileEntry); ok {
		t.Error("symlink must not be treated as a file")
	}
}

func TestNewItem_Missing(t *testing.T) {
	if _, err := NewItem(filepath.Join(t.TempDir(), "nope"), DefaultWalkOptions()); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestFileList(t *testing.T) {
	root := makeTree(t)
	files, err := FileList(filepath.Join(root, "ds"), DefaultWalkOptions())
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, f := range files {
		got = append(got, f.RelativePath)
	}
	sort.Strings(got)
	want := []string{"ds/file1.txt", "ds/sub/file2.txt"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := FileList(filepath.Join(root, "ds", "file1.txt"), DefaultWalkOptions()); err == nil {
		t.Error("expected error for a file root")
	}
}

func TestReadManifest(t *testing.T) {
	root := makeTree(t)
	manifest := "# datasets\nds/file1.txt\n\nds/sub/file2.txt\r\n"

	files, err := ReadManifest(strings.NewReader(manifest), root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[1].RelativePath != "ds/sub/file2.txt" {
		t.Errorf("files = %+v", files)
	}

	if _, err := ReadManifest(strings.NewReader("../escape.txt\n"), root); err == nil {
		t.Error("expected error for path escaping base")
	}
	if _, err := ReadManifest(strings.NewReader("ds/missing.txt\n"), root); err == nil {
		t.Error("expected error for missing file")
	}
}
