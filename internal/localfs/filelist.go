package localfs

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aiverify/aiv-upload/internal/collector"
	"github.com/aiverify/aiv-upload/internal/validation"
)

// WalkFunc is called for each regular file found by Walk with its path
// relative to the walk root.
type WalkFunc func(path, rel string, info fs.FileInfo) error

// Walk traverses root depth-first and calls fn for every regular file.
// Unreadable entries are skipped. fn may return filepath.SkipDir or any other
// error to stop.
func Walk(root string, opts WalkOptions, fn WalkFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != root && !opts.IncludeHidden && IsHiddenName(d.Name()) {
			if d.IsDir() && opts.SkipHiddenDirs {
				return filepath.SkipDir
			}
			if !d.IsDir() {
				return nil
			}
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		return fn(path, filepath.ToSlash(rel), info)
	})
}

// FileList emulates a directory picker on root: every file is returned with a
// relative path starting with root's base name.
func FileList(root string, opts WalkOptions) ([]collector.SourceFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	base := filepath.Base(filepath.Clean(root))
	var files []collector.SourceFile
	err = Walk(root, opts, func(path, rel string, info fs.FileInfo) error {
		files = append(files, collector.SourceFile{
			RelativePath: base + "/" + rel,
			Blob:         lazyBlob(path, info),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ReadManifest reads relative paths (one per line, "#" comments allowed) and
// resolves them against base. Paths are kept verbatim so malformed folder
// names reach submission validation; paths escaping base are rejected.
func ReadManifest(r io.Reader, base string) ([]collector.SourceFile, error) {
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}

	var files []collector.SourceFile
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		rel := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(rel) == "" || strings.HasPrefix(strings.TrimSpace(rel), "#") {
			continue
		}
		full := filepath.Join(base, filepath.FromSlash(rel))
		if err := validation.ValidatePathInDirectory(full, base); err != nil {
			return nil, fmt.Errorf("manifest line %d: %w", line, err)
		}
		info, err := os.Stat(full)
		if err != nil {
			return nil, fmt.Errorf("manifest line %d: %w", line, err)
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("manifest line %d: %s is not a regular file", line, rel)
		}
		files = append(files, collector.SourceFile{RelativePath: rel, Blob: lazyBlob(full, info)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return files, nil
}

func lazyBlob(path string, info fs.FileInfo) collector.Blob {
	name := info.Name()
	return collector.NewBlob(name, info.Size(), mediaTypeFor(name), func() (io.ReadCloser, error) {
		return os.Open(path)
	})
}
