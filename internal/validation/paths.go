// Package validation holds input checks shared by the collector, submission
// and storage backends.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxObjectKeyLength is the longest key accepted by both S3 and Azure Blob.
const MaxObjectKeyLength = 1024

// ValidFolderName reports whether a folder name is non-empty after trimming
// Unicode whitespace and byte order marks.
func ValidFolderName(name string) bool {
	return strings.TrimFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	}) != ""
}

// ValidateFilename validates a bare file name. It rejects empty names, path
// separators, null bytes and "..". Names like "data..v2.csv" are fine.
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if strings.ContainsRune(filename, 0) {
		return fmt.Errorf("filename contains null byte: %q", filename)
	}
	if strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("filename cannot contain path separators: %s", filename)
	}
	if filename == ".." {
		return fmt.Errorf("filename cannot be '..'")
	}
	return nil
}

// ValidatePathInDirectory checks that path, resolved against baseDir, stays
// inside baseDir.
func ValidatePathInDirectory(path string, baseDir string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if baseDir == "" {
		return fmt.Errorf("base directory cannot be empty")
	}

	base, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolved := filepath.Clean(path)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(base, resolved)
	}

	rel, err := filepath.Rel(base, resolved)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s (base: %s)", path, baseDir)
	}
	return nil
}

// ValidateObjectKey checks an object-store key built from folder, subfolder
// and file name.
func ValidateObjectKey(key string) error {
	if key == "" {
		return fmt.Errorf("object key cannot be empty")
	}
	if len(key) > MaxObjectKeyLength {
		return fmt.Errorf("object key exceeds %d bytes: %d", MaxObjectKeyLength, len(key))
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("object key is not valid UTF-8")
	}
	if strings.ContainsRune(key, 0) {
		return fmt.Errorf("object key contains null byte")
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return fmt.Errorf("object key contains '..' segment: %s", key)
		}
	}
	return nil
}
