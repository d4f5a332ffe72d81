// Package collector turns directory picks and dropped items into a flat list of
// entries grouped by top folder name.
package collector

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// ErrNoContent is returned by Blob.Open when the blob has no content source.
var ErrNoContent = errors.New("blob has no content")

// Blob is a file's content and its declared media type. Content is opened
// lazily so large trees are not held in memory.
type Blob struct {
	Name      string
	Size      int64
	MediaType string

	open func() (io.ReadCloser, error)
}

// NewBlob creates a blob backed by an open function.
func NewBlob(name string, size int64, mediaType string, open func() (io.ReadCloser, error)) Blob {
	return Blob{Name: name, Size: size, MediaType: mediaType, open: open}
}

// BytesBlob creates an in-memory blob. Its readers also implement io.Seeker.
func BytesBlob(name string, data []byte, mediaType string) Blob {
	return NewBlob(name, int64(len(data)), mediaType, func() (io.ReadCloser, error) {
		return bytesReadCloser{bytes.NewReader(data)}, nil
	})
}

type bytesReadCloser struct {
	*bytes.Reader
}

func (bytesReadCloser) Close() error { return nil }

// Open returns a reader over the blob's content.
func (b Blob) Open() (io.ReadCloser, error) {
	if b.open == nil {
		return nil, ErrNoContent
	}
	return b.open()
}

// Entry is one collected file: its top folder, the directory path between the
// folder and the file, and the content.
type Entry struct {
	Folder string
	Dir    string
	Blob   Blob
}

// SubfolderPath is the file's location inside its folder, "./" for root files.
func (e Entry) SubfolderPath() string {
	return "./" + e.Dir
}

// RelativePath rebuilds "folder/dir/name".
func (e Entry) RelativePath() string {
	return joinRelative(joinRelative(e.Folder, e.Dir), e.Blob.Name)
}

// SourceFile is a file from a directory picker: the picker supplies the
// relative path, starting with the picked folder's name.
type SourceFile struct {
	RelativePath string
	Blob         Blob
}

// Item is something handed over by a drop. Items implementing FileEntry or
// DirectoryEntry are collected; anything else is ignored.
type Item interface {
	Name() string
}

// FileEntry resolves to file content. Resolution may fail independently of
// its siblings.
type FileEntry interface {
	Item
	File(ctx context.Context) (Blob, error)
}

// DirectoryEntry is a directory whose children are enumerated through a reader.
type DirectoryEntry interface {
	Item
	NewReader() DirectoryReader
}

// DirectoryReader returns children in batches. One call is not guaranteed to
// return every child; callers poll until an empty batch comes back.
type DirectoryReader interface {
	ReadEntries(ctx context.Context) ([]Item, error)
}
