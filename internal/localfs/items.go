package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"

	"github.com/aiverify/aiv-upload/internal/collector"
	"github.com/aiverify/aiv-upload/internal/constants"
)

// NewItem returns a collector item for path: a directory entry, a file entry,
// or an item the collector ignores (symlinks, devices, sockets).
func NewItem(path string, opts WalkOptions) (collector.Item, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	return itemFor(path, info, opts), nil
}

func itemFor(path string, info fs.FileInfo, opts WalkOptions) collector.Item {
	switch {
	case info.IsDir():
		return &dirItem{path: path, name: filepath.Base(path), opts: opts}
	case info.Mode().IsRegular():
		return &fileItem{path: path, name: filepath.Base(path)}
	default:
		return otherItem{name: filepath.Base(path)}
	}
}

type fileItem struct {
	path string
	name string
}

func (f *fileItem) Name() string { return f.name }

// File stats the file and returns a blob that opens it on demand.
func (f *fileItem) File(ctx context.Context) (collector.Blob, error) {
	if err := ctx.Err(); err != nil {
		return collector.Blob{}, err
	}
	return FileBlob(f.path)
}

// FileBlob builds a blob for a regular file. The file must be readable now;
// content is opened again when the payload is written.
func FileBlob(path string) (collector.Blob, error) {
	fh, err := os.Open(path)
	if err != nil {
		return collector.Blob{}, err
	}
	info, err := fh.Stat()
	fh.Close()
	if err != nil {
		return collector.Blob{}, err
	}
	if !info.Mode().IsRegular() {
		return collector.Blob{}, fmt.Errorf("not a regular file: %s", path)
	}

	name := filepath.Base(path)
	return collector.NewBlob(name, info.Size(), mediaTypeFor(name), func() (io.ReadCloser, error) {
		return os.Open(path)
	}), nil
}

type dirItem struct {
	path string
	name string
	opts WalkOptions
}

func (d *dirItem) Name() string { return d.name }

func (d *dirItem) NewReader() collector.DirectoryReader {
	batch := d.opts.BatchSize
	if batch <= 0 {
		batch = constants.DirectoryReadBatch
	}
	return &dirReader{dir: d, batch: batch}
}

// dirReader returns children in batches of at most batch entries. Hidden
// entries are dropped from a batch, so a non-empty read can still come back
// short; the reader keeps reading until it has something or hits EOF.
type dirReader struct {
	dir   *dirItem
	batch int
	fh    *os.File
	done  bool
}

func (r *dirReader) ReadEntries(ctx context.Context) ([]collector.Item, error) {
	if r.done {
		return nil, nil
	}
	if r.fh == nil {
		fh, err := os.Open(r.dir.path)
		if err != nil {
			r.done = true
			return nil, err
		}
		r.fh = fh
	}

	for {
		if err := ctx.Err(); err != nil {
			r.close()
			return nil, err
		}

		dirents, err := r.fh.ReadDir(r.batch)
		items := r.convert(dirents)

		if errors.Is(err, io.EOF) || (err == nil && len(dirents) == 0) {
			r.close()
			return items, nil
		}
		if err != nil {
			r.close()
			return items, err
		}
		if len(items) > 0 {
			return items, nil
		}
	}
}

func (r *dirReader) convert(dirents []fs.DirEntry) []collector.Item {
	opts := r.dir.opts
	items := make([]collector.Item, 0, len(dirents))
	for _, de := range dirents {
		name := de.Name()
		if !opts.IncludeHidden && IsHiddenName(name) {
			if !de.IsDir() || opts.SkipHiddenDirs {
				continue
			}
		}
		full := filepath.Join(r.dir.path, name)
		info, err := de.Info()
		if err != nil {
			// Vanished or unreadable: let the collector log it when resolving.
			items = append(items, &fileItem{path: full, name: name})
			continue
		}
		items = append(items, itemFor(full, info, opts))
	}
	return items
}

func (r *dirReader) close() {
	r.done = true
	if r.fh != nil {
		r.fh.Close()
		r.fh = nil
	}
}

type otherItem struct {
	name string
}

func (o otherItem) Name() string { return o.name }

// mediaTypeFor guesses from the extension; an empty result lets the payload
// writer sniff the content instead.
func mediaTypeFor(name string) string {
	return mime.TypeByExtension(filepath.Ext(name))
}
