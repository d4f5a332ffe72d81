package collector

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/aiverify/aiv-upload/internal/constants"
	"github.com/aiverify/aiv-upload/internal/events"
	"github.com/aiverify/aiv-upload/internal/logging"
)

// FromFileList converts directory-picker files into entries. Every file is
// kept, including ones whose path yields an empty folder name.
func FromFileList(files []SourceFile) []Entry {
	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		folder, dir, name := SplitRelativePath(f.RelativePath)
		blob := f.Blob
		if name != "" {
			blob.Name = name
		}
		entries = append(entries, Entry{Folder: folder, Dir: dir, Blob: blob})
	}
	return entries
}

// Collector walks dropped items.
type Collector struct {
	// Workers bounds concurrent file resolution within one directory.
	Workers int
	Logger  *logging.Logger
	// OnFile is called from the collecting goroutine for every resolved entry.
	OnFile func(Entry)
	// EventBus receives a warning log event for every skipped file or
	// directory. May be nil.
	EventBus *events.EventBus
}

// New returns a collector with default worker count.
func New(logger *logging.Logger) *Collector {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Collector{Workers: constants.CollectWorkers, Logger: logger}
}

// CollectItems collects items with a default collector.
func CollectItems(ctx context.Context, items []Item) ([]Entry, error) {
	return New(nil).Collect(ctx, items)
}

type pendingDir struct {
	entry DirectoryEntry
	path  string
}

type pendingFile struct {
	entry FileEntry
	path  string
}

// Collect resolves dropped items into entries.
//
// Directories are processed from a FIFO worklist. Each directory's reader is
// polled until it returns an empty batch; its files are resolved concurrently
// and all of them finish before the next directory starts. A failed file or
// directory read is logged and skipped. Only ctx cancellation aborts.
func (c *Collector) Collect(ctx context.Context, items []Item) ([]Entry, error) {
	if c.Logger == nil {
		c.Logger = logging.NewNopLogger()
	}

	var entries []Entry
	var queue []pendingDir
	var rootFiles []pendingFile

	for _, item := range items {
		switch it := item.(type) {
		case DirectoryEntry:
			queue = append(queue, pendingDir{entry: it, path: it.Name()})
		case FileEntry:
			rootFiles = append(rootFiles, pendingFile{entry: it, path: it.Name()})
		default:
			c.Logger.Debug().Str("item", itemName(item)).Msg("Ignoring dropped item that is neither file nor directory")
		}
	}

	resolved, err := c.resolveFiles(ctx, rootFiles)
	if err != nil {
		return nil, err
	}
	entries = append(entries, resolved...)

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		children, err := c.readAll(ctx, dir)
		if err != nil {
			return nil, err
		}

		var files []pendingFile
		for _, child := range children {
			childPath := joinRelative(dir.path, child.Name())
			switch ch := child.(type) {
			case DirectoryEntry:
				queue = append(queue, pendingDir{entry: ch, path: childPath})
			case FileEntry:
				files = append(files, pendingFile{entry: ch, path: childPath})
			}
		}

		resolved, err := c.resolveFiles(ctx, files)
		if err != nil {
			return nil, err
		}
		entries = append(entries, resolved...)
	}

	return entries, nil
}

// readAll polls a directory reader until it reports no more children. A read
// error ends the directory early but keeps the children already returned.
func (c *Collector) readAll(ctx context.Context, dir pendingDir) ([]Item, error) {
	reader := dir.entry.NewReader()
	var children []Item
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := reader.ReadEntries(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.Logger.Warn().Err(err).Str("directory", dir.path).Msg("Failed to read directory, skipping remaining entries")
			c.EventBus.PublishLog(events.WarnLevel, "Skipped unreadable directory "+dir.path, folderOf(dir.path), err)
			return children, nil
		}
		if len(batch) == 0 {
			return children, nil
		}
		children = append(children, batch...)
	}
}

func (c *Collector) resolveFiles(ctx context.Context, files []pendingFile) ([]Entry, error) {
	if len(files) == 0 {
		return nil, nil
	}

	slots := make([]*Entry, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Workers, 1))

	for i, f := range files {
		g.Go(func() error {
			blob, err := f.entry.File(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.Logger.Warn().Err(err).Str("file", f.path).Msg("Failed to read file, skipping")
				c.EventBus.PublishLog(events.WarnLevel, "Skipped unreadable file "+f.path, folderOf(f.path), err)
				return nil
			}
			folder, dir, name := SplitRelativePath(f.path)
			if name != "" {
				blob.Name = name
			}
			slots[i] = &Entry{Folder: folder, Dir: dir, Blob: blob}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(files))
	for _, e := range slots {
		if e == nil {
			continue
		}
		out = append(out, *e)
		if c.OnFile != nil {
			c.OnFile(*e)
		}
	}
	return out, nil
}

func folderOf(path string) string {
	folder, _, _ := SplitRelativePath(path)
	return folder
}

func itemName(item Item) string {
	if item == nil {
		return "<nil>"
	}
	return item.Name()
}
