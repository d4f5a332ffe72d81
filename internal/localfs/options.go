package localfs

// WalkOptions configures hidden-entry filtering for directory items and walks.
type WalkOptions struct {
	// IncludeHidden includes dot-files and dot-directories.
	IncludeHidden bool

	// SkipHiddenDirs skips descending into hidden directories entirely.
	// Only meaningful when IncludeHidden is false.
	SkipHiddenDirs bool

	// BatchSize is the number of children returned per directory read.
	BatchSize int
}

// DefaultWalkOptions excludes hidden entries.
func DefaultWalkOptions() WalkOptions {
	return WalkOptions{SkipHiddenDirs: true}
}
