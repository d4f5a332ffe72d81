package registry

import (
	"fmt"
	"strings"

	"github.com/aiverify/aiv-upload/internal/constants"
)

// Summary renders "(N folders, M total files)".
func (r Registry) Summary() string {
	return fmt.Sprintf("(%s, %d total %s)",
		plural(r.Count(), "folder", "folders"), r.TotalFileCount(), noun(r.TotalFileCount(), "file", "files"))
}

// SubmitLabel is the submit action label: "UPLOAD 1 FOLDER" or "UPLOAD N FOLDERS".
func (r Registry) SubmitLabel() string {
	return "UPLOAD " + strings.ToUpper(plural(r.Count(), "folder", "folders"))
}

func plural(n int, one, many string) string {
	return fmt.Sprintf("%d %s", n, noun(n, one, many))
}

func noun(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Group is the files of one folder sharing a subfolder path.
type Group struct {
	Path  string
	Files []string
}

// Groups splits a folder's files by subfolder path, in first-seen order.
func (f Folder) Groups() []Group {
	var groups []Group
	index := make(map[string]int)
	for _, e := range f.Files {
		p := e.SubfolderPath()
		i, ok := index[p]
		if !ok {
			i = len(groups)
			index[p] = i
			groups = append(groups, Group{Path: p})
		}
		groups[i].Files = append(groups[i].Files, e.Blob.Name)
	}
	return groups
}

// Describe lists a folder for display: at most MaxDisplayGroups groups and
// MaxFilesPerGroup files per group, each cut followed by "...and N more".
func (f Folder) Describe() []string {
	lines := []string{fmt.Sprintf("%s (%s)", f.Name, plural(len(f.Files), "file", "files"))}

	groups := f.Groups()
	shown := groups
	if len(shown) > constants.MaxDisplayGroups {
		shown = shown[:constants.MaxDisplayGroups]
	}
	for _, g := range shown {
		lines = append(lines, "  "+g.Path)
		files := g.Files
		if len(files) > constants.MaxFilesPerGroup {
			files = files[:constants.MaxFilesPerGroup]
		}
		for _, name := range files {
			lines = append(lines, "    "+name)
		}
		if extra := len(g.Files) - len(files); extra > 0 {
			lines = append(lines, fmt.Sprintf("    ...and %d more", extra))
		}
	}
	if extra := len(groups) - len(shown); extra > 0 {
		lines = append(lines, fmt.Sprintf("  ...and %d more", extra))
	}
	return lines
}

// DescribeQueue renders every folder followed by the summary line.
func DescribeQueue(r Registry) string {
	if r.Count() == 0 {
		return "No folders queued."
	}
	var b strings.Builder
	for _, f := range r.Folders() {
		for _, line := range f.Describe() {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	b.WriteString(r.Summary())
	b.WriteByte('\n')
	return b.String()
}
