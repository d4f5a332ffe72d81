// Package registry holds the folders queued for upload. Registry values are
// immutable: every operation returns a new value, so callers always derive
// the next state from the latest one.
package registry

import (
	"slices"

	"github.com/aiverify/aiv-upload/internal/collector"
	"github.com/aiverify/aiv-upload/internal/notify"
)

// Folder is a queued top-level folder and its files in collection order.
type Folder struct {
	Name  string
	Files []collector.Entry
}

// Registry maps folder names to folders, preserving insertion order.
// The zero value is an empty registry.
type Registry struct {
	order   []string
	folders map[string]Folder
}

// New returns an empty registry.
func New() Registry {
	return Registry{}
}

func (r Registry) clone() Registry {
	next := Registry{
		order:   slices.Clone(r.order),
		folders: make(map[string]Folder, len(r.folders)),
	}
	for k, v := range r.folders {
		next.folders[k] = v
	}
	return next
}

// Add groups entries by folder name and merges them into the registry. A name
// already present has its file list replaced, not extended. The returned
// notification describes the batch: replaced names take precedence over
// added ones. An empty batch returns the registry unchanged and no notice.
func (r Registry) Add(entries []collector.Entry) (Registry, *notify.Notification) {
	if len(entries) == 0 {
		return r, nil
	}

	var batchOrder []string
	grouped := make(map[string][]collector.Entry)
	for _, e := range entries {
		if _, seen := grouped[e.Folder]; !seen {
			batchOrder = append(batchOrder, e.Folder)
		}
		grouped[e.Folder] = append(grouped[e.Folder], e)
	}

	next := r.clone()
	var added, replaced []string
	for _, name := range batchOrder {
		if _, exists := next.folders[name]; exists {
			replaced = append(replaced, name)
		} else {
			added = append(added, name)
			next.order = append(next.order, name)
		}
		next.folders[name] = Folder{Name: name, Files: grouped[name]}
	}

	if len(replaced) > 0 {
		return next, notify.Replaced(replaced)
	}
	return next, notify.Added(added)
}

// Remove deletes one folder. Unknown names are a no-op.
func (r Registry) Remove(name string) Registry {
	if _, ok := r.folders[name]; !ok {
		return r
	}
	next := r.clone()
	delete(next.folders, name)
	next.order = slices.DeleteFunc(next.order, func(n string) bool { return n == name })
	return next
}

// Clear returns an empty registry.
func (r Registry) Clear() Registry {
	return Registry{}
}

// Count is the number of queued folders.
func (r Registry) Count() int {
	return len(r.order)
}

// TotalFileCount is the number of files across all folders.
func (r Registry) TotalFileCount() int {
	total := 0
	for _, f := range r.folders {
		total += len(f.Files)
	}
	return total
}

// Names returns folder names in insertion order.
func (r Registry) Names() []string {
	return slices.Clone(r.order)
}

// Folders returns folders in insertion order.
func (r Registry) Folders() []Folder {
	out := make([]Folder, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.folders[name])
	}
	return out
}

// Get looks up a folder by name.
func (r Registry) Get(name string) (Folder, bool) {
	f, ok := r.folders[name]
	return f, ok
}
