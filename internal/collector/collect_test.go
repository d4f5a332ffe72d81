package collector

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/aiverify/aiv-upload/internal/events"
)

type fakeFile struct {
	name string
	err  error
}

func (f fakeFile) Name() string { return f.name }

func (f fakeFile) File(context.Context) (Blob, error) {
	if f.err != nil {
		return Blob{}, f.err
	}
	return BytesBlob(f.name, []byte(f.name), "text/plain"), nil
}

type fakeDir struct {
	name     string
	children []Item
	batch    int
	failAt   int // batch index that fails; 0 disables
}

func (d *fakeDir) Name() string { return d.name }

func (d *fakeDir) NewReader() DirectoryReader {
	return &fakeReader{dir: d}
}

type fakeReader struct {
	dir   *fakeDir
	pos   int
	calls int
}

func (r *fakeReader) ReadEntries(context.Context) ([]Item, error) {
	r.calls++
	if r.dir.failAt > 0 && r.calls == r.dir.failAt {
		return nil, errors.New("permission denied")
	}
	size := r.dir.batch
	if size <= 0 {
		size = len(r.dir.children)
	}
	end := min(r.pos+size, len(r.dir.children))
	out := r.dir.children[r.pos:end]
	r.pos = end
	return out, nil
}

type textItem struct{}

func (textItem) Name() string { return "dragged text" }

func paths(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.RelativePath())
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCollect_OneUnreadableFileAmongFive(t *testing.T) {
	root := &fakeDir{name: "data", children: []Item{
		fakeFile{name: "a.csv"},
		fakeFile{name: "b.csv"},
		fakeFile{name: "c.csv", err: errors.New("NotReadableError")},
		fakeFile{name: "d.csv"},
		fakeFile{name: "e.csv"},
	}}

	entries, err := CollectItems(context.Background(), []Item{root})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"data/a.csv", "data/b.csv", "data/d.csv", "data/e.csv"}
	if got := paths(entries); !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCollect_PollsReaderUntilEmpty(t *testing.T) {
	var children []Item
	for _, n := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		children = append(children, fakeFile{name: n + ".bin"})
	}
	root := &fakeDir{name: "big", children: children, batch: 2}

	entries, err := CollectItems(context.Background(), []Item{root})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 7 {
		t.Errorf("got %d entries, want 7 (reader must be polled repeatedly)", len(entries))
	}
}

func TestCollect_NestedDirectories(t *testing.T) {
	deep := &fakeDir{name: "c", children: []Item{fakeFile{name: "leaf.txt"}}}
	mid := &fakeDir{name: "b", children: []Item{deep, fakeFile{name: "mid.txt"}}}
	root := &fakeDir{name: "model", children: []Item{mid, fakeFile{name: "top.txt"}}}

	entries, err := CollectItems(context.Background(), []Item{root})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"model/b/c/leaf.txt", "model/b/mid.txt", "model/top.txt"}
	if got := paths(entries); !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	for _, e := range entries {
		if e.Folder != "model" {
			t.Errorf("entry %s has folder %q", e.RelativePath(), e.Folder)
		}
		switch e.Blob.Name {
		case "leaf.txt":
			if e.SubfolderPath() != "./b/c" {
				t.Errorf("leaf subfolder = %q", e.SubfolderPath())
			}
		case "top.txt":
			if e.SubfolderPath() != "./" {
				t.Errorf("top subfolder = %q", e.SubfolderPath())
			}
		}
	}
}

func TestCollect_DirectoryReadFailureKeepsSiblings(t *testing.T) {
	broken := &fakeDir{name: "locked", children: []Item{fakeFile{name: "x"}, fakeFile{name: "y"}}, batch: 1, failAt: 2}
	ok := &fakeDir{name: "ok", children: []Item{fakeFile{name: "z"}}}
	root := &fakeDir{name: "ds", children: []Item{broken, ok}}

	entries, err := CollectItems(context.Background(), []Item{root})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"ds/locked/x", "ds/ok/z"}
	if got := paths(entries); !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCollect_IgnoresNonFileItems(t *testing.T) {
	root := &fakeDir{name: "f", children: []Item{fakeFile{name: "keep"}}}
	entries, err := CollectItems(context.Background(), []Item{textItem{}, root, nil})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].RelativePath() != "f/keep" {
		t.Errorf("unexpected entries: %v", paths(entries))
	}
}

func TestCollect_TopLevelFileIsItsOwnFolder(t *testing.T) {
	entries, err := CollectItems(context.Background(), []Item{fakeFile{name: "loose.csv"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Folder != "loose.csv" || entries[0].Dir != "" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestCollect_OnlyReturnsThisInteraction(t *testing.T) {
	c := New(nil)
	first, _ := c.Collect(context.Background(), []Item{&fakeDir{name: "a", children: []Item{fakeFile{name: "1"}}}})
	second, _ := c.Collect(context.Background(), []Item{&fakeDir{name: "b", children: []Item{fakeFile{name: "2"}}}})
	if len(first) != 1 || len(second) != 1 || second[0].Folder != "b" {
		t.Errorf("collections leaked between calls: %v / %v", paths(first), paths(second))
	}
}

func TestCollect_OnFileHook(t *testing.T) {
	c := New(nil)
	seen := 0
	c.OnFile = func(Entry) { seen++ }
	root := &fakeDir{name: "r", children: []Item{fakeFile{name: "1"}, fakeFile{name: "2"}, fakeFile{name: "3", err: errors.New("bad")}}}
	if _, err := c.Collect(context.Background(), []Item{root}); err != nil {
		t.Fatal(err)
	}
	if seen != 2 {
		t.Errorf("OnFile called %d times, want 2", seen)
	}
}

func TestCollect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root := &fakeDir{name: "r", children: []Item{fakeFile{name: "1"}}}
	if _, err := CollectItems(ctx, []Item{root}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFromFileList(t *testing.T) {
	files := []SourceFile{
		{RelativePath: "ds/train.csv", Blob: BytesBlob("train.csv", nil, "")},
		{RelativePath: "ds/split/a/test.csv", Blob: BytesBlob("test.csv", nil, "")},
		{RelativePath: "/rooted.csv", Blob: BytesBlob("rooted.csv", nil, "")},
	}
	entries := FromFileList(files)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[1].Folder != "ds" || entries[1].SubfolderPath() != "./split/a" {
		t.Errorf("nested entry = %+v", entries[1])
	}
	if entries[2].Folder != "" {
		t.Errorf("leading slash should give an empty folder, got %q", entries[2].Folder)
	}
}

func TestCollect_PublishesSkippedFiles(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	logs := bus.Subscribe(events.EventLog)

	root := &fakeDir{name: "data", children: []Item{
		fakeFile{name: "a.csv"},
		fakeFile{name: "b.csv", err: errors.New("NotReadableError")},
	}}
	c := New(nil)
	c.EventBus = bus
	if _, err := c.Collect(context.Background(), []Item{root}); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-logs:
		le, ok := ev.(*events.LogEvent)
		if !ok {
			t.Fatalf("unexpected event %T", ev)
		}
		if le.Level != events.WarnLevel || le.Folder != "data" || le.Error == nil {
			t.Errorf("log event = %+v", le)
		}
	default:
		t.Fatal("expected a log event for the skipped file")
	}
	select {
	case ev := <-logs:
		t.Errorf("only one file was skipped, got extra %+v", ev)
	default:
	}
}
