package registry

import (
	"fmt"
	"strings"
	"testing"
)

func TestDescribe_ThreeFilesNoSuffix(t *testing.T) {
	reg, _ := New().Add(entries("ds/a", "ds/b", "ds/c"))
	f, _ := reg.Get("ds")
	out := strings.Join(f.Describe(), "\n")
	if strings.Contains(out, "more") {
		t.Errorf("unexpected suffix:\n%s", out)
	}
}

func TestDescribe_ExcessFilesSuffix(t *testing.T) {
	for _, n := range []int{4, 5, 12} {
		var paths []string
		for i := 0; i < n; i++ {
			paths = append(paths, fmt.Sprintf("ds/f%02d", i))
		}
		reg, _ := New().Add(entries(paths...))
		f, _ := reg.Get("ds")
		lines := f.Describe()

		want := fmt.Sprintf("    ...and %d more", n-3)
		if lines[len(lines)-1] != want {
			t.Errorf("n=%d: last line %q, want %q", n, lines[len(lines)-1], want)
		}
		shown := 0
		for _, l := range lines {
			if strings.HasPrefix(l, "    f") {
				shown++
			}
		}
		if shown != 3 {
			t.Errorf("n=%d: shown %d files, want 3", n, shown)
		}
	}
}

func TestDescribe_GroupsBySubfolder(t *testing.T) {
	var paths []string
	for i := 0; i < 7; i++ {
		paths = append(paths, fmt.Sprintf("ds/g%d/file.csv", i))
	}
	paths = append(paths, "ds/root.csv")
	reg, _ := New().Add(entries(paths...))
	f, _ := reg.Get("ds")

	groups := f.Groups()
	if len(groups) != 8 {
		t.Fatalf("got %d groups", len(groups))
	}
	if groups[0].Path != "./g0" || groups[7].Path != "./" {
		t.Errorf("group paths = %q ... %q", groups[0].Path, groups[7].Path)
	}

	lines := f.Describe()
	if lines[0] != "ds (8 files)" {
		t.Errorf("header = %q", lines[0])
	}
	if last := lines[len(lines)-1]; last != "  ...and 3 more" {
		t.Errorf("group suffix = %q", last)
	}
}

func TestDescribeQueue(t *testing.T) {
	if DescribeQueue(New()) != "No folders queued." {
		t.Error("empty queue text")
	}
	reg, _ := New().Add(entries("a/1", "b/x/2"))
	out := DescribeQueue(reg)
	if !strings.HasPrefix(out, "a (1 file)\n  ./\n    1\n") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.HasSuffix(out, "(2 folders, 2 total files)\n") {
		t.Errorf("missing summary:\n%s", out)
	}
}
