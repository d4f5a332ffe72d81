package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/aiverify/aiv-upload/internal/upload"
)

// UploadUI shows one line per folder being submitted. On a terminal each
// folder gets an mpb spinner; otherwise plain start/finish lines are written.
type UploadUI struct {
	progress   *mpb.Progress
	out        io.Writer
	mu         sync.Mutex // guards out in plain mode
	bars       sync.Map   // folder name -> *folderBar
	isTerminal bool
	total      int
	started    atomic.Int32
}

type folderBar struct {
	bar   *mpb.Bar
	index int
	files int
	bytes int64
	start time.Time
}

// NewUploadUI creates a UI for a round of total folders, drawing to stderr.
func NewUploadUI(total int) *UploadUI {
	isTerminal := IsTerminal(os.Stderr)
	if isTerminal {
		enableANSIOnWindows(os.Stderr)
	}
	return newUploadUI(os.Stderr, isTerminal, total)
}

func newUploadUI(w io.Writer, isTerminal bool, total int) *UploadUI {
	u := &UploadUI{out: w, isTerminal: isTerminal, total: total}
	if isTerminal {
		u.progress = mpb.New(
			mpb.WithOutput(w),
			mpb.WithRefreshRate(150*time.Millisecond),
			mpb.WithWidth(80),
		)
	}
	return u
}

// FolderStarted adds a line for the folder.
func (u *UploadUI) FolderStarted(name string, files int, bytes int64) {
	fb := &folderBar{
		index: int(u.started.Add(1)),
		files: files,
		bytes: bytes,
		start: time.Now(),
	}
	label := fmt.Sprintf("[%d/%d] %s (%s, %s)", fb.index, u.total, name, countFiles(files), formatSize(bytes))

	if u.isTerminal {
		fb.bar = u.progress.New(1,
			mpb.SpinnerStyle(),
			mpb.PrependDecorators(decor.Name(label, decor.WCSyncSpaceR)),
			mpb.AppendDecorators(
				decor.OnAbort(
					decor.OnComplete(decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace), "done"),
					"failed",
				),
			),
		)
	} else {
		u.printf("Uploading %s\n", label)
	}
	u.bars.Store(name, fb)
}

// FolderFinished completes the folder's line and prints a result line.
func (u *UploadUI) FolderFinished(name string, err error) {
	v, ok := u.bars.LoadAndDelete(name)
	if !ok {
		return
	}
	fb := v.(*folderBar)
	elapsed := time.Since(fb.start).Round(time.Millisecond)

	var msg string
	if err == nil {
		msg = fmt.Sprintf("✓ %s (%s, %s)\n", name, countFiles(fb.files), elapsed)
	} else {
		msg = fmt.Sprintf("✗ %s: %v\n", name, err)
	}

	if fb.bar != nil {
		if err == nil {
			fb.bar.SetCurrent(1)
			fb.bar.SetTotal(1, true)
		} else {
			fb.bar.Abort(false)
		}
		_, _ = u.progress.Write([]byte(msg))
		return
	}
	u.printf("%s", msg)
}

// Wait blocks until every bar has rendered its final state.
func (u *UploadUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// Writer returns a writer that prints above the bars.
func (u *UploadUI) Writer() io.Writer {
	if u.progress != nil {
		return u.progress
	}
	return u.out
}

// IsTerminal reports whether bars are drawn.
func (u *UploadUI) IsTerminal() bool {
	return u.isTerminal
}

func (u *UploadUI) printf(format string, args ...any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, format, args...)
}

func countFiles(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}

func formatSize(bytes int64) string {
	return fmt.Sprintf("%.1f MiB", float64(bytes)/(1024*1024))
}

var _ upload.ProgressReporter = (*UploadUI)(nil)
