// Package progress draws collection and submission progress on the terminal.
package progress

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/aiverify/aiv-upload/internal/collector"
)

// ScanSpinner counts files as the collector resolves them.
type ScanSpinner struct {
	bar   *progressbar.ProgressBar
	count atomic.Int64
}

// NewScanSpinner creates a spinner on stderr. Off a terminal it only counts.
func NewScanSpinner(description string) *ScanSpinner {
	if !IsTerminal(os.Stderr) {
		return &ScanSpinner{}
	}
	return newScanSpinner(os.Stderr, description)
}

func newScanSpinner(w io.Writer, description string) *ScanSpinner {
	return &ScanSpinner{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(w),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		),
	}
}

// OnFile matches collector.Collector.OnFile.
func (s *ScanSpinner) OnFile(collector.Entry) {
	s.count.Add(1)
	if s.bar != nil {
		_ = s.bar.Add(1)
	}
}

// Count is the number of files seen so far.
func (s *ScanSpinner) Count() int64 {
	return s.count.Load()
}

// Finish clears the spinner.
func (s *ScanSpinner) Finish() {
	if s.bar != nil {
		_ = s.bar.Finish()
	}
}
