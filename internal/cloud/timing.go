// timing.go - per-object transfer timing for diagnostics.
//
// Enable with AIVERIFY_TIMING=1. Output format:
//
//	[TIMING] put s3://bucket/ds/a.csv: 120ms (total 1.2 MB at 10.0 MB/s)
package cloud

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
)

// TimingEnv switches timing output on when set to "1".
const TimingEnv = "AIVERIFY_TIMING"

// TimingEnabled reports whether timing output is on.
func TimingEnabled() bool {
	return os.Getenv(TimingEnv) == "1"
}

// Timer measures one named phase. Stop is idempotent.
type Timer struct {
	name    string
	start   time.Time
	w       io.Writer
	stopped atomic.Bool
}

// StartTimer starts a timer writing to w, or os.Stderr when w is nil.
func StartTimer(w io.Writer, name string) *Timer {
	if w == nil {
		w = os.Stderr
	}
	return &Timer{name: name, start: time.Now(), w: w}
}

// StopWithThroughput logs the elapsed time with a rate for bytes. Only the
// first call logs.
func (t *Timer) StopWithThroughput(bytes int64) time.Duration {
	elapsed := time.Since(t.start)
	if t.stopped.CompareAndSwap(false, true) && TimingEnabled() {
		rate := 0.0
		if elapsed > 0 {
			rate = float64(bytes) / elapsed.Seconds()
		}
		fmt.Fprintf(t.w, "[TIMING] %s: %v (total %s at %s)\n", t.name, elapsed, FormatBytes(bytes), FormatSpeed(rate))
	}
	return elapsed
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatSpeed returns a human-readable rate.
func FormatSpeed(bytesPerSec float64) string {
	switch {
	case bytesPerSec < 1024:
		return fmt.Sprintf("%.1f B/s", bytesPerSec)
	case bytesPerSec < 1024*1024:
		return fmt.Sprintf("%.1f KB/s", bytesPerSec/1024)
	default:
		return fmt.Sprintf("%.1f MB/s", bytesPerSec/(1024*1024))
	}
}
