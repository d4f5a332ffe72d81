package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aiverify/aiv-upload/internal/cloud/providers"
	"github.com/aiverify/aiv-upload/internal/collector"
	"github.com/aiverify/aiv-upload/internal/config"
	"github.com/aiverify/aiv-upload/internal/events"
	"github.com/aiverify/aiv-upload/internal/localfs"
	"github.com/aiverify/aiv-upload/internal/logging"
	"github.com/aiverify/aiv-upload/internal/notify"
	"github.com/aiverify/aiv-upload/internal/progress"
	"github.com/aiverify/aiv-upload/internal/state"
	"github.com/aiverify/aiv-upload/internal/upload"
)

// session ties one queue to one driver. The upload and shell commands both
// work through it.
type session struct {
	cfg    *config.Config
	queue  *state.QueueState
	driver *upload.Driver
	bus    *events.EventBus
	logger *logging.Logger
	out    io.Writer
	walk   localfs.WalkOptions
	done   chan struct{}
}

// newSession validates cfg and builds the configured backend.
func newSession(ctx context.Context, cfg *config.Config, out io.Writer, logger *logging.Logger) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := ensureProxyPassword(cfg); err != nil {
		return nil, err
	}
	u, err := providers.NewUploader(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s uploader: %w", cfg.Backend, err)
	}
	return newSessionWithUploader(cfg, u, out, logger), nil
}

func newSessionWithUploader(cfg *config.Config, u upload.Uploader, out io.Writer, logger *logging.Logger) *session {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	bus := events.NewEventBus(0)
	queue := state.NewQueueState(bus)

	driver := upload.NewDriver(u, logger)
	driver.Workers = cfg.UploadWorkers
	driver.RetainFailed = cfg.RetainFailed
	driver.EventBus = bus
	// Succeeded folders leave the queue; failed ones stay when retained.
	driver.OnRoundComplete = func(r *upload.Round) {
		queue.Update(r.Remaining)
	}

	walk := localfs.DefaultWalkOptions()
	walk.IncludeHidden = cfg.IncludeHidden

	s := &session{
		cfg:    cfg,
		queue:  queue,
		driver: driver,
		bus:    bus,
		logger: logger,
		out:    out,
		walk:   walk,
		done:   make(chan struct{}),
	}
	go s.traceEvents(bus.SubscribeAll())
	return s
}

// traceEvents logs bus traffic at debug level until the bus closes.
func (s *session) traceEvents(ch <-chan events.Event) {
	defer close(s.done)
	for ev := range ch {
		e := s.logger.Debug().Str("event", string(ev.Type()))
		switch v := ev.(type) {
		case *events.QueueChangedEvent:
			e = e.Strs("folders", v.Folders).Int("files", v.TotalFiles)
		case *events.UploadEvent:
			e = e.Str("round", v.RoundID).Str("folder", v.Folder)
		case *events.RoundCompleteEvent:
			e = e.Str("round", v.RoundID).Int("succeeded", v.SuccessCount).Int("failed", v.FailCount)
		case *events.LogEvent:
			e = e.Str("level", v.Level.String()).Str("folder", v.Folder).Str("message", v.Message)
		}
		e.Msg("Queue event")
	}
}

// Close stops the event bus.
func (s *session) Close() {
	s.bus.Close()
	<-s.done
	if dropped := s.bus.GetDroppedEventCount(); dropped > 0 {
		s.logger.Warn().Int64("dropped", dropped).Msg("Queue events dropped by slow subscribers")
	}
}

// collectPaths collects the given files and directories as one pass.
// Unreadable paths are logged and skipped.
func (s *session) collectPaths(ctx context.Context, paths []string) ([]collector.Entry, error) {
	var items []collector.Item
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", p).Msg("Skipping path")
			continue
		}
		item, err := localfs.NewItem(abs, s.walk)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", p).Msg("Skipping path")
			continue
		}
		items = append(items, item)
	}

	spinner := progress.NewScanSpinner("Collecting files")
	defer spinner.Finish()

	c := collector.New(s.logger)
	c.OnFile = spinner.OnFile
	c.EventBus = s.bus
	return c.Collect(ctx, items)
}

// collectPicked lists each directory the way a directory picker does: every
// file at once, with paths relative to the directory's parent.
func (s *session) collectPicked(roots []string) ([]collector.Entry, error) {
	var files []collector.SourceFile
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		picked, err := localfs.FileList(abs, s.walk)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", root, err)
		}
		files = append(files, picked...)
	}
	return collector.FromFileList(files), nil
}

// collectManifest reads a manifest of relative paths as one pass.
func (s *session) collectManifest(manifest, base string) ([]collector.Entry, error) {
	f, err := os.Open(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	files, err := localfs.ReadManifest(f, base)
	if err != nil {
		return nil, err
	}
	return collector.FromFileList(files), nil
}

// add queues one pass and prints its notice.
func (s *session) add(entries []collector.Entry) {
	s.render(s.queue.Add(entries))
}

// submit uploads the queue. Validation failures are shown and returned.
func (s *session) submit(ctx context.Context) (*upload.Round, error) {
	snap := s.queue.Snapshot()

	ui := progress.NewUploadUI(snap.Count())
	s.driver.Progress = ui
	driverLogger := s.driver.Logger
	if ui.IsTerminal() && s.logger.Output() != io.Discard {
		// Print log lines above the bars while they are drawn.
		s.driver.Logger = logging.NewLogger(ui.Writer())
	}
	round, err := s.driver.Submit(ctx, snap)
	ui.Wait()
	s.driver.Logger = driverLogger

	if err != nil {
		if errors.Is(err, upload.ErrNoFolders) || errors.Is(err, upload.ErrInvalidFolderNames) {
			n := notify.Validation(err.Error())
			s.queue.Notify(n)
			s.render(n)
		}
		return nil, err
	}

	n := round.Notification()
	s.queue.Notify(n)
	s.render(n)
	return round, nil
}

func (s *session) render(n *notify.Notification) {
	if n == nil {
		return
	}
	if err := notify.Render(s.out, n); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render notification")
	}
}
