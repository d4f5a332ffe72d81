// Package upload validates the queue and submits each folder to an uploader,
// collecting one outcome per folder.
package upload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aiverify/aiv-upload/internal/constants"
	"github.com/aiverify/aiv-upload/internal/events"
	"github.com/aiverify/aiv-upload/internal/logging"
	"github.com/aiverify/aiv-upload/internal/notify"
	"github.com/aiverify/aiv-upload/internal/registry"
	"github.com/aiverify/aiv-upload/internal/validation"
)

// Uploader sends one folder's payload and returns the response body.
type Uploader interface {
	UploadFolder(ctx context.Context, p *Payload) ([]byte, error)
}

// UploaderFunc adapts a function to Uploader.
type UploaderFunc func(ctx context.Context, p *Payload) ([]byte, error)

func (f UploaderFunc) UploadFolder(ctx context.Context, p *Payload) ([]byte, error) {
	return f(ctx, p)
}

// Status is a folder's state within a round.
type Status int

const (
	Pending Status = iota
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is one folder's result. ErrorMessage is set only when Failed.
type Outcome struct {
	FolderName   string
	Files        int
	Status       Status
	ErrorMessage string
	Response     []byte
	Duration     time.Duration
}

// Round is the result of one Submit call.
type Round struct {
	ID           string
	Outcomes     []Outcome // registry insertion order
	SuccessCount int
	FailCount    int
	Duration     time.Duration
	RetainFailed bool
}

// FailedNames lists failed folders in submission order.
func (r *Round) FailedNames() []string {
	var names []string
	for _, o := range r.Outcomes {
		if o.Status == Failed {
			names = append(names, o.FolderName)
		}
	}
	return names
}

// Notification is the round summary for the status box.
func (r *Round) Notification() *notify.Notification {
	return notify.Summary(r.SuccessCount, r.FailCount, r.FailedNames())
}

// Remaining applies the round to the latest registry: succeeded folders are
// removed; failed ones stay queued when RetainFailed is set and are removed
// otherwise. Folders queued after the round started are untouched.
func (r *Round) Remaining(reg registry.Registry) registry.Registry {
	for _, o := range r.Outcomes {
		if o.Status == Succeeded || (o.Status == Failed && !r.RetainFailed) {
			reg = reg.Remove(o.FolderName)
		}
	}
	return reg
}

// ProgressReporter receives per-folder progress. Calls come from worker
// goroutines.
type ProgressReporter interface {
	FolderStarted(name string, files int, bytes int64)
	FolderFinished(name string, err error)
}

// Driver submits queued folders.
type Driver struct {
	Uploader     Uploader
	Workers      int
	RetainFailed bool
	Logger       *logging.Logger
	EventBus     *events.EventBus
	Progress     ProgressReporter
	// OnRoundComplete runs after every outcome is terminal. The CLI uses it
	// to re-arm its input so the same folder can be picked again.
	OnRoundComplete func(*Round)
}

// NewDriver returns a driver with default workers that retains failed folders.
func NewDriver(u Uploader, logger *logging.Logger) *Driver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Driver{
		Uploader:     u,
		Workers:      constants.DefaultUploadWorkers,
		RetainFailed: true,
		Logger:       logger,
	}
}

// Validate checks the queue before any upload is attempted.
func Validate(reg registry.Registry) error {
	if reg.Count() == 0 {
		return ErrNoFolders
	}
	for _, name := range reg.Names() {
		if !validation.ValidFolderName(name) {
			return ErrInvalidFolderNames
		}
	}
	return nil
}

// Submit validates reg and uploads every folder independently. A failing
// folder never stops the others. The returned error is non-nil only for
// validation failures, in which case the uploader is never called.
func (d *Driver) Submit(ctx context.Context, reg registry.Registry) (*Round, error) {
	if err := Validate(reg); err != nil {
		return nil, err
	}
	if d.Uploader == nil {
		return nil, fmt.Errorf("no uploader configured")
	}
	logger := d.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	folders := reg.Folders()
	round := &Round{
		ID:           uuid.NewString(),
		Outcomes:     make([]Outcome, len(folders)),
		RetainFailed: d.RetainFailed,
	}
	for i, f := range folders {
		round.Outcomes[i] = Outcome{FolderName: f.Name, Files: len(f.Files), Status: Pending}
	}

	logger.Info().Str("round", round.ID).Int("folders", len(folders)).Int("files", reg.TotalFileCount()).Msg("Starting upload round")
	start := time.Now()

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(max(d.Workers, 1))

	for i, f := range folders {
		g.Go(func() error {
			payload := BuildPayload(f)
			d.EventBus.PublishUpload(events.EventUploadStarted, round.ID, f.Name, len(f.Files), nil)
			if d.Progress != nil {
				d.Progress.FolderStarted(f.Name, len(f.Files), payload.TotalBytes())
			}

			began := time.Now()
			resp, err := d.invoke(ctx, payload)
			elapsed := time.Since(began)

			mu.Lock()
			o := &round.Outcomes[i]
			o.Duration = elapsed
			if err != nil {
				o.Status = Failed
				o.ErrorMessage = errorMessage(err)
				round.FailCount++
			} else {
				o.Status = Succeeded
				o.Response = resp
				round.SuccessCount++
			}
			mu.Unlock()

			if d.Progress != nil {
				d.Progress.FolderFinished(f.Name, err)
			}
			if err != nil {
				logger.Error().Err(err).Str("folder", f.Name).Dur("elapsed", elapsed).Msg("Folder upload failed")
				d.EventBus.PublishUpload(events.EventUploadFailed, round.ID, f.Name, len(f.Files), err)
			} else {
				logger.Info().Str("folder", f.Name).Int("files", len(f.Files)).Dur("elapsed", elapsed).Msg("Folder uploaded")
				d.EventBus.PublishUpload(events.EventUploadSucceeded, round.ID, f.Name, len(f.Files), nil)
			}
			return nil
		})
	}
	_ = g.Wait()

	round.Duration = time.Since(start)
	logger.Info().Str("round", round.ID).Int("succeeded", round.SuccessCount).Int("failed", round.FailCount).
		Dur("elapsed", round.Duration).Msg("Upload round complete")

	d.EventBus.Publish(&events.RoundCompleteEvent{
		BaseEvent:    events.BaseEvent{EventType: events.EventRoundComplete, Time: time.Now()},
		RoundID:      round.ID,
		SuccessCount: round.SuccessCount,
		FailCount:    round.FailCount,
		FailedNames:  round.FailedNames(),
		Duration:     round.Duration,
	})
	if d.OnRoundComplete != nil {
		d.OnRoundComplete(round)
	}
	return round, nil
}

// invoke calls the uploader and turns a panic into an error.
func (d *Driver) invoke(ctx context.Context, p *Payload) (resp []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			pe := &PanicError{Value: r}
			if d.Logger != nil {
				d.Logger.Error().Str("folder", p.FolderName).Str("panic", pe.String()).Msg("Uploader panicked")
			}
			resp, err = nil, pe
		}
	}()
	return d.Uploader.UploadFolder(ctx, p)
}
