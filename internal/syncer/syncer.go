// Package syncer moves track metadata between DJ libraries and the tag
// storage of the tracks themselves.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/jaki95/dj-metadata-sync/internal/adapter"
	"github.com/jaki95/dj-metadata-sync/internal/library"
	"github.com/jaki95/dj-metadata-sync/internal/progress"
	"github.com/jaki95/dj-metadata-sync/internal/tagstore"
	"github.com/jaki95/dj-metadata-sync/internal/trackinfo"
)

// Mode decides what happens to metadata the target already holds.
type Mode string

const (
	// Never keeps existing values and only fills in missing ones.
	Never Mode = "never"
	// Replace overwrites existing values with the source's.
	Replace Mode = "replace"
	// Clear drops everything the target holds before copying.
	Clear Mode = "clear"
)

var ErrInvalidMode = errors.New("invalid overwrite mode")

// ParseMode parses an overwrite mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Never, Replace, Clear:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (want never, replace or clear)", ErrInvalidMode, s)
}

// Merge copies source into target according to mode and reports whether
// target changed.
func Merge(target, source *trackinfo.TrackInfo, mode Mode) (bool, error) {
	reference, err := target.Clone()
	if err != nil {
		return false, err
	}
	if mode == Clear {
		target.Clear()
	}
	if err := target.Assign(source, mode == Replace); err != nil {
		return false, err
	}
	return !target.Equal(reference), nil
}

type Options struct {
	Mode               Mode
	Namespace          string
	MaxConcurrentTasks int
}

type Syncer struct {
	backend tagstore.Backend
	opts    Options
	tracker *progress.ProgressTracker
}

// New returns a Syncer that reads and writes track tags through backend.
// tracker may be nil.
func New(backend tagstore.Backend, opts Options, tracker *progress.ProgressTracker) *Syncer {
	if opts.Mode == "" {
		opts.Mode = Never
	}
	if opts.Namespace == "" {
		opts.Namespace = tagstore.DefaultNamespace
	}
	if opts.MaxConcurrentTasks <= 0 {
		opts.MaxConcurrentTasks = 1
	}
	if tracker == nil {
		tracker = progress.NewProgressTracker()
	}
	return &Syncer{backend: backend, opts: opts, tracker: tracker}
}

// Import copies what src holds for the tracks of lib into the tracks' tags.
// Per-track failures are logged and counted; only failing to read src is
// returned.
func (s *Syncer) Import(ctx context.Context, src adapter.Source, lib *library.Library) (progress.Summary, error) {
	logger := slog.With("run", uuid.NewString(), "command", "import", "mode", s.opts.Mode)

	s.tracker.UpdateProgress(progress.StageReading, 0, "Reading tracks...")
	infos, err := src.ReadTracks(ctx, lib)
	if err != nil {
		s.tracker.SetError(err)
		return s.tracker.Summary(), fmt.Errorf("failed to read tracks: %w", err)
	}
	logger.Debug("Read tracks from adapter", "count", len(infos))

	locations := make([]string, len(infos))
	for i, info := range infos {
		locations[i] = info.Location()
	}

	err = s.run(ctx, logger, locations, func(ctx context.Context, i int) (progress.Outcome, error) {
		return s.importTrack(ctx, logger, infos[i])
	})
	return s.finish(logger, err)
}

func (s *Syncer) importTrack(ctx context.Context, logger *slog.Logger, info *trackinfo.TrackInfo) (progress.Outcome, error) {
	location := info.Location()
	if _, err := os.Stat(location); errors.Is(err, os.ErrNotExist) {
		logger.Warn("File not found", "location", location)
		return progress.OutcomeSkipped, nil
	}

	target, err := trackinfo.Open(ctx, s.backend, location, s.opts.Namespace)
	if err != nil {
		return progress.OutcomeFailed, err
	}
	changed, err := Merge(target, info, s.opts.Mode)
	if err != nil {
		return progress.OutcomeFailed, err
	}
	if !changed {
		logger.Debug("No change", "location", location)
		return progress.OutcomeUnchanged, nil
	}
	if err := target.Save(ctx); err != nil {
		return progress.OutcomeFailed, err
	}
	logger.Info("Updated", "location", location)
	return progress.OutcomeUpdated, nil
}

// Export copies the tags of every file of lib into sink. The caller closes
// sink to flush buffered writes.
func (s *Syncer) Export(ctx context.Context, sink adapter.Sink, lib *library.Library) (progress.Summary, error) {
	logger := slog.With("run", uuid.NewString(), "command", "export", "mode", s.opts.Mode)

	s.tracker.UpdateProgress(progress.StageReading, 0, "Scanning library...")
	files, err := lib.Files(ctx)
	if err != nil {
		s.tracker.SetError(err)
		return s.tracker.Summary(), fmt.Errorf("failed to scan library: %w", err)
	}
	logger.Debug("Scanned library", "count", len(files))

	err = s.run(ctx, logger, files, func(ctx context.Context, i int) (progress.Outcome, error) {
		return s.exportTrack(ctx, logger, sink, files[i])
	})
	return s.finish(logger, err)
}

func (s *Syncer) exportTrack(ctx context.Context, logger *slog.Logger, sink adapter.Sink, location string) (progress.Outcome, error) {
	source, err := trackinfo.Open(ctx, s.backend, location, s.opts.Namespace)
	if err != nil {
		return progress.OutcomeFailed, err
	}
	target, err := sink.OpenTrack(ctx, location)
	if err != nil {
		return progress.OutcomeFailed, err
	}
	changed, err := Merge(target, source, s.opts.Mode)
	if err != nil {
		return progress.OutcomeFailed, err
	}
	if !changed {
		logger.Debug("No change", "location", location)
		return progress.OutcomeUnchanged, nil
	}
	if err := sink.CommitTrack(ctx, target); err != nil {
		return progress.OutcomeFailed, err
	}
	logger.Info("Updated", "location", location)
	return progress.OutcomeUpdated, nil
}

// run processes every location on a bounded pool of workers.
func (s *Syncer) run(ctx context.Context, logger *slog.Logger, locations []string, process func(context.Context, int) (progress.Outcome, error)) error {
	s.tracker.Start(len(locations))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.opts.MaxConcurrentTasks)

	for i, location := range locations {
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-semaphore }()

			outcome, err := process(ctx, i)
			switch {
			case errors.Is(err, tagstore.ErrUnknownFormat):
				logger.Error("Unknown file format", "location", location)
				outcome = progress.OutcomeSkipped
			case err != nil:
				logger.Error("Failed to sync track", "location", location, "error", err)
			}
			s.tracker.TrackDone(location, outcome)
		}()
	}

	wg.Wait()
	return ctx.Err()
}

func (s *Syncer) finish(logger *slog.Logger, err error) (progress.Summary, error) {
	summary := s.tracker.Summary()
	if err != nil {
		s.tracker.SetError(err)
		return summary, err
	}
	s.tracker.UpdateProgress(progress.StageComplete, 100, "Done")
	logger.Info("Sync complete",
		"total", summary.Total,
		"updated", summary.Updated,
		"unchanged", summary.Unchanged,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}
