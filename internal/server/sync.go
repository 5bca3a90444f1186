package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaki95/dj-metadata-sync/internal/adapter"
	"github.com/jaki95/dj-metadata-sync/internal/job"
	"github.com/jaki95/dj-metadata-sync/internal/library"
	"github.com/jaki95/dj-metadata-sync/internal/progress"
	"github.com/jaki95/dj-metadata-sync/internal/syncer"
)

// syncTimeout bounds a single sync job.
const syncTimeout = 2 * time.Hour

// runSync runs a sync job to completion and stores its outcome.
func (s *Server) runSync(ctx context.Context, jobID string, req job.Request, mode syncer.Mode, lib *library.Library) {
	logger := slog.With("jobId", jobID)

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	select {
	case s.running <- struct{}{}:
		defer func() { <-s.running }()
	case <-ctx.Done():
		s.jobManager.Finish(jobID, progress.Summary{}, ctx.Err())
		return
	}

	tracker := progress.NewProgressTracker()
	tracker.AddListener(func(e progress.Event) {
		s.jobManager.Record(jobID, e)
	})

	sc := syncer.New(s.backend, syncer.Options{
		Mode:               mode,
		Namespace:          s.cfg.Namespace,
		MaxConcurrentTasks: job.ValidateMaxConcurrentTasks(req.MaxConcurrentTasks, s.cfg.MaxConcurrentTasks),
	}, tracker)

	logger.Info("Starting sync", "command", req.Command, "adapter", req.Adapter, "paths", lib.Paths())

	var (
		summary progress.Summary
		err     error
	)
	if req.Command == "import" {
		summary, err = s.importFrom(ctx, sc, req.Adapter, lib)
	} else {
		summary, err = s.exportTo(ctx, sc, tracker, req.Adapter, lib)
	}

	switch {
	case ctx.Err() != nil:
		logger.Warn("Sync cancelled", "error", ctx.Err())
	case err != nil:
		logger.Error("Sync failed", "error", err)
	default:
		logger.Info("Sync finished", "updated", summary.Updated, "failed", summary.Failed)
	}
	s.jobManager.Finish(jobID, summary, err)
}

func (s *Server) importFrom(ctx context.Context, sc *syncer.Syncer, name string, lib *library.Library) (progress.Summary, error) {
	src, err := adapter.OpenSource(ctx, name, s.cfg)
	if err != nil {
		return progress.Summary{}, err
	}
	defer src.Close()

	return sc.Import(ctx, src, lib)
}

func (s *Server) exportTo(ctx context.Context, sc *syncer.Syncer, tracker *progress.ProgressTracker, name string, lib *library.Library) (progress.Summary, error) {
	sink, err := adapter.OpenSink(ctx, name, s.cfg)
	if err != nil {
		return progress.Summary{}, err
	}

	summary, err := sc.Export(ctx, sink, lib)
	if err != nil {
		sink.Close()
		return summary, err
	}
	tracker.UpdateProgress(progress.StageSaving, 100, "Saving library...")
	if err := sink.Close(); err != nil {
		return summary, fmt.Errorf("failed to save %s: %w", name, err)
	}
	return summary, nil
}
