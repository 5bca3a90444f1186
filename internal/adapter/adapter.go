// Package adapter connects DJ software libraries to track metadata.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/jaki95/dj-metadata-sync/config"
	"github.com/jaki95/dj-metadata-sync/internal/audio"
	"github.com/jaki95/dj-metadata-sync/internal/adapter/mixxx"
	"github.com/jaki95/dj-metadata-sync/internal/adapter/rekordbox"
	"github.com/jaki95/dj-metadata-sync/internal/library"
	"github.com/jaki95/dj-metadata-sync/internal/trackinfo"
)

const (
	Mixxx     = "mixxx"
	Rekordbox = "rekordbox"
)

var (
	ErrUnknownAdapter = errors.New("unknown adapter")
	ErrNotSupported   = errors.New("operation not supported by adapter")
)

// Source yields the metadata a DJ library holds for the tracks of a
// library.
type Source interface {
	io.Closer
	ReadTracks(ctx context.Context, lib *library.Library) ([]*trackinfo.TrackInfo, error)
}

// Sink accepts metadata for tracks. OpenTrack returns what the library holds
// now; CommitTrack stores the changed metadata. Writes may be buffered until
// Close.
type Sink interface {
	io.Closer
	OpenTrack(ctx context.Context, location string) (*trackinfo.TrackInfo, error)
	CommitTrack(ctx context.Context, info *trackinfo.TrackInfo) error
}

var (
	sources = []string{Mixxx, Rekordbox}
	sinks   = []string{Rekordbox}
)

// Sources lists the adapters that can be imported from.
func Sources() []string { return slices.Clone(sources) }

// Sinks lists the adapters that can be exported to.
func Sinks() []string { return slices.Clone(sinks) }

// OpenSource connects to the named adapter for reading.
func OpenSource(ctx context.Context, name string, cfg *config.Config) (Source, error) {
	switch name {
	case Mixxx:
		db, err := mixxx.Open(ctx, cfg.Mixxx.DBPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	case Rekordbox:
		rb, err := rekordbox.Open(cfg.Rekordbox.XMLPath)
		if err != nil {
			return nil, err
		}
		return rb, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAdapter, name)
}

// OpenSink connects to the named adapter for writing.
func OpenSink(_ context.Context, name string, cfg *config.Config) (Sink, error) {
	switch name {
	case Rekordbox:
		var opts []rekordbox.Option
		if cfg.Rekordbox.ProbeLengths {
			prober, err := audio.NewFFProbe(cfg.Rekordbox.FFProbePath)
			if err != nil {
				slog.Warn("ffprobe not available, track lengths will not be probed", "error", err)
			} else {
				opts = append(opts, rekordbox.WithProber(prober))
			}
		}
		rb, err := rekordbox.Open(cfg.Rekordbox.XMLPath, opts...)
		if err != nil {
			return nil, err
		}
		return rb, nil
	}
	if slices.Contains(sources, name) {
		return nil, fmt.Errorf("%w: %s cannot be exported to", ErrNotSupported, name)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAdapter, name)
}
