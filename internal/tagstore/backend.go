package tagstore

import (
	"context"
	"errors"
	"maps"
)

var (
	// ErrUnknownFormat is returned for files whose tag container is not supported.
	ErrUnknownFormat = errors.New("unknown file format")
	// ErrNotSupported is returned by backends that cannot perform an operation.
	ErrNotSupported = errors.New("operation not supported")
)

// Frames are the raw text frames of one track keyed by their full
// description, namespace prefix included.
type Frames map[string]string

// Clone returns a copy of f.
func (f Frames) Clone() Frames {
	out := make(Frames, len(f))
	maps.Copy(out, f)
	return out
}

// Backend loads and saves the frames of a track.
type Backend interface {
	// Load returns the frames of location whose description starts with
	// prefix. A track without frames yields an empty map.
	Load(ctx context.Context, location, prefix string) (Frames, error)

	// Save replaces every frame of location starting with prefix by frames.
	// Frames outside the prefix are left untouched.
	Save(ctx context.Context, location, prefix string, frames Frames) error
}

// Lister is implemented by backends that can enumerate the tracks they hold.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}
