package tagstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryBackend keeps frames in memory. It is used for dry runs and tests.
type MemoryBackend struct {
	mu     sync.RWMutex
	tracks map[string]Frames
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tracks: make(map[string]Frames)}
}

func (b *MemoryBackend) Load(_ context.Context, location, prefix string) (Frames, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := Frames{}
	for desc, text := range b.tracks[location] {
		if strings.HasPrefix(desc, prefix) {
			out[desc] = text
		}
	}
	return out, nil
}

func (b *MemoryBackend) Save(_ context.Context, location, prefix string, frames Frames) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.tracks[location].Clone()
	mergeFrames(kept, prefix, frames)
	if len(kept) == 0 {
		delete(b.tracks, location)
		return nil
	}
	b.tracks[location] = kept
	return nil
}

func (b *MemoryBackend) List(context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.tracks))
	for location := range b.tracks {
		out = append(out, location)
	}
	sort.Strings(out)
	return out, nil
}
