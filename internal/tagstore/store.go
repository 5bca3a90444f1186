// Package tagstore keeps metadata trees inside a track's own tag storage.
// A Store is a namespaced key/value view over the frames of a single track;
// a Backend decides where those frames physically live.
package tagstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jaki95/dj-metadata-sync/internal/dictify"
)

// DefaultNamespace prefixes every frame written by this tool.
const DefaultNamespace = "UDLF:"

var ErrCorruptValue = errors.New("corrupt tag value")

// Store is the key/value view of one track. Values are trees encoded as
// JSON text. A Store is not safe for concurrent use.
type Store struct {
	backend  Backend
	location string
	prefix   string
	frames   Frames // keys without prefix
	dirty    bool
}

// Open loads the namespaced frames of location.
func Open(ctx context.Context, backend Backend, location, prefix string) (*Store, error) {
	raw, err := backend.Load(ctx, location, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags of %s: %w", location, err)
	}
	frames := make(Frames, len(raw))
	for desc, text := range raw {
		if key, ok := strings.CutPrefix(desc, prefix); ok {
			frames[key] = text
		}
	}
	return &Store{backend: backend, location: location, prefix: prefix, frames: frames}, nil
}

// Location returns the track the store belongs to.
func (s *Store) Location() string { return s.location }

// Get decodes the value stored under key.
func (s *Store) Get(key string) (dictify.Value, bool, error) {
	text, ok := s.frames[key]
	if !ok {
		return nil, false, nil
	}
	v, err := dictify.UnmarshalJSON([]byte(text))
	if err != nil {
		return nil, true, fmt.Errorf("%w: %s%s: %v", ErrCorruptValue, s.prefix, key, err)
	}
	return v, true, nil
}

// Set stores v under key.
func (s *Store) Set(key string, v dictify.Value) error {
	data, err := dictify.MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s%s: %w", s.prefix, key, err)
	}
	if old, ok := s.frames[key]; ok && old == string(data) {
		return nil
	}
	s.frames[key] = string(data)
	s.dirty = true
	return nil
}

// Delete removes key.
func (s *Store) Delete(key string) {
	if _, ok := s.frames[key]; ok {
		delete(s.frames, key)
		s.dirty = true
	}
}

// Exists reports whether key is present.
func (s *Store) Exists(key string) bool {
	_, ok := s.frames[key]
	return ok
}

// Keys returns the present keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.frames))
	for k := range s.frames {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes every key.
func (s *Store) Clear() {
	if len(s.frames) > 0 {
		s.frames = Frames{}
		s.dirty = true
	}
}

// Dirty reports whether the store differs from what was loaded or last saved.
func (s *Store) Dirty() bool { return s.dirty }

// Save writes the store back if it changed.
func (s *Store) Save(ctx context.Context) error {
	if !s.dirty {
		slog.Debug("Tags unchanged, skipping write", "location", s.location)
		return nil
	}
	raw := make(Frames, len(s.frames))
	for key, text := range s.frames {
		raw[s.prefix+key] = text
	}
	if err := s.backend.Save(ctx, s.location, s.prefix, raw); err != nil {
		return fmt.Errorf("failed to save tags of %s: %w", s.location, err)
	}
	s.dirty = false
	slog.Debug("Saved tags", "location", s.location, "keys", len(raw))
	return nil
}
