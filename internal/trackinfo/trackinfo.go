// Package trackinfo exposes the beatgrid and marker channels of a track on
// top of its tag store.
package trackinfo

import (
	"context"
	"fmt"

	"github.com/jaki95/dj-metadata-sync/internal/beatgrid"
	"github.com/jaki95/dj-metadata-sync/internal/dictify"
	"github.com/jaki95/dj-metadata-sync/internal/marker"
	"github.com/jaki95/dj-metadata-sync/internal/tagstore"
)

// Channel names a marker collection of a track.
type Channel string

const (
	Cue    Channel = "cue"
	HotCue Channel = "hotcue"
	Loop   Channel = "loop"
	Memory Channel = "memory"
	Phrase Channel = "phrase"
)

// Channels lists every marker channel.
var Channels = []Channel{Cue, HotCue, Loop, Memory, Phrase}

const beatgridKey = "beatgrid"

func markersKey(ch Channel) string {
	return "markers/" + string(ch)
}

// TrackInfo is the metadata of one track.
type TrackInfo struct {
	store *tagstore.Store
}

// New wraps an open tag store.
func New(store *tagstore.Store) *TrackInfo {
	return &TrackInfo{store: store}
}

// Open loads the metadata of location from backend.
func Open(ctx context.Context, backend tagstore.Backend, location, namespace string) (*TrackInfo, error) {
	store, err := tagstore.Open(ctx, backend, location, namespace)
	if err != nil {
		return nil, err
	}
	return New(store), nil
}

// Detached returns empty metadata for location that lives only in memory.
// Adapters use it to hand over what they read from a DJ library.
func Detached(location string) *TrackInfo {
	info, err := Open(context.Background(), tagstore.NewMemoryBackend(), location, tagstore.DefaultNamespace)
	if err != nil {
		// The memory backend never fails to load.
		panic(err)
	}
	return info
}

// Location returns the track's file path.
func (t *TrackInfo) Location() string { return t.store.Location() }

// Beatgrid returns the stored grid, or nil when there is none.
func (t *TrackInfo) Beatgrid() (*beatgrid.Beatgrid, error) {
	v, ok, err := t.store.Get(beatgridKey)
	if err != nil || !ok {
		return nil, err
	}
	g, err := beatgrid.Type.Decode(v)
	if err != nil {
		return nil, fmt.Errorf("failed to decode beatgrid of %s: %w", t.Location(), err)
	}
	return g, nil
}

// SetBeatgrid stores g; nil removes the grid.
func (t *TrackInfo) SetBeatgrid(g *beatgrid.Beatgrid) error {
	if g == nil {
		t.store.Delete(beatgridKey)
		return nil
	}
	return t.set(beatgridKey, g)
}

// Markers returns the markers of ch, or nil when the channel is absent.
// Entries of the returned list may be nil.
func (t *TrackInfo) Markers(ch Channel) ([]marker.Marker, error) {
	v, ok, err := t.store.Get(markersKey(ch))
	if err != nil || !ok {
		return nil, err
	}
	if m, ok := v.(*dictify.Map); ok {
		// One-element lists read back from null-separated ID3 frames.
		v = []dictify.Value{m}
	}
	markers, err := marker.ListType.Decode(v)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s markers of %s: %w", ch, t.Location(), err)
	}
	return markers, nil
}

// SetMarkers stores the markers of ch. An empty list removes the channel.
func (t *TrackInfo) SetMarkers(ch Channel, markers []marker.Marker) error {
	if len(markers) == 0 {
		t.store.Delete(markersKey(ch))
		return nil
	}
	return t.set(markersKey(ch), markers)
}

func (t *TrackInfo) set(key string, v any) error {
	tree, err := dictify.Dictify(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s of %s: %w", key, t.Location(), err)
	}
	return t.store.Set(key, tree)
}

// CuePoint returns the main cue, or nil.
func (t *TrackInfo) CuePoint() (marker.Marker, error) {
	markers, err := t.Markers(Cue)
	if err != nil || len(markers) == 0 {
		return nil, err
	}
	return markers[0], nil
}

// SetCuePoint stores the main cue; nil removes it.
func (t *TrackInfo) SetCuePoint(m marker.Marker) error {
	if m == nil {
		return t.SetMarkers(Cue, nil)
	}
	return t.SetMarkers(Cue, []marker.Marker{m})
}

// HotCues returns the hot cues indexed by slot; empty slots are nil.
func (t *TrackInfo) HotCues() ([]marker.Marker, error) { return t.Markers(HotCue) }

func (t *TrackInfo) SetHotCues(markers []marker.Marker) error {
	// Trailing holes carry no slot information.
	for len(markers) > 0 && markers[len(markers)-1] == nil {
		markers = markers[:len(markers)-1]
	}
	return t.SetMarkers(HotCue, markers)
}

func (t *TrackInfo) MemoryCues() ([]marker.Marker, error) { return t.Markers(Memory) }

func (t *TrackInfo) SetMemoryCues(markers []marker.Marker) error {
	return t.SetMarkers(Memory, markers)
}

func (t *TrackInfo) Loops() ([]marker.Marker, error) { return t.Markers(Loop) }

func (t *TrackInfo) SetLoops(markers []marker.Marker) error {
	return t.SetMarkers(Loop, markers)
}

func (t *TrackInfo) Phrases() ([]marker.Marker, error) { return t.Markers(Phrase) }

func (t *TrackInfo) SetPhrases(markers []marker.Marker) error {
	return t.SetMarkers(Phrase, markers)
}

// Keys returns the stored keys.
func (t *TrackInfo) Keys() []string { return t.store.Keys() }

// Tree returns every stored value keyed by its key.
func (t *TrackInfo) Tree() (*dictify.Map, error) {
	out := dictify.NewMap()
	for _, key := range t.store.Keys() {
		v, _, err := t.store.Get(key)
		if err != nil {
			return nil, err
		}
		out.Set(key, v)
	}
	return out, nil
}

// Assign copies the values of other into t. Keys already present in t are
// only replaced when overwrite is set.
func (t *TrackInfo) Assign(other *TrackInfo, overwrite bool) error {
	for _, key := range other.store.Keys() {
		if !overwrite && t.store.Exists(key) {
			continue
		}
		v, _, err := other.store.Get(key)
		if err != nil {
			return err
		}
		if err := t.store.Set(key, v); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every value.
func (t *TrackInfo) Clear() { t.store.Clear() }

// Equal reports whether both tracks hold the same values.
func (t *TrackInfo) Equal(other *TrackInfo) bool {
	a, err := t.Tree()
	if err != nil {
		return false
	}
	b, err := other.Tree()
	if err != nil {
		return false
	}
	return dictify.Equal(a, b)
}

// Clone returns a detached copy of t.
func (t *TrackInfo) Clone() (*TrackInfo, error) {
	c := Detached(t.Location())
	if err := c.Assign(t, true); err != nil {
		return nil, err
	}
	return c, nil
}

// Dirty reports whether there are unsaved changes.
func (t *TrackInfo) Dirty() bool { return t.store.Dirty() }

// Save writes unsaved changes to the tag store.
func (t *TrackInfo) Save(ctx context.Context) error { return t.store.Save(ctx) }
