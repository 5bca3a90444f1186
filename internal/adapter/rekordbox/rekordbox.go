// Package rekordbox reads and writes beatgrids and cue points through the
// Rekordbox XML library exchange format.
package rekordbox

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/jaki95/dj-metadata-sync/internal/audio"
	"github.com/jaki95/dj-metadata-sync/internal/beatgrid"
	"github.com/jaki95/dj-metadata-sync/internal/library"
	"github.com/jaki95/dj-metadata-sync/internal/marker"
	"github.com/jaki95/dj-metadata-sync/internal/trackinfo"
)

const (
	productName    = "dj-metadata-sync"
	productVersion = "1.0.0"
)

// Library is a Rekordbox XML document. Tracks share the document, so every
// method is safe for concurrent use.
type Library struct {
	mu     sync.Mutex
	path   string
	doc    *document
	dirty  bool
	prober audio.Prober
}

type Option func(*Library)

// WithProber sets the TotalTime of tracks added to the collection from
// their audio files.
func WithProber(p audio.Prober) Option {
	return func(l *Library) { l.prober = p }
}

// Open loads the document at path. A missing file starts an empty library
// that is created on Close.
func Open(path string, opts ...Option) (*Library, error) {
	if path == "" {
		return nil, errors.New("rekordbox XML path not specified")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Opening Rekordbox XML", "path", abs)
	lib := &Library{path: abs}
	for _, opt := range opts {
		opt(lib)
	}

	data, err := os.ReadFile(abs)
	if errors.Is(err, os.ErrNotExist) {
		lib.doc = &document{
			Version: "1.0.0",
			Product: product{Name: productName, Version: productVersion},
		}
		return lib, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rekordbox XML: %w", err)
	}

	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rekordbox XML %s: %w", abs, err)
	}
	lib.doc = &doc
	return lib, nil
}

// Close writes the document back when tracks were committed.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dirty {
		slog.Debug("Rekordbox XML unchanged", "path", l.path)
		return nil
	}

	l.doc.Collection.Entries = len(l.doc.Collection.Tracks)
	data, err := xml.MarshalIndent(l.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rekordbox XML: %w", err)
	}
	data = append([]byte(xml.Header), data...)

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write rekordbox XML: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("failed to write rekordbox XML: %w", err)
	}
	slog.Debug("Saved Rekordbox XML", "path", l.path, "tracks", len(l.doc.Collection.Tracks))
	l.dirty = false
	return nil
}

func (l *Library) find(location string) *track {
	for _, t := range l.doc.Collection.Tracks {
		path, err := locationPath(t.Location)
		if err == nil && path == location {
			return t
		}
	}
	return nil
}

// ReadTracks returns the metadata of every collection track inside lib.
func (l *Library) ReadTracks(_ context.Context, lib *library.Library) ([]*trackinfo.TrackInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var infos []*trackinfo.TrackInfo
	for _, t := range l.doc.Collection.Tracks {
		location, err := locationPath(t.Location)
		if err != nil {
			slog.Warn("Skipping track", "error", err)
			continue
		}
		if !lib.Contains(location) {
			continue
		}
		info := trackinfo.Detached(location)
		if err := load(t, info); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// OpenTrack returns the metadata Rekordbox holds for location. Changes reach
// the document through CommitTrack.
func (l *Library) OpenTrack(_ context.Context, location string) (*trackinfo.TrackInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info := trackinfo.Detached(location)
	if t := l.find(location); t != nil {
		if err := load(t, info); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// CommitTrack writes info into the document, adding the track when the
// collection does not have it yet.
func (l *Library) CommitTrack(ctx context.Context, info *trackinfo.TrackInfo) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.find(info.Location())
	if t == nil {
		t = &track{
			TrackID:  strconv.Itoa(l.nextID()),
			Location: locationURI(info.Location()),
		}
		if l.prober != nil {
			d, err := l.prober.Duration(ctx, info.Location())
			if err != nil {
				slog.Debug("Could not probe track length", "location", info.Location(), "error", err)
			} else {
				t.TotalTime = strconv.Itoa(int(math.Ceil(d)))
			}
		}
		l.doc.Collection.Tracks = append(l.doc.Collection.Tracks, t)
	}
	if err := save(t, info); err != nil {
		return fmt.Errorf("failed to write %s to rekordbox: %w", info.Location(), err)
	}
	l.dirty = true
	return nil
}

func (l *Library) nextID() int {
	next := 1
	for _, t := range l.doc.Collection.Tracks {
		if id, err := strconv.Atoi(t.TrackID); err == nil && id >= next {
			next = id + 1
		}
	}
	return next
}

// load maps a collection track onto info.
func load(t *track, info *trackinfo.TrackInfo) error {
	g, err := readBeatgrid(t)
	if err != nil {
		slog.Warn("Could not load beatgrid", "location", info.Location(), "error", err)
	} else if err := info.SetBeatgrid(g); err != nil {
		return err
	}

	var (
		cue     marker.Marker
		hotcues []marker.Marker
		memory  []marker.Marker
		loops   []marker.Marker
	)
	for _, m := range t.Marks {
		tm := m.marker()
		switch {
		case m.Type == markLoad:
			cue = tm
		case m.Num >= 0 && (m.Type == markCue || m.Type == markLoop):
			for len(hotcues) <= m.Num {
				hotcues = append(hotcues, nil)
			}
			hotcues[m.Num] = tm
		case m.Type == markLoop:
			loops = append(loops, tm)
		case m.Type == markCue:
			memory = append(memory, tm)
		}
	}

	if err := info.SetCuePoint(cue); err != nil {
		return err
	}
	if err := info.SetHotCues(hotcues); err != nil {
		return err
	}
	if err := info.SetMemoryCues(memory); err != nil {
		return err
	}
	return info.SetLoops(loops)
}

func (m mark) marker() marker.TimedMarker {
	tm := marker.TimedMarker{Position: float64(m.Start)}
	if m.End != nil && float64(*m.End) > float64(m.Start) {
		length := float64(*m.End) - float64(m.Start)
		tm.Length = &length
	}
	if m.Name != "" {
		name := m.Name
		tm.Name = &name
	}
	if m.Red != nil && m.Green != nil && m.Blue != nil {
		tm.Color = &marker.Color{R: uint8(*m.Red), G: uint8(*m.Green), B: uint8(*m.Blue)}
	}
	return tm
}

// readBeatgrid rebuilds a grid from the TEMPO entries. Each entry lasts until
// the next one; the last one until the end of the track.
func readBeatgrid(t *track) (*beatgrid.Beatgrid, error) {
	if len(t.Tempos) == 0 {
		return nil, nil
	}
	tempos := slices.Clone(t.Tempos)
	slices.SortStableFunc(tempos, func(a, b tempo) int {
		switch {
		case a.Inizio < b.Inizio:
			return -1
		case a.Inizio > b.Inizio:
			return 1
		}
		return 0
	})
	// Of entries sharing a start, the last one listed wins.
	deduped := tempos[:1]
	for _, tp := range tempos[1:] {
		if tp.Inizio == deduped[len(deduped)-1].Inizio {
			deduped[len(deduped)-1] = tp
			continue
		}
		deduped = append(deduped, tp)
	}
	tempos = deduped

	regions := make([]beatgrid.Region, len(tempos))
	for k, tp := range tempos {
		bpb, err := beatsPerBar(tp.Metro)
		if err != nil {
			return nil, err
		}
		length := t.totalTime() - float64(tp.Inizio)
		if k+1 < len(tempos) {
			length = float64(tempos[k+1].Inizio - tp.Inizio)
		} else if length <= 0 {
			// Unknown track length: keep a single bar.
			length = float64(bpb) * 60 / float64(tp.Bpm)
		}
		r, err := beatgrid.NewRegion(length, float64(tp.Bpm), bpb, 0)
		if err != nil {
			return nil, err
		}
		regions[k] = r
	}

	// Battito numbers the first beat of an entry within its bar. Fix each
	// region's downbeat shift in order, since later regions inherit the
	// downbeat position of earlier ones.
	for k, tp := range tempos {
		g, err := beatgrid.New(float64(tempos[0].Inizio), regions...)
		if err != nil {
			return nil, err
		}
		meta, ok := regionMeta(g, k)
		if !ok {
			break
		}
		bpb := regions[k].BPB
		want := mod(1-tp.Battito, bpb)
		regions[k].DBS = mod(meta.DBI-want, bpb)
	}
	return beatgrid.New(float64(tempos[0].Inizio), regions...)
}

func regionMeta(g *beatgrid.Beatgrid, k int) (beatgrid.RegionMeta, bool) {
	i := 0
	for meta := range g.Regions() {
		if i == k {
			return meta, true
		}
		i++
	}
	return beatgrid.RegionMeta{}, false
}

// save maps info onto a collection track. Channels info does not hold leave
// the matching marks alone.
func save(t *track, info *trackinfo.TrackInfo) error {
	g, err := info.Beatgrid()
	if err != nil {
		return err
	}
	if g != nil && g.NumRegions() > 0 {
		t.Tempos = t.Tempos[:0]
		for meta, r := range g.Regions() {
			t.Tempos = append(t.Tempos, tempo{
				Inizio:  decimal(meta.Start),
				Bpm:     decimal(r.BPM),
				Metro:   fmt.Sprintf("%d/4", r.BPB),
				Battito: mod(r.BPB-meta.DBI, r.BPB) + 1,
			})
		}
		if t.TotalTime == "" {
			t.TotalTime = strconv.Itoa(int(math.Ceil(g.End())))
		}
	}

	cue, err := info.CuePoint()
	if err != nil {
		return err
	}
	if cue != nil {
		if start, _, ok := marker.Span(cue, g); ok {
			t.dropMarks(func(m mark) bool { return m.Type == markLoad })
			t.Marks = append(t.Marks, newMark(cue, markLoad, -1, start, nil))
		} else {
			slog.Debug("Could not resolve main cue", "location", info.Location())
		}
	}

	loops, err := info.Loops()
	if err != nil {
		return err
	}
	if len(loops) > 0 && loops[0] != nil {
		if start, end, ok := marker.Span(loops[0], g); ok && end > start {
			t.dropMarks(func(m mark) bool { return m.Type == markLoop && m.Num < 0 })
			t.Marks = append(t.Marks, newMark(loops[0], markLoop, -1, start, &end))
		} else {
			slog.Debug("Could not resolve loop", "location", info.Location())
		}
	}

	memory, err := info.MemoryCues()
	if err != nil {
		return err
	}
	if len(memory) > 0 {
		t.dropMarks(func(m mark) bool { return m.Type == markCue && m.Num < 0 })
		for i, mc := range memory {
			if mc == nil {
				continue
			}
			start, _, ok := marker.Span(mc, g)
			if !ok {
				slog.Debug("Could not resolve memory cue", "location", info.Location(), "index", i)
				continue
			}
			t.Marks = append(t.Marks, newMark(mc, markCue, -1, start, nil))
		}
	}

	hotcues, err := info.HotCues()
	if err != nil {
		return err
	}
	for i, hc := range hotcues {
		if hc == nil {
			continue
		}
		start, end, ok := marker.Span(hc, g)
		if !ok {
			slog.Debug("Could not resolve hot cue", "location", info.Location(), "slot", i)
			continue
		}
		typ, endp := markCue, (*float64)(nil)
		if end > start {
			typ, endp = markLoop, &end
		}
		t.dropMarks(func(m mark) bool { return m.Num == i && (m.Type == markCue || m.Type == markLoop) })
		t.Marks = append(t.Marks, newMark(hc, typ, i, start, endp))
	}
	return nil
}

func (t *track) dropMarks(match func(mark) bool) {
	t.Marks = slices.DeleteFunc(t.Marks, match)
}

func newMark(m marker.Marker, typ, num int, start float64, end *float64) mark {
	pm := mark{Name: marker.NameOf(m), Type: typ, Start: decimal(start), Num: num}
	if end != nil {
		e := decimal(*end)
		pm.End = &e
	}
	if c, ok := marker.ColorOf(m); ok {
		r, g, b := int(c.R), int(c.G), int(c.B)
		pm.Red, pm.Green, pm.Blue = &r, &g, &b
	}
	return pm
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}
