// Package mixxx reads beatgrids and cue points from a Mixxx library
// database.
package mixxx

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/jaki95/dj-metadata-sync/internal/beatgrid"
	"github.com/jaki95/dj-metadata-sync/internal/library"
	"github.com/jaki95/dj-metadata-sync/internal/marker"
	"github.com/jaki95/dj-metadata-sync/internal/trackinfo"
)

// Cue types of the cues table. Mixxx knows more; these are the ones carried
// over.
const (
	cueHot  = 1
	cueMain = 2
	cueLoop = 4
)

// Library is an open Mixxx database.
type Library struct {
	db   *sql.DB
	path string
}

// Open opens the database at path read-only.
func Open(ctx context.Context, path string) (*Library, error) {
	slog.Debug("Opening Mixxx database", "path", path)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open mixxx database: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open mixxx database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open mixxx database %s: %w", path, err)
	}
	return &Library{db: db, path: path}, nil
}

func (l *Library) Close() error {
	slog.Debug("Closing Mixxx database", "path", l.path)
	return l.db.Close()
}

type track struct {
	id          int64
	location    string
	beats       []byte
	beatsFormat sql.NullString
	sampleRate  sql.NullInt64
	channels    sql.NullInt64
	duration    sql.NullFloat64
}

// seconds converts interleaved sample positions to seconds.
func (t track) seconds(samples float64) float64 {
	channels := t.channels.Int64
	if channels <= 0 {
		channels = 2
	}
	return samples / float64(channels*t.sampleRate.Int64)
}

// ReadTracks returns the metadata of every track of lib that Mixxx knows.
func (l *Library) ReadTracks(ctx context.Context, lib *library.Library) ([]*trackinfo.TrackInfo, error) {
	paths := lib.Paths()
	if len(paths) == 0 {
		return nil, nil
	}

	query := `SELECT library.id, track_locations.location, library.beats, library.beats_version,
		library.samplerate, library.channels, library.duration
		FROM library INNER JOIN track_locations ON library.location = track_locations.id
		WHERE `
	var conds []string
	var args []any
	for _, p := range paths {
		conds = append(conds, `track_locations.location LIKE ? ESCAPE '\'`)
		args = append(args, likePrefix(p))
	}
	query += strings.Join(conds, " OR ") + " ORDER BY track_locations.location"

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mixxx tracks: %w", err)
	}
	var tracks []track
	for rows.Next() {
		var t track
		if err := rows.Scan(&t.id, &t.location, &t.beats, &t.beatsFormat, &t.sampleRate, &t.channels, &t.duration); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan mixxx track: %w", err)
		}
		if lib.Contains(t.location) {
			tracks = append(tracks, t)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mixxx tracks: %w", err)
	}

	infos := make([]*trackinfo.TrackInfo, 0, len(tracks))
	for _, t := range tracks {
		info, err := l.trackInfo(ctx, t)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func likePrefix(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(p) + "%"
}

func (l *Library) trackInfo(ctx context.Context, t track) (*trackinfo.TrackInfo, error) {
	info := trackinfo.Detached(t.location)

	if t.sampleRate.Int64 <= 0 {
		slog.Warn("Track has no sample rate; skipping markers", "location", t.location)
		return info, nil
	}

	switch {
	case t.beats == nil:
	case t.beatsFormat.String == beatGridV2:
		g, err := t.beatgrid()
		if err != nil {
			slog.Warn("Could not load beatgrid", "location", t.location, "error", err)
			break
		}
		if err := info.SetBeatgrid(g); err != nil {
			return nil, err
		}
	default:
		slog.Warn("Unknown beatgrid type; not loading", "location", t.location, "type", t.beatsFormat.String)
	}

	cues, err := l.readCues(ctx, t, cueMain)
	if err != nil {
		return nil, err
	}
	if len(cues) > 1 {
		slog.Warn("Found more than one main cue", "location", t.location)
	}
	if len(cues) > 0 {
		if err := info.SetCuePoint(cues[0].marker); err != nil {
			return nil, err
		}
	}

	loops, err := l.readCues(ctx, t, cueLoop)
	if err != nil {
		return nil, err
	}
	if len(loops) > 1 {
		slog.Warn("Found more than one main loop", "location", t.location)
	}
	if len(loops) > 0 {
		if err := info.SetLoops([]marker.Marker{loops[0].marker}); err != nil {
			return nil, err
		}
	}

	hot, err := l.readCues(ctx, t, cueHot)
	if err != nil {
		return nil, err
	}
	var hotcues []marker.Marker
	for _, c := range hot {
		if c.slot < 0 {
			continue
		}
		for len(hotcues) <= c.slot {
			hotcues = append(hotcues, nil)
		}
		hotcues[c.slot] = c.marker
	}
	if err := info.SetHotCues(hotcues); err != nil {
		return nil, err
	}

	return info, nil
}

func (t track) beatgrid() (*beatgrid.Beatgrid, error) {
	bg, err := decodeBeatGrid(t.beats)
	if err != nil {
		return nil, err
	}
	start := float64(bg.FirstFrame) / float64(t.sampleRate.Int64)
	if start < 0 {
		start = 0
	}
	region, err := beatgrid.NewRegion(t.duration.Float64-start, bg.BPM, beatgrid.DefaultBPB, 0)
	if err != nil {
		return nil, err
	}
	return beatgrid.New(start, region)
}

type cue struct {
	slot   int
	marker marker.Marker
}

func (l *Library) readCues(ctx context.Context, t track, cueType int) ([]cue, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT hotcue, position, length, label, color FROM cues WHERE type = ? AND track_id = ? ORDER BY id`,
		cueType, t.id)
	if err != nil {
		return nil, fmt.Errorf("failed to query cues of %s: %w", t.location, err)
	}
	defer rows.Close()

	var cues []cue
	for rows.Next() {
		var (
			slot     sql.NullInt64
			position float64
			length   sql.NullFloat64
			label    sql.NullString
			color    sql.NullInt64
		)
		if err := rows.Scan(&slot, &position, &length, &label, &color); err != nil {
			return nil, fmt.Errorf("failed to scan cue of %s: %w", t.location, err)
		}

		m := marker.TimedMarker{Position: t.seconds(position)}
		if cueType == cueLoop && length.Valid && length.Float64 > 0 {
			n := t.seconds(length.Float64)
			m.Length = &n
		}
		if label.String != "" {
			name := label.String
			m.Name = &name
		}
		if color.Valid && color.Int64 >= 0 {
			c := marker.FromRGB(uint32(color.Int64))
			m.Color = &c
		}

		s := -1
		if slot.Valid {
			s = int(slot.Int64)
		}
		cues = append(cues, cue{slot: s, marker: m})
	}
	return cues, rows.Err()
}
