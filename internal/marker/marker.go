// Package marker holds the position-bearing annotations of a track: cue
// points, loops and phrases. A marker is anchored either to absolute time or
// to a beat of the track's beatgrid.
package marker

import (
	"math"

	"github.com/jaki95/dj-metadata-sync/internal/beatgrid"
	"github.com/jaki95/dj-metadata-sync/internal/dictify"
)

// Marker is implemented by TimedMarker and BeatgridMarker only.
type Marker interface {
	// Absolute reports whether the position is independent of any grid.
	Absolute() bool
	// Resolve returns the marker's position in seconds, or false when it
	// cannot be placed on bg.
	Resolve(bg *beatgrid.Beatgrid) (float64, bool)
	Dictify() (dictify.Value, error)

	marker()
}

// TimedMarker is anchored to a position in seconds. Length is set for
// region-style markers such as loops.
type TimedMarker struct {
	Position float64
	Length   *float64
	Name     *string
	Color    *Color
}

func (TimedMarker) marker()        {}
func (TimedMarker) Absolute() bool { return true }

func (m TimedMarker) Resolve(*beatgrid.Beatgrid) (float64, bool) {
	return m.Position, true
}

// BeatgridMarker is anchored to a (possibly fractional) beat index. Beats is
// set for region-style markers.
type BeatgridMarker struct {
	Beat  float64
	Beats *int
	Name  *string
	Color *Color
}

func (BeatgridMarker) marker()        {}
func (BeatgridMarker) Absolute() bool { return false }

// Resolve places the beat on bg. A beat outside the grid is not an error.
func (m BeatgridMarker) Resolve(bg *beatgrid.Beatgrid) (float64, bool) {
	if bg == nil {
		return 0, false
	}
	return bg.BeatPos(m.Beat)
}

// Span resolves the start and end of m. Point markers end where they start.
func Span(m Marker, bg *beatgrid.Beatgrid) (start, end float64, ok bool) {
	start, ok = m.Resolve(bg)
	if !ok {
		return 0, 0, false
	}
	switch m := m.(type) {
	case TimedMarker:
		if m.Length != nil {
			return start, start + *m.Length, true
		}
	case BeatgridMarker:
		if m.Beats != nil {
			end, ok = bg.BeatPos(m.Beat + float64(*m.Beats))
			if !ok {
				return 0, 0, false
			}
			return start, end, true
		}
	}
	return start, start, true
}

// NameOf returns the marker's name, or "" when unset.
func NameOf(m Marker) string {
	var name *string
	switch m := m.(type) {
	case TimedMarker:
		name = m.Name
	case BeatgridMarker:
		name = m.Name
	}
	if name == nil {
		return ""
	}
	return *name
}

// ColorOf returns the marker's colour.
func ColorOf(m Marker) (Color, bool) {
	var c *Color
	switch m := m.(type) {
	case TimedMarker:
		c = m.Color
	case BeatgridMarker:
		c = m.Color
	}
	if c == nil {
		return Color{}, false
	}
	return *c, true
}

const (
	timedTag    = "timed"
	beatgridTag = "beatgrid"
)

var timedShape = dictify.NewStruct("timed",
	dictify.Attr("position", dictify.Number, func(m *TimedMarker) *float64 { return &m.Position }),
	dictify.Attr("length", dictify.Optional(dictify.Number), func(m *TimedMarker) **float64 { return &m.Length }),
	dictify.Attr("name", dictify.Optional(dictify.String), func(m *TimedMarker) **string { return &m.Name }),
	dictify.Attr("color", dictify.Optional(ColorType), func(m *TimedMarker) **Color { return &m.Color }),
)

var beatgridShape = dictify.NewStruct("beatgrid",
	dictify.AttrEncoded("beat", dictify.Number, func(m *BeatgridMarker) *float64 { return &m.Beat }, encodeBeat),
	dictify.Attr("beats", dictify.Optional(dictify.Int), func(m *BeatgridMarker) **int { return &m.Beats }),
	dictify.Attr("name", dictify.Optional(dictify.String), func(m *BeatgridMarker) **string { return &m.Name }),
	dictify.Attr("color", dictify.Optional(ColorType), func(m *BeatgridMarker) **Color { return &m.Color }),
)

// encodeBeat keeps whole beats as integers.
func encodeBeat(beat float64) (dictify.Value, error) {
	if beat == math.Trunc(beat) && math.Abs(beat) < 1<<53 {
		return int64(beat), nil
	}
	return beat, nil
}

// Dictify encodes the marker as {type: "timed", position, ...}.
func (m TimedMarker) Dictify() (dictify.Value, error) {
	fields, err := timedShape.Encode(&m)
	if err != nil {
		return nil, err
	}
	return tagged(timedTag, fields), nil
}

// Dictify encodes the marker as {type: "beatgrid", beat, ...}.
func (m BeatgridMarker) Dictify() (dictify.Value, error) {
	fields, err := beatgridShape.Encode(&m)
	if err != nil {
		return nil, err
	}
	return tagged(beatgridTag, fields), nil
}

func tagged(tag string, fields *dictify.Map) *dictify.Map {
	out := dictify.NewMap()
	out.Set("type", tag)
	for _, k := range fields.Keys() {
		v, _ := fields.Get(k)
		out.Set(k, v)
	}
	return out
}

// Type decodes either marker variant, selected by the "type" key.
var Type = dictify.Variants("type", map[string]dictify.Type[Marker]{
	timedTag: dictify.Convert(dictify.Type[TimedMarker](timedShape), func(m TimedMarker) (Marker, error) {
		return m, nil
	}),
	beatgridTag: dictify.Convert(dictify.Type[BeatgridMarker](beatgridShape), func(m BeatgridMarker) (Marker, error) {
		return m, nil
	}),
})

// ListType decodes a marker channel: a list whose entries may be null.
var ListType = dictify.List(dictify.Nullable(Type))
