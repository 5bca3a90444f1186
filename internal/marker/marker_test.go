package marker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/dj-metadata-sync/internal/beatgrid"
	"github.com/jaki95/dj-metadata-sync/internal/dictify"
)

func ptr[T any](v T) *T { return &v }

func grid(t *testing.T, length float64) *beatgrid.Beatgrid {
	t.Helper()
	r, err := beatgrid.NewRegion(length, 120, beatgrid.DefaultBPB, 0)
	require.NoError(t, err)
	g, err := beatgrid.New(1.0, r)
	require.NoError(t, err)
	return g
}

func encode(t *testing.T, v any) dictify.Value {
	t.Helper()
	out, err := dictify.Dictify(v)
	require.NoError(t, err)
	return out
}

func TestResolve(t *testing.T) {
	g := grid(t, 10)

	tests := []struct {
		name     string
		marker   Marker
		grid     *beatgrid.Beatgrid
		want     float64
		wantOK   bool
		absolute bool
	}{
		{name: "timed ignores grid", marker: TimedMarker{Position: 3.5}, grid: nil, want: 3.5, wantOK: true, absolute: true},
		{name: "timed with grid", marker: TimedMarker{Position: 3.5}, grid: g, want: 3.5, wantOK: true, absolute: true},
		{name: "beat on grid", marker: BeatgridMarker{Beat: 4}, grid: g, want: 3.0, wantOK: true},
		{name: "fractional beat", marker: BeatgridMarker{Beat: 0.5}, grid: g, want: 1.25, wantOK: true},
		{name: "beat without grid", marker: BeatgridMarker{Beat: 4}, grid: nil},
		{name: "beat past grid", marker: BeatgridMarker{Beat: 21}, grid: g},
		{name: "negative beat", marker: BeatgridMarker{Beat: -1}, grid: g},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.absolute, tt.marker.Absolute())
			got, ok := tt.marker.Resolve(tt.grid)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestResolveAfterGridShrinks(t *testing.T) {
	m := BeatgridMarker{Beat: 16}

	pos, ok := m.Resolve(grid(t, 10))
	require.True(t, ok)
	assert.InDelta(t, 9.0, pos, 1e-9)

	_, ok = m.Resolve(grid(t, 4))
	assert.False(t, ok)
}

func TestSpan(t *testing.T) {
	g := grid(t, 10)

	tests := []struct {
		name      string
		marker    Marker
		wantStart float64
		wantEnd   float64
		wantOK    bool
	}{
		{name: "timed point", marker: TimedMarker{Position: 2}, wantStart: 2, wantEnd: 2, wantOK: true},
		{name: "timed loop", marker: TimedMarker{Position: 2, Length: ptr(4.0)}, wantStart: 2, wantEnd: 6, wantOK: true},
		{name: "beat point", marker: BeatgridMarker{Beat: 2}, wantStart: 2, wantEnd: 2, wantOK: true},
		{name: "beat loop", marker: BeatgridMarker{Beat: 2, Beats: ptr(8)}, wantStart: 2, wantEnd: 6, wantOK: true},
		{name: "beat loop past end", marker: BeatgridMarker{Beat: 16, Beats: ptr(8)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := Span(tt.marker, g)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.wantStart, start, 1e-9)
				assert.InDelta(t, tt.wantEnd, end, 1e-9)
			}
		})
	}
}

func TestTimedMarkerWithoutLength(t *testing.T) {
	encoded := encode(t, TimedMarker{Position: 12.5})

	m, ok := encoded.(*dictify.Map)
	require.True(t, ok)
	assert.Equal(t, []string{"type", "position"}, m.Keys())
	_, hasLength := m.Get("length")
	assert.False(t, hasLength)

	decoded, err := Type.Decode(encoded)
	require.NoError(t, err)
	timed, ok := decoded.(TimedMarker)
	require.True(t, ok)
	assert.Nil(t, timed.Length)
	assert.Equal(t, 12.5, timed.Position)
}

func TestMarkerEncoding(t *testing.T) {
	tests := []struct {
		name   string
		marker Marker
		json   string
	}{
		{
			name:   "timed loop",
			marker: TimedMarker{Position: 1, Length: ptr(2.5), Name: ptr("drop"), Color: &Color{R: 255}},
			json:   `{"type":"timed","position":1.0,"length":2.5,"name":"drop","color":[255,0,0]}`,
		},
		{
			name:   "whole beat",
			marker: BeatgridMarker{Beat: 32, Beats: ptr(16)},
			json:   `{"type":"beatgrid","beat":32,"beats":16}`,
		},
		{
			name:   "fractional beat",
			marker: BeatgridMarker{Beat: 0.5, Name: ptr("pickup")},
			json:   `{"type":"beatgrid","beat":0.5,"name":"pickup"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := encode(t, tt.marker)
			data, err := dictify.MarshalJSON(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.json, string(data))

			tree, err := dictify.UnmarshalJSON(data)
			require.NoError(t, err)
			decoded, err := Type.Decode(tree)
			require.NoError(t, err)
			assert.Equal(t, tt.marker, decoded)
			assert.True(t, dictify.Equal(encoded, encode(t, decoded)))
		})
	}
}

func TestMarkerDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{name: "missing type", json: `{"position": 1.0}`},
		{name: "unknown type", json: `{"type": "cue", "position": 1.0}`},
		{name: "missing position", json: `{"type": "timed"}`},
		{name: "string beat", json: `{"type": "beatgrid", "beat": "1"}`},
		{name: "fractional beats", json: `{"type": "beatgrid", "beat": 1, "beats": 1.5}`},
		{name: "colour out of range", json: `{"type": "timed", "position": 1.0, "color": [256, 0, 0]}`},
		{name: "short colour", json: `{"type": "timed", "position": 1.0, "color": [1, 2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := dictify.UnmarshalJSON([]byte(tt.json))
			require.NoError(t, err)
			_, err = Type.Decode(tree)
			assert.Error(t, err)
		})
	}
}

func TestUnknownVariant(t *testing.T) {
	tree, err := dictify.UnmarshalJSON([]byte(`{"type": "cue"}`))
	require.NoError(t, err)

	_, err = Type.Decode(tree)
	var unknown *dictify.UnknownVariantError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "type", unknown.Key)
	assert.Equal(t, "cue", unknown.Value)
}

func TestListWithHoles(t *testing.T) {
	hotcues := []Marker{TimedMarker{Position: 1}, nil, BeatgridMarker{Beat: 8}}

	encoded := encode(t, hotcues)
	list, ok := encoded.([]dictify.Value)
	require.True(t, ok)
	require.Len(t, list, 3)
	assert.Nil(t, list[1])

	decoded, err := ListType.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, hotcues, decoded)
}

func TestColor(t *testing.T) {
	c := FromRGB(0x12ab34)
	assert.Equal(t, Color{R: 0x12, G: 0xab, B: 0x34}, c)
	assert.Equal(t, uint32(0x12ab34), c.RGB())
	assert.Equal(t, "#12ab34", c.String())

	encoded := encode(t, c)
	assert.Equal(t, []dictify.Value{int64(0x12), int64(0xab), int64(0x34)}, encoded)

	decoded, err := ColorType.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
}

func TestNameAndColorOf(t *testing.T) {
	assert.Equal(t, "", NameOf(TimedMarker{}))
	assert.Equal(t, "intro", NameOf(BeatgridMarker{Name: ptr("intro")}))

	_, ok := ColorOf(BeatgridMarker{})
	assert.False(t, ok)
	c, ok := ColorOf(TimedMarker{Color: &Color{G: 1}})
	require.True(t, ok)
	assert.Equal(t, Color{G: 1}, c)
}
