package trackinfo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/dj-metadata-sync/internal/beatgrid"
	"github.com/jaki95/dj-metadata-sync/internal/marker"
	"github.com/jaki95/dj-metadata-sync/internal/tagstore"
)

func ptr[T any](v T) *T { return &v }

func testGrid(t *testing.T) *beatgrid.Beatgrid {
	t.Helper()
	r1, err := beatgrid.NewRegion(10, 120, 4, 0)
	require.NoError(t, err)
	r2, err := beatgrid.NewRegion(20, 126, 3, 1)
	require.NoError(t, err)
	g, err := beatgrid.New(0.25, r1, r2)
	require.NoError(t, err)
	return g
}

func TestBeatgrid(t *testing.T) {
	info := Detached("a.mp3")

	g, err := info.Beatgrid()
	require.NoError(t, err)
	assert.Nil(t, g)

	want := testGrid(t)
	require.NoError(t, info.SetBeatgrid(want))

	g, err = info.Beatgrid()
	require.NoError(t, err)
	assert.True(t, want.Equal(g))

	require.NoError(t, info.SetBeatgrid(nil))
	assert.Empty(t, info.Keys())
}

func TestMarkerChannels(t *testing.T) {
	info := Detached("a.mp3")

	cue := marker.TimedMarker{Position: 1.5}
	hotcues := []marker.Marker{nil, marker.BeatgridMarker{Beat: 16, Name: ptr("drop")}, nil, nil}
	loops := []marker.Marker{marker.TimedMarker{Position: 10, Length: ptr(8.0)}}
	memory := []marker.Marker{marker.TimedMarker{Position: 30, Color: &marker.Color{R: 1, G: 2, B: 3}}}
	phrases := []marker.Marker{marker.BeatgridMarker{Beat: 0, Beats: ptr(32)}}

	require.NoError(t, info.SetCuePoint(cue))
	require.NoError(t, info.SetHotCues(hotcues))
	require.NoError(t, info.SetLoops(loops))
	require.NoError(t, info.SetMemoryCues(memory))
	require.NoError(t, info.SetPhrases(phrases))

	assert.Equal(t, []string{"markers/cue", "markers/hotcue", "markers/loop", "markers/memory", "markers/phrase"}, info.Keys())

	gotCue, err := info.CuePoint()
	require.NoError(t, err)
	assert.Equal(t, cue, gotCue)

	gotHot, err := info.HotCues()
	require.NoError(t, err)
	// Trailing holes are dropped; inner holes keep the slot numbering.
	assert.Equal(t, hotcues[:2], gotHot)

	gotLoops, err := info.Loops()
	require.NoError(t, err)
	assert.Equal(t, loops, gotLoops)

	gotMemory, err := info.MemoryCues()
	require.NoError(t, err)
	assert.Equal(t, memory, gotMemory)

	gotPhrases, err := info.Phrases()
	require.NoError(t, err)
	assert.Equal(t, phrases, gotPhrases)

	require.NoError(t, info.SetCuePoint(nil))
	gotCue, err = info.CuePoint()
	require.NoError(t, err)
	assert.Nil(t, gotCue)
}

func TestAbsentChannel(t *testing.T) {
	info := Detached("a.mp3")
	for _, ch := range Channels {
		markers, err := info.Markers(ch)
		assert.NoError(t, err)
		assert.Nil(t, markers)
	}
}

func TestBareMarkerChannel(t *testing.T) {
	ctx := context.Background()
	backend := tagstore.NewMemoryBackend()
	require.NoError(t, backend.Save(ctx, "a.mp3", tagstore.DefaultNamespace, tagstore.Frames{
		"UDLF:markers/cue":    `{"type":"timed","position":2.0}`,
		"UDLF:markers/hotcue": `[null,{"type":"timed","position":1.0}]`,
		"UDLF:markers/loop":   `[]`,
	}))

	info, err := Open(ctx, backend, "a.mp3", tagstore.DefaultNamespace)
	require.NoError(t, err)

	cue, err := info.Markers(Cue)
	require.NoError(t, err)
	assert.Equal(t, []marker.Marker{marker.TimedMarker{Position: 2}}, cue)

	hotcues, err := info.HotCues()
	require.NoError(t, err)
	assert.Equal(t, []marker.Marker{nil, marker.TimedMarker{Position: 1}}, hotcues)

	loops, err := info.Loops()
	require.NoError(t, err)
	assert.Empty(t, loops)
}

func TestCorruptChannel(t *testing.T) {
	ctx := context.Background()
	backend := tagstore.NewMemoryBackend()
	require.NoError(t, backend.Save(ctx, "a.mp3", tagstore.DefaultNamespace, tagstore.Frames{
		"UDLF:markers/cue": `[{"type":"bogus"}]`,
		"UDLF:beatgrid":    `{"start":0.0}`,
	}))

	info, err := Open(ctx, backend, "a.mp3", tagstore.DefaultNamespace)
	require.NoError(t, err)

	_, err = info.CuePoint()
	assert.Error(t, err)
	_, err = info.Beatgrid()
	assert.Error(t, err)
}

func TestAssign(t *testing.T) {
	src := Detached("a.mp3")
	require.NoError(t, src.SetBeatgrid(testGrid(t)))
	require.NoError(t, src.SetCuePoint(marker.TimedMarker{Position: 2}))

	tests := []struct {
		name      string
		overwrite bool
		wantCue   float64
	}{
		{name: "keep existing", overwrite: false, wantCue: 1},
		{name: "overwrite", overwrite: true, wantCue: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := Detached("a.mp3")
			require.NoError(t, dst.SetCuePoint(marker.TimedMarker{Position: 1}))

			require.NoError(t, dst.Assign(src, tt.overwrite))

			g, err := dst.Beatgrid()
			require.NoError(t, err)
			assert.True(t, testGrid(t).Equal(g))

			cue, err := dst.CuePoint()
			require.NoError(t, err)
			pos, _ := cue.Resolve(nil)
			assert.Equal(t, tt.wantCue, pos)
		})
	}
}

func TestEqualCloneClear(t *testing.T) {
	info := Detached("a.mp3")
	require.NoError(t, info.SetBeatgrid(testGrid(t)))
	require.NoError(t, info.SetLoops([]marker.Marker{marker.BeatgridMarker{Beat: 4, Beats: ptr(4)}}))

	clone, err := info.Clone()
	require.NoError(t, err)
	assert.True(t, info.Equal(clone))
	assert.Equal(t, "a.mp3", clone.Location())

	require.NoError(t, clone.SetLoops(nil))
	assert.False(t, info.Equal(clone))

	info.Clear()
	assert.Empty(t, info.Keys())
	assert.False(t, info.Equal(clone))
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	backend := tagstore.NewMemoryBackend()

	info, err := Open(ctx, backend, "a.mp3", tagstore.DefaultNamespace)
	require.NoError(t, err)
	require.NoError(t, info.SetBeatgrid(testGrid(t)))
	assert.True(t, info.Dirty())
	require.NoError(t, info.Save(ctx))

	reopened, err := Open(ctx, backend, "a.mp3", tagstore.DefaultNamespace)
	require.NoError(t, err)
	assert.True(t, info.Equal(reopened))

	// Writing the same grid again leaves nothing to save.
	require.NoError(t, reopened.SetBeatgrid(testGrid(t)))
	assert.False(t, reopened.Dirty())

	tree, err := reopened.Tree()
	require.NoError(t, err)
	assert.Equal(t, []string{"beatgrid"}, tree.Keys())
}
