package adapter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/dj-metadata-sync/config"
)

func TestOpenSource(t *testing.T) {
	cfg := config.Default()
	cfg.Rekordbox.XMLPath = filepath.Join(t.TempDir(), "rekordbox.xml")
	cfg.Mixxx.DBPath = filepath.Join(t.TempDir(), "missing.sqlite")

	tests := []struct {
		name    string
		adapter string
		wantErr error
		anyErr  bool
	}{
		{name: "rekordbox", adapter: Rekordbox},
		{name: "mixxx without database", adapter: Mixxx, anyErr: true},
		{name: "unknown", adapter: "traktor", wantErr: ErrUnknownAdapter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := OpenSource(context.Background(), tt.adapter, cfg)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.NoError(t, src.Close())
			}
		})
	}
}

func TestOpenSink(t *testing.T) {
	cfg := config.Default()
	cfg.Rekordbox.XMLPath = filepath.Join(t.TempDir(), "rekordbox.xml")

	sink, err := OpenSink(context.Background(), Rekordbox, cfg)
	require.NoError(t, err)
	assert.NoError(t, sink.Close())

	// A missing ffprobe only disables probing.
	cfg.Rekordbox.ProbeLengths = true
	cfg.Rekordbox.FFProbePath = filepath.Join(t.TempDir(), "ffprobe")
	sink, err = OpenSink(context.Background(), Rekordbox, cfg)
	require.NoError(t, err)
	assert.NoError(t, sink.Close())

	_, err = OpenSink(context.Background(), Mixxx, cfg)
	assert.ErrorIs(t, err, ErrNotSupported)

	_, err = OpenSink(context.Background(), "serato", cfg)
	assert.ErrorIs(t, err, ErrUnknownAdapter)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{Mixxx, Rekordbox}, Sources())
	assert.Equal(t, []string{Rekordbox}, Sinks())
}
