package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), os.ModePerm))
	require.NoError(t, os.WriteFile(path, nil, 0644))
}

func TestFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.mp3"))
	touch(t, filepath.Join(root, "sub", "b.MP3"))
	touch(t, filepath.Join(root, "sub", "c.flac"))
	touch(t, filepath.Join(root, "notes.txt"))

	tests := []struct {
		name       string
		paths      []string
		extensions []string
		want       []string
	}{
		{
			name:       "directory",
			paths:      []string{root},
			extensions: []string{"mp3"},
			want:       []string{filepath.Join(root, "a.mp3"), filepath.Join(root, "sub", "b.MP3")},
		},
		{
			name:       "several extensions",
			paths:      []string{filepath.Join(root, "sub")},
			extensions: []string{".mp3", "flac"},
			want:       []string{filepath.Join(root, "sub", "b.MP3"), filepath.Join(root, "sub", "c.flac")},
		},
		{
			name:       "single file and overlapping roots",
			paths:      []string{filepath.Join(root, "a.mp3"), root},
			extensions: []string{"mp3"},
			want:       []string{filepath.Join(root, "a.mp3"), filepath.Join(root, "sub", "b.MP3")},
		},
		{
			name:       "file with other extension",
			paths:      []string{filepath.Join(root, "notes.txt")},
			extensions: []string{"mp3"},
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib, err := New(tt.paths, tt.extensions)
			require.NoError(t, err)

			files, err := lib.Files(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, files)
		})
	}
}

func TestFilesMissingRoot(t *testing.T) {
	lib, err := New([]string{filepath.Join(t.TempDir(), "missing")}, []string{"mp3"})
	require.NoError(t, err)

	_, err = lib.Files(context.Background())
	assert.Error(t, err)
}

func TestContains(t *testing.T) {
	root := t.TempDir()
	lib, err := New([]string{filepath.Join(root, "music")}, []string{"mp3"})
	require.NoError(t, err)

	assert.True(t, lib.Contains(filepath.Join(root, "music", "x", "a.mp3")))
	assert.False(t, lib.Contains(filepath.Join(root, "music", "a.flac")))
	assert.False(t, lib.Contains(filepath.Join(root, "musicals", "a.mp3")))
	assert.False(t, lib.Contains(filepath.Join(root, "a.mp3")))
}

func TestDefaultPath(t *testing.T) {
	lib, err := New(nil, nil)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, []string{wd}, lib.Paths())
}
