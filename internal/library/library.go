// Package library finds the audio files a sync run works on.
package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Library is a set of root paths, each a directory or a single file.
type Library struct {
	paths      []string
	extensions []string
}

// New returns a library over paths, which default to the working
// directory. Only files with one of extensions (without the dot, case
// insensitive) are part of the library.
func New(paths []string, extensions []string) (*Library, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	lib := &Library{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		lib.paths = append(lib.paths, filepath.Clean(abs))
	}
	for _, ext := range extensions {
		lib.extensions = append(lib.extensions, "."+strings.ToLower(strings.TrimPrefix(ext, ".")))
	}
	return lib, nil
}

// Paths returns the absolute root paths.
func (l *Library) Paths() []string {
	return slices.Clone(l.paths)
}

func (l *Library) hasExtension(path string) bool {
	if len(l.extensions) == 0 {
		return true
	}
	return slices.Contains(l.extensions, strings.ToLower(filepath.Ext(path)))
}

// Contains reports whether location is, or lies under, one of the roots and
// has a library extension. The file itself need not exist.
func (l *Library) Contains(location string) bool {
	abs, err := filepath.Abs(location)
	if err != nil || !l.hasExtension(abs) {
		return false
	}
	for _, root := range l.paths {
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Files returns every library file under the roots, sorted and without
// duplicates.
func (l *Library) Files(ctx context.Context) ([]string, error) {
	var files []string
	for _, root := range l.paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			if l.hasExtension(root) {
				files = append(files, root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.Type().IsRegular() && l.hasExtension(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}
