package tagstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const sidecarExt = ".udlf.json"

// sidecarDoc is the on-disk and in-bucket form of a track's frames.
type sidecarDoc struct {
	Location string `json:"location"`
	Frames   Frames `json:"frames"`
}

// SidecarBackend keeps frames in a JSON file per track. Without a directory
// the file sits next to the track; with one, all files live in that
// directory and the backend can list them.
type SidecarBackend struct {
	dir string
}

// NewSidecarBackend creates the sidecar directory if one is given.
func NewSidecarBackend(dir string) (*SidecarBackend, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &SidecarBackend{dir: dir}, nil
}

func (b *SidecarBackend) path(location string) string {
	if b.dir == "" {
		return location + sidecarExt
	}
	return filepath.Join(b.dir, objectKey(location)+sidecarExt)
}

// objectKey names a track's sidecar independently of its directory layout.
func objectKey(location string) string {
	if abs, err := filepath.Abs(location); err == nil {
		location = abs
	}
	sum := sha1.Sum([]byte(location))
	return hex.EncodeToString(sum[:])
}

func (b *SidecarBackend) Load(_ context.Context, location, prefix string) (Frames, error) {
	data, err := os.ReadFile(b.path(location))
	if errors.Is(err, os.ErrNotExist) {
		return Frames{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}
	return decodeSidecar(data, prefix)
}

func decodeSidecar(data []byte, prefix string) (Frames, error) {
	var doc sidecarDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse sidecar: %w", err)
	}
	frames := Frames{}
	for desc, text := range doc.Frames {
		if strings.HasPrefix(desc, prefix) {
			frames[desc] = text
		}
	}
	return frames, nil
}

func (b *SidecarBackend) Save(_ context.Context, location, prefix string, frames Frames) error {
	path := b.path(location)

	doc := sidecarDoc{Location: location, Frames: Frames{}}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to parse sidecar: %w", err)
		}
		if doc.Frames == nil {
			doc.Frames = Frames{}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read sidecar: %w", err)
	}
	doc.Location = location
	mergeFrames(doc.Frames, prefix, frames)

	if len(doc.Frames) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove sidecar: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sidecar: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write sidecar: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace sidecar: %w", err)
	}
	return nil
}

// mergeFrames replaces the prefixed frames of dst by frames.
func mergeFrames(dst Frames, prefix string, frames Frames) {
	for desc := range dst {
		if strings.HasPrefix(desc, prefix) {
			delete(dst, desc)
		}
	}
	for desc, text := range frames {
		dst[desc] = text
	}
}

// List returns the tracks that have a sidecar in the sidecar directory.
func (b *SidecarBackend) List(context.Context) ([]string, error) {
	if b.dir == "" {
		return nil, fmt.Errorf("%w: listing sidecars needs a sidecar directory", ErrNotSupported)
	}
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sidecarExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read sidecar: %w", err)
		}
		var doc sidecarDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse sidecar %s: %w", entry.Name(), err)
		}
		out = append(out, doc.Location)
	}
	sort.Strings(out)
	return out, nil
}
