// Package beatgrid models the tempo structure of a track as a sequence of
// contiguous constant-tempo regions and converts between time positions and
// beat indices.
package beatgrid

import (
	"errors"
	"fmt"
)

// DefaultBPB is the bar length assumed when a region does not state one.
const DefaultBPB = 4

var ErrInvalidRegion = errors.New("invalid beatgrid region")

// Region is a span of constant tempo and time signature.
type Region struct {
	Length float64 // seconds
	BPM    float64
	BPB    int // beats per bar
	DBS    int // downbeat shift applied when entering the region
}

// NewRegion validates and returns a region.
func NewRegion(length, bpm float64, bpb, dbs int) (Region, error) {
	if !(length > 0) {
		return Region{}, fmt.Errorf("%w: length %v must be positive", ErrInvalidRegion, length)
	}
	if !(bpm > 0) {
		return Region{}, fmt.Errorf("%w: bpm %v must be positive", ErrInvalidRegion, bpm)
	}
	if bpb < 1 {
		return Region{}, fmt.Errorf("%w: bpb %d must be at least 1", ErrInvalidRegion, bpb)
	}
	return Region{Length: length, BPM: bpm, BPB: bpb, DBS: dbs}, nil
}

func (r Region) validate() error {
	_, err := NewRegion(r.Length, r.BPM, r.BPB, r.DBS)
	return err
}

// BeatLength is the number of beats the region spans.
func (r Region) BeatLength() float64 {
	return r.Length * r.BPM / 60
}

// BeatIndex maps a position relative to the region start to a beat index.
func (r Region) BeatIndex(pos float64) (float64, bool) {
	if pos < 0 || pos > r.Length {
		return 0, false
	}
	return pos * r.BPM / 60, true
}

// BeatPos maps a beat index relative to the region start to a position.
func (r Region) BeatPos(index float64) (float64, bool) {
	if index < 0 || index > r.BeatLength() {
		return 0, false
	}
	return index * 60 / r.BPM, true
}
