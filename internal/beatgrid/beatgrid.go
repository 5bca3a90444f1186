package beatgrid

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidStart = errors.New("invalid beatgrid start")

// eps absorbs rounding when deciding which integer beats a region owns.
const eps = 1e-9

// Beatgrid is a start offset followed by contiguous regions. A grid without
// regions is valid and has no beats. Grids are immutable.
type Beatgrid struct {
	start   float64
	regions []Region
}

// New validates and returns a grid. The regions slice is copied.
func New(start float64, regions ...Region) (*Beatgrid, error) {
	if !(start >= 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStart, start)
	}
	for i, r := range regions {
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("region %d: %w", i, err)
		}
	}
	return &Beatgrid{start: start, regions: append([]Region(nil), regions...)}, nil
}

// Start is the position of the first beat.
func (g *Beatgrid) Start() float64 { return g.start }

// NumRegions returns the number of regions.
func (g *Beatgrid) NumRegions() int { return len(g.regions) }

// Region returns region k.
func (g *Beatgrid) Region(k int) Region { return g.regions[k] }

// Equal reports whether both grids have the same start and regions.
func (g *Beatgrid) Equal(other *Beatgrid) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.start != other.start || len(g.regions) != len(other.regions) {
		return false
	}
	for i := range g.regions {
		if g.regions[i] != other.regions[i] {
			return false
		}
	}
	return true
}

// Duration is the total length of all regions.
func (g *Beatgrid) Duration() float64 {
	var d float64
	for _, r := range g.regions {
		d += r.Length
	}
	return d
}

// End is the position of the grid's right edge.
func (g *Beatgrid) End() float64 {
	return g.start + g.Duration()
}

// TotalBeats is the (possibly fractional) number of beats in the grid.
func (g *Beatgrid) TotalBeats() float64 {
	var n float64
	for _, r := range g.regions {
		n += r.BeatLength()
	}
	return n
}

// Contains reports whether pos lies inside the grid, both edges included.
func (g *Beatgrid) Contains(pos float64) bool {
	return len(g.regions) > 0 && pos >= g.start && pos <= g.End()
}

// BeatIndex maps a time position to a fractional beat index. A position on
// an inner region boundary is computed by the region ending there.
func (g *Beatgrid) BeatIndex(pos float64) (float64, bool) {
	if pos < g.start {
		return 0, false
	}
	var elapsed, beats float64
	for k, r := range g.regions {
		// Edges are summed in the order End and TotalBeats use, so the grid's
		// own end maps onto its last beat.
		end := g.start + (elapsed + r.Length)
		if pos <= end {
			index := beats + (pos-(g.start+elapsed))*r.BPM/60
			if k == len(g.regions)-1 {
				index = min(index, beats+r.BeatLength())
			}
			return index, true
		}
		elapsed += r.Length
		beats += r.BeatLength()
	}
	return 0, false
}

// BeatPos maps a fractional beat index to a time position.
func (g *Beatgrid) BeatPos(index float64) (float64, bool) {
	if index < 0 {
		return 0, false
	}
	var elapsed, beats float64
	for k, r := range g.regions {
		if index <= beats+r.BeatLength() {
			pos := g.start + elapsed + (index-beats)*60/r.BPM
			if k == len(g.regions)-1 {
				pos = min(pos, g.start+(elapsed+r.Length))
			}
			return pos, true
		}
		elapsed += r.Length
		beats += r.BeatLength()
	}
	return 0, false
}

// segment is the placement of one region inside its grid.
type segment struct {
	time  float64 // elapsed time at the region start, relative to Start
	beats float64 // elapsed beats at the region start
	first int     // first owned beat
	last  int     // last owned beat, first-1 when the region owns none
	dbi   int     // absolute index of the downbeat anchor in force
}

// place computes the segment of region k from the segment of region k-1.
// prev is ignored for k == 0.
func (g *Beatgrid) place(k int, prev segment) segment {
	r := g.regions[k]
	var s segment
	if k > 0 {
		p := g.regions[k-1]
		s.time = prev.time + p.Length
		s.beats = prev.beats + p.BeatLength()
	}
	end := s.beats + r.BeatLength()
	s.first = int(math.Ceil(s.beats - eps))
	if k == len(g.regions)-1 {
		s.last = int(math.Floor(end + eps))
	} else {
		// A beat on the boundary belongs to the next region.
		s.last = int(math.Ceil(end-eps)) - 1
	}

	if k == 0 {
		s.dbi = -r.DBS
	} else {
		s.dbi = s.first - mod(s.first-prev.dbi, g.regions[k-1].BPB) - r.DBS
	}
	return s
}

func (g *Beatgrid) beat(k int, s segment, index int) Beat {
	r := g.regions[k]
	return Beat{
		Index:    index,
		Position: g.start + s.time + (float64(index)-s.beats)*60/r.BPM,
		Downbeat: mod(index-s.dbi, r.BPB) == 0,
	}
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
