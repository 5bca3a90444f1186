package beatgrid

import "iter"

// Beat is a single integral beat of a grid.
type Beat struct {
	Index    int
	Position float64
	Downbeat bool
}

// RegionMeta summarises where a region sits in its grid.
type RegionMeta struct {
	Start     float64
	End       float64
	FirstBeat int
	LastBeat  int
	// DBI is the downbeat anchor relative to FirstBeat, in [0, BPB).
	DBI int
}

// Cursor walks the beats of a grid in index order. The zero value is not
// usable; obtain one from Beatgrid.Cursor.
type Cursor struct {
	grid   *Beatgrid
	region int
	seg    segment
	next   int
}

// Cursor returns a cursor positioned before the first beat.
func (g *Beatgrid) Cursor() *Cursor {
	c := &Cursor{grid: g}
	c.Reset()
	return c
}

// Reset rewinds the cursor to the first beat.
func (c *Cursor) Reset() {
	c.region = 0
	c.seg = segment{}
	c.next = 0
	if len(c.grid.regions) > 0 {
		c.seg = c.grid.place(0, segment{})
		c.next = c.seg.first
	}
}

// Next returns the next beat, or false once the last region is exhausted.
func (c *Cursor) Next() (Beat, bool) {
	g := c.grid
	for c.region < len(g.regions) {
		if c.next <= c.seg.last {
			b := g.beat(c.region, c.seg, c.next)
			c.next++
			return b, true
		}
		c.region++
		if c.region < len(g.regions) {
			c.seg = g.place(c.region, c.seg)
			c.next = c.seg.first
		}
	}
	return Beat{}, false
}

// Beats yields every beat of the grid. Each iteration starts from the first
// beat.
func (g *Beatgrid) Beats() iter.Seq[Beat] {
	return func(yield func(Beat) bool) {
		c := g.Cursor()
		for {
			b, ok := c.Next()
			if !ok || !yield(b) {
				return
			}
		}
	}
}

// BeatAt returns the beat with the given index.
func (g *Beatgrid) BeatAt(index int) (Beat, bool) {
	if index < 0 {
		return Beat{}, false
	}
	var s segment
	for k := range g.regions {
		s = g.place(k, s)
		if index < s.first {
			break
		}
		if index <= s.last {
			return g.beat(k, s, index), true
		}
	}
	return Beat{}, false
}

// Regions yields each region with its placement in the grid.
func (g *Beatgrid) Regions() iter.Seq2[RegionMeta, Region] {
	return func(yield func(RegionMeta, Region) bool) {
		var s segment
		for k, r := range g.regions {
			s = g.place(k, s)
			meta := RegionMeta{
				Start:     g.start + s.time,
				End:       g.start + s.time + r.Length,
				FirstBeat: s.first,
				LastBeat:  s.last,
				DBI:       mod(s.dbi-s.first, r.BPB),
			}
			if !yield(meta, r) {
				return
			}
		}
	}
}
