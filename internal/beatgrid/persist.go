package beatgrid

import "github.com/jaki95/dj-metadata-sync/internal/dictify"

// Dictify encodes the region as [length, bpm], extended with bpb and dbs
// only when they differ from their defaults.
func (r Region) Dictify() (dictify.Value, error) {
	out := []dictify.Value{r.Length, r.BPM}
	if r.BPB != DefaultBPB || r.DBS != 0 {
		out = append(out, int64(r.BPB))
	}
	if r.DBS != 0 {
		out = append(out, int64(r.DBS))
	}
	return out, nil
}

var (
	number = dictify.Erase(dictify.Number)
	count  = dictify.Erase(dictify.Int)
)

// RegionType decodes the compact region tuple, longest arity first.
var RegionType dictify.Type[Region] = dictify.Union(
	dictify.Convert(dictify.Tuple(number, number, count, count), func(l []any) (Region, error) {
		return NewRegion(l[0].(float64), l[1].(float64), l[2].(int), l[3].(int))
	}),
	dictify.Convert(dictify.Tuple(number, number, count), func(l []any) (Region, error) {
		return NewRegion(l[0].(float64), l[1].(float64), l[2].(int), 0)
	}),
	dictify.Convert(dictify.Tuple(number, number), func(l []any) (Region, error) {
		return NewRegion(l[0].(float64), l[1].(float64), DefaultBPB, 0)
	}),
)

type persisted struct {
	Start   float64
	Regions []Region
}

var shape = dictify.NewStruct("beatgrid",
	dictify.Attr("start", dictify.Number, func(p *persisted) *float64 { return &p.Start }),
	dictify.Attr("regions", dictify.List(RegionType), func(p *persisted) *[]Region { return &p.Regions }),
)

// Type decodes a persisted grid and validates it.
var Type dictify.Type[*Beatgrid] = dictify.Convert(dictify.Type[persisted](shape), func(p persisted) (*Beatgrid, error) {
	return New(p.Start, p.Regions...)
})

// Dictify encodes the grid as {start, regions}.
func (g *Beatgrid) Dictify() (dictify.Value, error) {
	return shape.Encode(&persisted{Start: g.start, Regions: g.regions})
}
