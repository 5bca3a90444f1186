package marker

import (
	"fmt"

	"github.com/jaki95/dj-metadata-sync/internal/dictify"
)

// Color is an 8-bit RGB colour.
type Color struct {
	R, G, B uint8
}

// FromRGB unpacks a 0xRRGGBB value.
func FromRGB(rgb uint32) Color {
	return Color{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb)}
}

// RGB packs the colour as 0xRRGGBB.
func (c Color) RGB() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Dictify encodes the colour as [R, G, B].
func (c Color) Dictify() (dictify.Value, error) {
	return []dictify.Value{int64(c.R), int64(c.G), int64(c.B)}, nil
}

var component = dictify.Erase(dictify.Func("int", func(v dictify.Value) (uint8, error) {
	i, err := dictify.Int.Decode(v)
	if err != nil {
		return 0, err
	}
	if i < 0 || i > 255 {
		return 0, fmt.Errorf("colour component %d out of range", i)
	}
	return uint8(i), nil
}))

var ColorType dictify.Type[Color] = dictify.Convert(dictify.Tuple(component, component, component), func(l []any) (Color, error) {
	return Color{R: l[0].(uint8), G: l[1].(uint8), B: l[2].(uint8)}, nil
})
