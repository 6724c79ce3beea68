// Package palette builds the 256 entry color lookup table used to color escape counts.
package palette

import "math"

const Size = 256

// DefaultControlColors is the gradient used when no colors are configured.
var DefaultControlColors = []Color{
	MustParseHex("#000764"),
	MustParseHex("#206bcb"),
	MustParseHex("#edffff"),
	MustParseHex("#ffaa00"),
	MustParseHex("#000200"),
}

// Palette is an immutable snapshot. Being an array it is copied by value, so a rebuilt palette
// never affects renders holding the previous one.
type Palette [Size]Color

// Index maps a fraction in [0, 1] to a slot, flooring and clamping like a nearest-neighbour
// texture lookup.
func Index(fraction float64) int {
	i := math.Floor(fraction * Size)
	if !(i >= 0) {
		return 0
	}
	if i > Size-1 {
		return Size - 1
	}
	return int(i)
}

func (p *Palette) At(fraction float64) Color {
	return p[Index(fraction)]
}

// Texture returns the palette as a 256x1 RGBA byte strip.
func (p *Palette) Texture() []uint8 {
	texture := make([]uint8, 0, Size*4)
	for _, c := range p {
		texture = append(texture, c.R, c.G, c.B, 255)
	}
	return texture
}
