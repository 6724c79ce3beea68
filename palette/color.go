package palette

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Color is an opaque 24-bit color. Alpha is implicitly 255.
type Color struct {
	R uint8
	G uint8
	B uint8
}

var Black = Color{}

// ParseHex parses a "#RRGGBB" string. The leading '#' is optional.
func ParseHex(hex string) (Color, error) {
	digits := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(digits) != 6 {
		return Color{}, fmt.Errorf("%w: %q must have 6 hex digits", ErrInvalidColorFormat, hex)
	}
	value, err := strconv.ParseUint(digits, 16, 24)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q - %s", ErrInvalidColorFormat, hex, err)
	}
	return Color{
		R: uint8(value >> 16),
		G: uint8(value >> 8),
		B: uint8(value),
	}, nil
}

// MustParseHex is like ParseHex but panics on malformed input. Meant for literals.
func MustParseHex(hex string) Color {
	c, err := ParseHex(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseHexList parses every entry of hexes, reporting the index of the first bad one.
func ParseHexList(hexes []string) ([]Color, error) {
	colors := make([]Color, len(hexes))
	for i, hex := range hexes {
		c, err := ParseHex(hex)
		if err != nil {
			return nil, fmt.Errorf("control color %d: %w", i, err)
		}
		colors[i] = c
	}
	return colors, nil
}

func (c Color) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// RGBA materializes the color as an opaque pixel.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// stepTo moves ratio of the way towards other, flooring every channel.
func (c Color) stepTo(other Color, ratio float64) Color {
	return Color{
		R: lerpChannel(c.R, other.R, ratio),
		G: lerpChannel(c.G, other.G, ratio),
		B: lerpChannel(c.B, other.B, ratio),
	}
}
