package mandelbrot

import "github.com/besen/fractiles/palette"

// anchorSettings is one explicitly placed gradient color as written in a settings file.
type anchorSettings struct {
	Color    string
	Position float64
}

func (as *anchorSettings) Anchor() (palette.Anchor, error) {
	c, err := palette.ParseHex(as.Color)
	if err != nil {
		return palette.Anchor{}, err
	}
	return palette.Anchor{Position: as.Position, Color: c}, nil
}
