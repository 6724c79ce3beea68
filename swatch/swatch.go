// Package swatch renders a palette as images: the 256x1 lookup texture handed to tile renderers
// and the vertical strip shown next to a tile set.
package swatch

import (
	"image"

	"github.com/besen/fractiles/palette"
	"github.com/gogpu/gg"
	"golang.org/x/image/draw"
)

// StripWidth is the default width of a swatch strip in pixels.
const StripWidth = 20

// Texture returns the palette as a 256x1 image, slot i at column i.
func Texture(p *palette.Palette) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, palette.Size, 1))
	copy(img.Pix, p.Texture())
	return img
}

// Strip paints the palette top to bottom, one row per slot. Pixels are written as bytes so the
// strip holds the palette colors exactly.
func Strip(p *palette.Palette, width int) *gg.Pixmap {
	if width <= 0 {
		width = StripWidth
	}
	pm := gg.NewPixmap(width, palette.Size)
	data := pm.Data()
	for y := 0; y < palette.Size; y++ {
		c := p[y]
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			data[i+0] = c.R
			data[i+1] = c.G
			data[i+2] = c.B
			data[i+3] = 255
		}
	}
	return pm
}

// Preview scales the strip to width x height with nearest neighbour sampling so no colors outside
// the palette appear.
func Preview(p *palette.Palette, width int, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	src := Strip(p, 1).ToImage()
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// SavePNG writes the strip for p to path.
func SavePNG(p *palette.Palette, path string) error {
	return Strip(p, StripWidth).SavePNG(path)
}
