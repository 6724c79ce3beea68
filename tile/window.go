package tile

import (
	"fmt"
	"math"
)

// Window is the region of the complex plane covered by one tile. Tile rows grow downwards like
// image rows, so the top edge of a tile is YMin and the bottom edge is YMax.
type Window struct {
	XMin float64
	XMax float64
	YMin float64
	YMax float64
}

func (w Window) Width() float64 {
	return w.XMax - w.XMin
}

func (w Window) Height() float64 {
	return w.YMax - w.YMin
}

func (w Window) Area() float64 {
	return w.Width() * w.Height()
}

// Contains reports whether other lies entirely inside w.
func (w Window) Contains(other Window) bool {
	return other.XMin >= w.XMin && other.XMax <= w.XMax && other.YMin >= w.YMin && other.YMax <= w.YMax
}

// Point maps fractions u, v in [0, 1] across and down the window to a plane point.
func (w Window) Point(u float64, v float64) complex128 {
	// Products are rounded before the sums so the mapping does not depend on FMA contraction
	x := w.XMin + float64(u*w.Width())
	y := w.YMin + float64(v*w.Height())
	return complex(x, y)
}

// Pixel maps the center of pixel (px, py) of a width x height tile to a plane point.
func (w Window) Pixel(px int, py int, width int, height int) complex128 {
	return w.SubPixel(px, py, width, height, 0, 0)
}

// SubPixel is Pixel shifted by (dx, dy) pixels from the pixel center.
func (w Window) SubPixel(px int, py int, width int, height int, dx float64, dy float64) complex128 {
	u := (float64(px) + 0.5 + dx) / float64(width)
	v := (float64(py) + 0.5 + dy) / float64(height)
	return w.Point(u, v)
}

// NDC maps a normalized device position in [-1, 1]^2, with +1 at the top of the tile, to a plane
// point.
func (w Window) NDC(nx float64, ny float64) complex128 {
	return w.Point((nx+1)/2, (1-ny)/2)
}

func (w Window) String() string {
	return fmt.Sprintf("{Window X: [%g, %g] Y: [%g, %g]}", w.XMin, w.XMax, w.YMin, w.YMax)
}

// Mapper places the tile quadtree on the plane. Tile (0, 0, 0) covers
// [OriginX, OriginX+TileSize] x [OriginY, OriginY+TileSize].
type Mapper struct {
	TileSize float64
	OriginX  float64
	OriginY  float64
}

// MapTile maps c with the root tile anchored at the plane origin.
func MapTile(tileSize float64, c Coordinate) (Window, error) {
	return Mapper{TileSize: tileSize}.Map(c)
}

func (m Mapper) Map(c Coordinate) (Window, error) {
	if !(m.TileSize > 0) || math.IsInf(m.TileSize, 0) {
		return Window{}, fmt.Errorf("%w: tile size %v", ErrDegenerateWindow, m.TileSize)
	}
	if err := c.Verify(); err != nil {
		return Window{}, err
	}

	segment := m.TileSize / math.Exp2(c.Z)
	w := Window{
		XMin: m.OriginX + float64(float64(c.X)*segment),
		XMax: m.OriginX + float64(float64(c.X+1)*segment),
		YMin: m.OriginY + float64(float64(c.Y)*segment),
		YMax: m.OriginY + float64(float64(c.Y+1)*segment),
	}
	if !(w.XMax > w.XMin) || !(w.YMax > w.YMin) || math.IsInf(w.Width(), 0) || math.IsInf(w.Height(), 0) {
		return Window{}, fmt.Errorf("%w: %v at %v", ErrDegenerateWindow, w, c)
	}
	return w, nil
}

// Locate returns the tile at integer level z that contains point.
func (m Mapper) Locate(point complex128, z int) Coordinate {
	segment := m.TileSize / math.Exp2(float64(z))
	return Coordinate{
		X: int(math.Floor((real(point) - m.OriginX) / segment)),
		Y: int(math.Floor((imag(point) - m.OriginY) / segment)),
		Z: float64(z),
	}
}
