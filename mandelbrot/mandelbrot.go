package mandelbrot

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/besen/fractiles/palette"
	"github.com/besen/fractiles/tile"
)

// Renderer turns tile coordinates into RGBA tiles. It is immutable once built and safe for
// concurrent use.
type Renderer struct {
	mapper      tile.Mapper
	palette     palette.Palette
	parallelism int
	params      Params
	subPixels   []float64
	tilePixels  int
}

func NewRenderer(settings Settings) (*Renderer, error) {
	if err := settings.Verify(); err != nil {
		return nil, err
	}
	p, err := settings.Palette()
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		mapper:      settings.Mapper(),
		palette:     p,
		parallelism: settings.Parallelism,
		params:      settings.Params(),
		subPixels:   make([]float64, settings.SuperSampling),
		tilePixels:  settings.TilePixels,
	}
	if settings.SuperSampling > 1 {
		// Grid super sampling
		for i := 0; i < settings.SuperSampling; i++ {
			r.subPixels[i] = ((0.5 + float64(i)) / float64(settings.SuperSampling)) - 0.5
		}
	}
	return r, nil
}

func (r *Renderer) Palette() *palette.Palette {
	return &r.palette
}

func (r *Renderer) Params() Params {
	return r.params
}

func (r *Renderer) Mapper() tile.Mapper {
	return r.mapper
}

func (r *Renderer) TilePixels() int {
	return r.tilePixels
}

// GetPointsToCalculate returns the plane points sampled for pixel (px, py) of a tile covering w.
func (r *Renderer) GetPointsToCalculate(w tile.Window, px int, py int) []complex128 {
	points := make([]complex128, 0, len(r.subPixels)*len(r.subPixels))
	for _, sx := range r.subPixels {
		for _, sy := range r.subPixels {
			points = append(points, w.SubPixel(px, py, r.tilePixels, r.tilePixels, sx, sy))
		}
	}
	return points
}

func (r *Renderer) EscapeTimeMultiple(points []complex128) []Result {
	results := make([]Result, len(points))
	for i, point := range points {
		results[i] = Evaluate(point, r.params)
	}
	return results
}

func (r *Renderer) GetColorMultiple(results []Result) color.RGBA {
	if len(results) == 1 {
		return r.GetColor(results[0])
	}

	// Generate the final super sampled color
	var red, green, blue int
	for _, result := range results {
		sample := r.GetColor(result)
		red += int(sample.R)
		green += int(sample.G)
		blue += int(sample.B)
	}
	divisor := len(results)
	return color.RGBA{R: uint8(red / divisor), G: uint8(green / divisor), B: uint8(blue / divisor), A: 255}
}

func (r *Renderer) GetColor(result Result) color.RGBA {
	return Colorize(result, r.params.MaxIterations, &r.palette)
}

// RenderTile rasterizes the tile at c. Rows are shared out across the configured number of
// goroutines; a cancelled context yields ctx.Err() and no image.
func (r *Renderer) RenderTile(ctx context.Context, c tile.Coordinate) (*image.RGBA, error) {
	w, err := r.mapper.Map(c)
	if err != nil {
		return nil, fmt.Errorf("rendering tile %v: %w", c, err)
	}

	img := image.NewRGBA(image.Rect(0, 0, r.tilePixels, r.tilePixels))
	rows := make(chan int, r.tilePixels)
	for row := 0; row < r.tilePixels; row++ {
		rows <- row
	}
	close(rows)

	wg := sync.WaitGroup{}
	for i := 0; i < r.parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range rows {
				if !r.renderRow(ctx, img, w, row) {
					return
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

// renderRow reports false when ctx was cancelled before the row was finished.
func (r *Renderer) renderRow(ctx context.Context, img *image.RGBA, w tile.Window, row int) bool {
	for column := 0; column < r.tilePixels; column++ {
		if ctx.Err() != nil {
			return false
		}
		points := r.GetPointsToCalculate(w, column, row)
		img.SetRGBA(column, row, r.GetColorMultiple(r.EscapeTimeMultiple(points)))
	}
	return true
}
