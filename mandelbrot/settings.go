package mandelbrot

import (
	"fmt"
	"runtime"

	"github.com/BrugadaSyndrome/bslogger"
	"github.com/besen/fractiles/palette"
	"github.com/besen/fractiles/tile"
)

type Settings struct {
	logger bslogger.Logger

	// Anchors takes precedence over ControlColors when both are set
	Anchors       []anchorSettings
	CenterX       float64
	CenterY       float64
	ControlColors []string
	JuliaImag     float64
	JuliaReal     float64
	MaxIterations int
	Mode          Mode
	Parallelism   int
	SuperSampling int
	TilePixels    int
	TileSize      float64
}

func (s *Settings) Verify() error {
	s.logger = bslogger.NewLogger("MandelbrotSettings", bslogger.Normal, nil)

	if len(s.Anchors) == 0 && len(s.ControlColors) == 0 {
		s.ControlColors = make([]string, 0, len(palette.DefaultControlColors))
		for _, c := range palette.DefaultControlColors {
			s.ControlColors = append(s.ControlColors, c.Hex())
		}
		s.logger.Info("No control colors given, using the default gradient.")
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = 256
	}
	if s.Parallelism < 1 {
		s.Parallelism = runtime.GOMAXPROCS(0)
	}
	if s.SuperSampling < 1 {
		s.SuperSampling = 1
	}
	if s.TilePixels <= 0 {
		s.TilePixels = 256
	}
	if s.TileSize <= 0 {
		s.TileSize = 4
	}

	if err := s.Params().Verify(); err != nil {
		return err
	}
	if _, err := s.Palette(); err != nil {
		return err
	}
	if _, err := s.Mapper().Map(tile.Coordinate{}); err != nil {
		return err
	}
	return nil
}

func (s *Settings) String() string {
	output := "\nMandelbrot settings\n"
	output += fmt.Sprintf("Mode: %s\n", s.Mode)
	output += fmt.Sprintf("Max Iterations: %d\n", s.MaxIterations)
	if s.Mode == Julia {
		output += fmt.Sprintf("Julia Constant: %v\n", complex(s.JuliaReal, s.JuliaImag))
	}
	output += fmt.Sprintf("Center: (%g, %g)\n", s.CenterX, s.CenterY)
	output += fmt.Sprintf("Tile Size: %g\n", s.TileSize)
	output += fmt.Sprintf("Tile Pixels: %d\n", s.TilePixels)
	output += fmt.Sprintf("Super Sampling: %d\n", s.SuperSampling)
	output += fmt.Sprintf("Parallelism: %d\n", s.Parallelism)
	return output
}

func (s *Settings) Params() Params {
	return Params{
		MaxIterations: s.MaxIterations,
		Mode:          s.Mode,
		Julia:         complex(s.JuliaReal, s.JuliaImag),
	}
}

// Mapper places the root tile so that it is centered on (CenterX, CenterY).
func (s *Settings) Mapper() tile.Mapper {
	return tile.Mapper{
		TileSize: s.TileSize,
		OriginX:  s.CenterX - s.TileSize/2,
		OriginY:  s.CenterY - s.TileSize/2,
	}
}

func (s *Settings) Palette() (palette.Palette, error) {
	if len(s.Anchors) > 0 {
		anchors := make([]palette.Anchor, len(s.Anchors))
		for i := range s.Anchors {
			anchor, err := s.Anchors[i].Anchor()
			if err != nil {
				return palette.Palette{}, fmt.Errorf("anchor %d: %w", i, err)
			}
			anchors[i] = anchor
		}
		return palette.InterpolateAnchors(anchors)
	}

	colors, err := palette.ParseHexList(s.ControlColors)
	if err != nil {
		return palette.Palette{}, err
	}
	return palette.Interpolate(colors)
}
