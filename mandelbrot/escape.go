package mandelbrot

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/besen/fractiles/palette"
)

const (
	Mandelbrot Mode = iota
	Julia
)

// Mode selects what the plane point stands for: the iterated constant (Mandelbrot) or the
// starting value of the orbit (Julia).
type Mode int

func (m Mode) String() string {
	switch m {
	case Mandelbrot:
		return "mandelbrot"
	case Julia:
		return "julia"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mandelbrot":
		return Mandelbrot, nil
	case "julia":
		return Julia, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if m != Mandelbrot && m != Julia {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Params are the per-render inputs of the escape test.
type Params struct {
	MaxIterations int
	Mode          Mode
	// Julia is the fixed constant used in Julia mode
	Julia complex128
}

func (p Params) Verify() error {
	if p.MaxIterations <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIterations, p.MaxIterations)
	}
	if p.Mode != Mandelbrot && p.Mode != Julia {
		return fmt.Errorf("%w: %d", ErrUnknownMode, int(p.Mode))
	}
	return nil
}

// Result is the outcome of the escape test for one point. Iterations counts the iterates that
// stayed within radius 2; a Bounded result always has Iterations == MaxIterations.
type Result struct {
	Iterations int
	Bounded    bool
}

// https://en.wikipedia.org/wiki/Plotting_algorithms_for_the_Mandelbrot_set#Unoptimized_na%C3%AFve_escape_time_algorithm
func Evaluate(point complex128, p Params) Result {
	var zx, zy, cx, cy float64
	if p.Mode == Julia {
		zx, zy = real(point), imag(point)
		cx, cy = real(p.Julia), imag(p.Julia)
	} else {
		cx, cy = real(point), imag(point)
	}

	for i := 0; i < p.MaxIterations; i++ {
		// Every product is rounded on its own so no platform fuses them into a multiply-add
		xx := float64(zx * zx)
		yy := float64(zy * zy)
		xy := float64(zx * zy)
		x := xx - yy + cx
		y := xy + xy + cy

		// The escaping iterate is not committed or counted
		if float64(x*x)+float64(y*y) > 4.0 {
			return Result{Iterations: i}
		}
		zx, zy = x, y
	}
	return Result{Iterations: p.MaxIterations, Bounded: true}
}

// Colorize maps a result to a pixel: bounded points are opaque black, escaped points look up the
// palette at their fraction of the iteration budget.
func Colorize(r Result, maxIterations int, p *palette.Palette) color.RGBA {
	if r.Bounded {
		return palette.Black.RGBA()
	}
	return p.At(float64(r.Iterations) / float64(maxIterations)).RGBA()
}
