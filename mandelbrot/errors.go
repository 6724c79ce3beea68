package mandelbrot

import "errors"

var (
	ErrInvalidIterations = errors.New("max iterations must be positive")
	ErrUnknownMode       = errors.New("unknown fractal mode")
)
