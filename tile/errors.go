package tile

import "errors"

var (
	ErrDegenerateWindow = errors.New("degenerate tile window")
	ErrInvalidZoom      = errors.New("zoom level must be a finite non-negative number")
)
