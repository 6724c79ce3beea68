package task

import (
	"fmt"

	"github.com/besen/fractiles/tile"
)

// Result is one rendered tile, encoded in the run's image format. Error is set instead of Image
// when the worker could not render the tile.
type Result struct {
	Coordinate tile.Coordinate
	Error      string
	Image      []byte
}

func (r *Result) String() string {
	output := "{Result "
	output += fmt.Sprintf("Coordinate: %s ", r.Coordinate.String())
	if r.Error != "" {
		output += fmt.Sprintf("Error: %s}", r.Error)
		return output
	}
	output += fmt.Sprintf("Bytes: %d}", len(r.Image))
	return output
}
