// Package tile maps quadtree tile coordinates onto windows of the complex plane.
package tile

import (
	"fmt"
	"math"
)

// Coordinate addresses one node of the tile quadtree. Z is the zoom level; level z is split into
// 2^z by 2^z tiles and may be fractional for smooth zooming.
type Coordinate struct {
	X int
	Y int
	Z float64
}

func (c Coordinate) String() string {
	output := "{Coordinate "
	output += fmt.Sprintf("X: %d ", c.X)
	output += fmt.Sprintf("Y: %d ", c.Y)
	output += fmt.Sprintf("Z: %g}", c.Z)
	return output
}

// Verify reports zoom levels the mapping cannot use.
func (c Coordinate) Verify() error {
	if math.IsNaN(c.Z) || math.IsInf(c.Z, 0) || c.Z < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidZoom, c.Z)
	}
	return nil
}

// Children returns the four tiles one level down covering c, ordered top left, top right,
// bottom left, bottom right.
func (c Coordinate) Children() [4]Coordinate {
	x, y, z := 2*c.X, 2*c.Y, c.Z+1
	return [4]Coordinate{
		{X: x, Y: y, Z: z},
		{X: x + 1, Y: y, Z: z},
		{X: x, Y: y + 1, Z: z},
		{X: x + 1, Y: y + 1, Z: z},
	}
}

// Parent returns the tile one level up containing c. The root has no parent.
func (c Coordinate) Parent() (Coordinate, bool) {
	if c.Z < 1 {
		return Coordinate{}, false
	}
	// Arithmetic shift floors, so negative indices find their parent too
	return Coordinate{X: c.X >> 1, Y: c.Y >> 1, Z: c.Z - 1}, true
}

// LevelSize is the number of tiles along one axis at integer zoom level z.
func LevelSize(z int) int {
	return 1 << z
}
