package palette

import (
	"fmt"
	"math"
)

// Anchor pins a control color to a position in [0, 1].
type Anchor struct {
	Position float64
	Color    Color
}

// Interpolate builds a palette from control colors spaced evenly over [0, 1].
func Interpolate(colors []Color) (Palette, error) {
	if len(colors) < 2 {
		return Palette{}, fmt.Errorf("%w: got %d", ErrInsufficientControlColors, len(colors))
	}

	anchors := make([]Anchor, len(colors))
	for k, c := range colors {
		anchors[k] = Anchor{
			Position: float64(k) / float64(len(colors)-1),
			Color:    c,
		}
	}
	return sweep(anchors)
}

// InterpolateAnchors builds a palette from explicitly positioned anchors. The first anchor must sit
// at 0, the last at 1, and positions must strictly increase.
func InterpolateAnchors(anchors []Anchor) (Palette, error) {
	if len(anchors) < 2 {
		return Palette{}, fmt.Errorf("%w: got %d", ErrInsufficientControlColors, len(anchors))
	}
	first, last := anchors[0].Position, anchors[len(anchors)-1].Position
	if first != 0 || last != 1 {
		return Palette{}, fmt.Errorf("%w: first at %v, last at %v", ErrAnchorRange, first, last)
	}
	return sweep(anchors)
}

func sweep(anchors []Anchor) (Palette, error) {
	// Reject every bad segment up front, not only the ones the sweep happens to reach
	for k := 0; k < len(anchors)-1; k++ {
		if !(anchors[k+1].Position > anchors[k].Position) {
			return Palette{}, fmt.Errorf("%w: anchors %d and %d at %v and %v", ErrDegenerateSegment,
				k, k+1, anchors[k].Position, anchors[k+1].Position)
		}
	}

	var p Palette
	k := 0
	lastSegment := len(anchors) - 2
	for i := 0; i < Size; i++ {
		fraction := float64(i) / Size

		// The final segment's upper bound is inclusive
		for k < lastSegment && fraction >= anchors[k+1].Position {
			k++
		}

		from, to := anchors[k], anchors[k+1]
		ratio := (fraction - from.Position) / (to.Position - from.Position)
		p[i] = from.Color.stepTo(to.Color, ratio)
	}
	return p, nil
}

func lerpChannel(from uint8, to uint8, ratio float64) uint8 {
	// float64() forces rounding of the product so no fused multiply-add changes the floor
	v := math.Floor(float64(from) + float64((float64(to)-float64(from))*ratio))
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
