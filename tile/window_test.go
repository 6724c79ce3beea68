package tile

import (
	"errors"
	"math"
	"testing"
)

func TestMapTileRoot(t *testing.T) {
	w, err := MapTile(2, Coordinate{X: 0, Y: 0, Z: 0})
	if err != nil {
		t.Fatalf("MapTile: %v", err)
	}
	if w != (Window{XMin: 0, XMax: 2, YMin: 0, YMax: 2}) {
		t.Errorf("MapTile(2, root) = %v", w)
	}
	if w.Width() != 2 || w.Height() != 2 {
		t.Errorf("extent = %v x %v, want 2 x 2", w.Width(), w.Height())
	}
}

func TestMapTile(t *testing.T) {
	tests := []struct {
		name     string
		tileSize float64
		c        Coordinate
		want     Window
	}{
		{"level 1 top left", 2, Coordinate{X: 0, Y: 0, Z: 1}, Window{0, 1, 0, 1}},
		{"level 1 bottom right", 2, Coordinate{X: 1, Y: 1, Z: 1}, Window{1, 2, 1, 2}},
		{"level 3", 4, Coordinate{X: 5, Y: 2, Z: 3}, Window{2.5, 3, 1, 1.5}},
		{"negative index", 2, Coordinate{X: -1, Y: -2, Z: 1}, Window{-1, 0, -2, -1}},
		{"fractional zoom", 2, Coordinate{X: 1, Y: 0, Z: 0.5}, Window{math.Sqrt2, 2 * math.Sqrt2, 0, math.Sqrt2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MapTile(tt.tileSize, tt.c)
			if err != nil {
				t.Fatalf("MapTile: %v", err)
			}
			const eps = 1e-12
			if math.Abs(got.XMin-tt.want.XMin) > eps || math.Abs(got.XMax-tt.want.XMax) > eps ||
				math.Abs(got.YMin-tt.want.YMin) > eps || math.Abs(got.YMax-tt.want.YMax) > eps {
				t.Errorf("MapTile(%v, %v) = %v, want %v", tt.tileSize, tt.c, got, tt.want)
			}
		})
	}
}

func TestChildrenQuarterParent(t *testing.T) {
	mappers := []Mapper{
		{TileSize: 2},
		{TileSize: 3},
		{TileSize: 4, OriginX: -2, OriginY: -2},
	}
	parents := []Coordinate{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 1},
		{X: 3, Y: 6, Z: 3},
		{X: 17, Y: 40, Z: 6},
	}

	for _, m := range mappers {
		for _, parent := range parents {
			pw, err := m.Map(parent)
			if err != nil {
				t.Fatalf("Map(%v): %v", parent, err)
			}
			for _, child := range parent.Children() {
				cw, err := m.Map(child)
				if err != nil {
					t.Fatalf("Map(%v): %v", child, err)
				}
				if !pw.Contains(cw) {
					t.Errorf("%+v: child %v window %v not inside parent %v", m, child, cw, pw)
				}
				if ratio := cw.Area() / pw.Area(); math.Abs(ratio-0.25) > 1e-9 {
					t.Errorf("%+v: child %v area ratio %v, want 0.25", m, child, ratio)
				}
				if back, ok := child.Parent(); !ok || back != parent {
					t.Errorf("Parent(%v) = %v, %v; want %v", child, back, ok, parent)
				}
			}
		}
	}
}

func TestChildrenTileParentExactly(t *testing.T) {
	m := Mapper{TileSize: 4, OriginX: -2, OriginY: -2}
	parent := Coordinate{X: 2, Y: 1, Z: 2}
	pw, _ := m.Map(parent)
	children := parent.Children()

	topLeft, _ := m.Map(children[0])
	bottomRight, _ := m.Map(children[3])
	if topLeft.XMin != pw.XMin || topLeft.YMin != pw.YMin {
		t.Errorf("top left child %v does not share the parent corner %v", topLeft, pw)
	}
	if bottomRight.XMax != pw.XMax || bottomRight.YMax != pw.YMax {
		t.Errorf("bottom right child %v does not share the parent corner %v", bottomRight, pw)
	}
	if topLeft.XMax != bottomRight.XMin || topLeft.YMax != bottomRight.YMin {
		t.Errorf("children %v and %v do not meet in the middle", topLeft, bottomRight)
	}
}

func TestParentOfRoot(t *testing.T) {
	if _, ok := (Coordinate{}).Parent(); ok {
		t.Error("root tile reported a parent")
	}
	if p, ok := (Coordinate{X: -1, Y: -3, Z: 2}).Parent(); !ok || p != (Coordinate{X: -1, Y: -2, Z: 1}) {
		t.Errorf("Parent of negative tile = %v, %v", p, ok)
	}
}

func TestMapErrors(t *testing.T) {
	tests := []struct {
		name    string
		m       Mapper
		c       Coordinate
		wantErr error
	}{
		{"zero tile size", Mapper{TileSize: 0}, Coordinate{}, ErrDegenerateWindow},
		{"negative tile size", Mapper{TileSize: -2}, Coordinate{}, ErrDegenerateWindow},
		{"nan tile size", Mapper{TileSize: math.NaN()}, Coordinate{}, ErrDegenerateWindow},
		{"infinite tile size", Mapper{TileSize: math.Inf(1)}, Coordinate{}, ErrDegenerateWindow},
		{"negative zoom", Mapper{TileSize: 2}, Coordinate{Z: -1}, ErrInvalidZoom},
		{"nan zoom", Mapper{TileSize: 2}, Coordinate{Z: math.NaN()}, ErrInvalidZoom},
		{"underflowing zoom", Mapper{TileSize: 2}, Coordinate{X: 1, Z: 2000}, ErrDegenerateWindow},
		{"lost precision", Mapper{TileSize: 2, OriginX: 1e20}, Coordinate{X: 1, Z: 10}, ErrDegenerateWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.m.Map(tt.c)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Map(%v) error = %v, want %v", tt.c, err, tt.wantErr)
			}
		})
	}
}

func TestPixelMapping(t *testing.T) {
	w := Window{XMin: -2, XMax: 2, YMin: -1, YMax: 3}

	if got := w.Pixel(0, 0, 4, 4); got != complex(-1.5, -0.5) {
		t.Errorf("Pixel(0, 0) = %v, want (-1.5-0.5i)", got)
	}
	if got := w.Pixel(3, 3, 4, 4); got != complex(1.5, 2.5) {
		t.Errorf("Pixel(3, 3) = %v, want (1.5+2.5i)", got)
	}

	// Top of the tile is YMin, the left edge XMin
	if got := w.NDC(-1, 1); got != complex(w.XMin, w.YMin) {
		t.Errorf("NDC(-1, 1) = %v, want top left corner", got)
	}
	if got := w.NDC(1, -1); got != complex(w.XMax, w.YMax) {
		t.Errorf("NDC(1, -1) = %v, want bottom right corner", got)
	}
	if got := w.NDC(0, 0); got != complex(0, 1) {
		t.Errorf("NDC(0, 0) = %v, want center", got)
	}
}

func TestLocate(t *testing.T) {
	m := Mapper{TileSize: 4, OriginX: -2, OriginY: -2}
	tests := []struct {
		point complex128
		z     int
		want  Coordinate
	}{
		{complex(0, 0), 0, Coordinate{X: 0, Y: 0, Z: 0}},
		{complex(-0.5, 0.1), 1, Coordinate{X: 0, Y: 1, Z: 1}},
		{complex(1.9, -1.9), 2, Coordinate{X: 3, Y: 0, Z: 2}},
		{complex(-2.5, 0), 1, Coordinate{X: -1, Y: 1, Z: 1}},
	}
	for _, tt := range tests {
		got := m.Locate(tt.point, tt.z)
		if got != tt.want {
			t.Errorf("Locate(%v, %d) = %v, want %v", tt.point, tt.z, got, tt.want)
		}
		w, err := m.Map(got)
		if err != nil {
			t.Fatalf("Map(%v): %v", got, err)
		}
		if real(tt.point) < w.XMin || real(tt.point) >= w.XMax || imag(tt.point) < w.YMin || imag(tt.point) >= w.YMax {
			t.Errorf("point %v outside located window %v", tt.point, w)
		}
	}
}

func TestLevelSize(t *testing.T) {
	for z, want := range []int{1, 2, 4, 8, 16} {
		if got := LevelSize(z); got != want {
			t.Errorf("LevelSize(%d) = %d, want %d", z, got, want)
		}
	}
}
