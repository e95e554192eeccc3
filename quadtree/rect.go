package quadtree

import (
	"fmt"
	"math"
)

// Rect is an axis-aligned rectangle in world units. X and Y are the top-left
// corner.
type Rect struct {
	X      float64 `json:"x"      yaml:"x"`
	Y      float64 `json:"y"      yaml:"y"`
	Width  float64 `json:"width"  yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// NewRect returns a rectangle. Negative extents are clamped to 0.
func NewRect(x, y, width, height float64) Rect {
	return Rect{
		X:      x,
		Y:      y,
		Width:  math.Max(width, 0),
		Height: math.Max(height, 0),
	}
}

func (r Rect) Right() float64 {
	return r.X + r.Width
}

func (r Rect) Bottom() float64 {
	return r.Y + r.Height
}

func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Valid reports whether the rectangle has finite coordinates and
// non-negative extents.
func (r Rect) Valid() bool {
	for _, v := range [...]float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Width >= 0 && r.Height >= 0
}

// Contains reports whether o lies entirely within r, edges included.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X &&
		o.Y >= r.Y &&
		o.Right() <= r.Right() &&
		o.Bottom() <= r.Bottom()
}

// Intersects reports whether r and o share area. Rectangles that only touch
// along an edge do not intersect. On an axis where either rectangle has zero
// extent the closed interval is used instead, so a zero-area rectangle
// intersects every rectangle covering it, including on its edges.
func (r Rect) Intersects(o Rect) bool {
	return overlaps(r.X, r.Right(), o.X, o.Right()) &&
		overlaps(r.Y, r.Bottom(), o.Y, o.Bottom())
}

// Touches reports whether r and o intersect or share an edge or corner.
func (r Rect) Touches(o Rect) bool {
	return r.X <= o.Right() && o.X <= r.Right() &&
		r.Y <= o.Bottom() && o.Y <= r.Bottom()
}

// Expand grows the rectangle by margin on every side. A negative margin
// shrinks it, never below zero extents.
func (r Rect) Expand(margin float64) Rect {
	return NewRect(r.X-margin, r.Y-margin, r.Width+2*margin, r.Height+2*margin)
}

// Quadrants splits the rectangle into its NW, NE, SW and SE quarters. The
// quarters share the midpoint edges exactly.
func (r Rect) Quadrants() [4]Rect {
	midX := r.X + r.Width/2
	midY := r.Y + r.Height/2
	right := r.Right()
	bottom := r.Bottom()

	return [4]Rect{
		{X: r.X, Y: r.Y, Width: midX - r.X, Height: midY - r.Y},
		{X: midX, Y: r.Y, Width: right - midX, Height: midY - r.Y},
		{X: r.X, Y: midY, Width: midX - r.X, Height: bottom - midY},
		{X: midX, Y: midY, Width: right - midX, Height: bottom - midY},
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g,%g,%g)", r.X, r.Y, r.Width, r.Height)
}

func overlaps(a0, a1, b0, b1 float64) bool {
	if a0 == a1 || b0 == b1 {
		return a0 <= b1 && b0 <= a1
	}
	return a0 < b1 && b0 < a1
}
