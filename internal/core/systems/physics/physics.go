package physics

import "math"

// Vector2 is a 2D vector in simulation space. It is a plain value: every
// operation returns a new vector and none of them can fail. NaN and Inf
// propagate per IEEE-754.
type Vector2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Zero is the zero vector.
var Zero = Vector2{}

// Vec2 is shorthand for Vector2{X: x, Y: y}.
func Vec2(x, y float64) Vector2 { return Vector2{X: x, Y: y} }

func (v Vector2) Add(o Vector2) Vector2 { return Vector2{X: v.X + o.X, Y: v.Y + o.Y} }

func (v Vector2) Sub(o Vector2) Vector2 { return Vector2{X: v.X - o.X, Y: v.Y - o.Y} }

func (v Vector2) Scale(s float64) Vector2 { return Vector2{X: v.X * s, Y: v.Y * s} }

// Neg returns -v. Negation is exact in floating point.
func (v Vector2) Neg() Vector2 { return Vector2{X: -v.X, Y: -v.Y} }

func (v Vector2) Dot(o Vector2) float64 { return v.X*o.X + v.Y*o.Y }

// Cross returns the z component of the 3D cross product of v and o.
func (v Vector2) Cross(o Vector2) float64 { return v.X*o.Y - v.Y*o.X }

func (v Vector2) LengthSq() float64 { return v.X*v.X + v.Y*v.Y }

// Length returns the Euclidean length of v.
func (v Vector2) Length() float64 { return math.Hypot(v.X, v.Y) }

// DistanceTo returns the Euclidean distance between v and o.
func (v Vector2) DistanceTo(o Vector2) float64 { return o.Sub(v).Length() }

// IsFinite reports whether both components are neither NaN nor Inf.
func (v Vector2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// Distance2 computes Euclidean distance between two 2D points.
func Distance2(x1, y1, x2, y2 float64) float64 { return math.Hypot(x2-x1, y2-y1) }

// Mean returns the arithmetic mean of the given positions, or Zero for none.
func Mean[T Locatable](items []T) Vector2 {
	if len(items) == 0 {
		return Zero
	}
	var sum Vector2
	for _, it := range items {
		sum = sum.Add(it.Position())
	}
	return sum.Scale(1 / float64(len(items)))
}
