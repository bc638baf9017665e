package math

// Vec2 is a 2D vector, used for texture coordinates.
type Vec2 struct {
	X, Y float32
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

// Clamp01 clamps both components into [0, 1].
func (v Vec2) Clamp01() Vec2 {
	return Vec2{Clamp(v.X, 0, 1), Clamp(v.Y, 0, 1)}
}

// Clamp limits x to the range [lo, hi]. NaN clamps to lo.
func Clamp(x, lo, hi float32) float32 {
	if x != x || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
