package math

import "math"

// Quat is a rotation quaternion with W as the scalar part, the component
// order glTF and RSM keyframes store.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity is the quaternion with no rotation.
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// QuatXYZW builds a Quat from an [x y z w] array.
func QuatXYZW(q [4]float32) Quat {
	return Quat{X: q[0], Y: q[1], Z: q[2], W: q[3]}
}

// Normalize scales q to unit length. Zero-length input, as written by
// exporters that leave rotation unset, becomes the identity.
func (q Quat) Normalize() Quat {
	n := math.Sqrt(float64(q.X)*float64(q.X) + float64(q.Y)*float64(q.Y) +
		float64(q.Z)*float64(q.Z) + float64(q.W)*float64(q.W))
	if n < 1e-4 {
		return QuatIdentity()
	}
	inv := float32(1 / n)
	return Quat{X: q.X * inv, Y: q.Y * inv, Z: q.Z * inv, W: q.W * inv}
}

// ToMat4 returns the column-major rotation matrix of the normalized q.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()
	x2, y2, z2 := q.X+q.X, q.Y+q.Y, q.Z+q.Z
	xx, yy, zz := q.X*x2, q.Y*y2, q.Z*z2
	xy, xz, yz := q.X*y2, q.X*z2, q.Y*z2
	wx, wy, wz := q.W*x2, q.W*y2, q.W*z2

	var m Mat4
	// column 0
	m[0], m[1], m[2] = 1-(yy+zz), xy+wz, xz-wy
	// column 1
	m[4], m[5], m[6] = xy-wz, 1-(xx+zz), yz+wx
	// column 2
	m[8], m[9], m[10] = xz+wy, yz-wx, 1-(xx+yy)
	m[15] = 1
	return m
}
