package physics

import (
	"math"

	"github.com/golang/geo/r3"
)

var (
	WorldUp      = r3.Vector{X: 0, Y: 1, Z: 0}
	WorldForward = r3.Vector{X: 0, Y: 0, Z: 1}
)

// LayerMask selects body categories. Bit n stands for layer n.
type LayerMask uint32

const Everything LayerMask = math.MaxUint32

// Layer returns the mask holding only layer n (0..31).
func Layer(n uint) LayerMask { return LayerMask(1) << (n & 31) }

// Contains reports whether every bit of other is set in m.
func (m LayerMask) Contains(other LayerMask) bool { return other != 0 && m&other == other }

// Vec3 is a shorthand constructor.
func Vec3(x, y, z float64) r3.Vector { return r3.Vector{X: x, Y: y, Z: z} }

// AngleDegrees returns the unsigned angle between a and b in [0,180].
// A zero-length operand yields 0.
func AngleDegrees(a, b r3.Vector) float64 {
	return a.Angle(b).Degrees()
}

// RotateAround rotates v around axis by degrees (right-hand rule, Rodrigues).
func RotateAround(v, axis r3.Vector, degrees float64) r3.Vector {
	k := axis.Normalize()
	if k.Norm2() == 0 {
		return v
	}
	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	return v.Mul(cos).
		Add(k.Cross(v).Mul(sin)).
		Add(k.Mul(k.Dot(v) * (1 - cos)))
}

// Basis returns two unit vectors orthogonal to normal and to each other.
func Basis(normal r3.Vector) (u, w r3.Vector) {
	n := normal.Normalize()
	if n.Norm2() == 0 {
		n = WorldUp
	}
	u = n.Ortho()
	w = n.Cross(u).Normalize()
	return u, w
}
