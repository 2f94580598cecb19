package rocket

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	deg2rad = math.Pi / 180
	// StandardGravity is g0 in m/s², used for specific impulse and load factors.
	StandardGravity = 9.80665
)

// bodyAxis is the longitudinal (nose) axis of the rocket in the body frame.
var bodyAxis = r3.Vec{Y: 1}

// unit returns the unit vector of a given vector, or the zero vector if it has no length.
func unit(a r3.Vec) r3.Vec {
	n := r3.Norm(a)
	if scalar.EqualWithinAbs(n, 0, 1e-12) || !finite(n) {
		return r3.Vec{}
	}
	return r3.Scale(1/n, a)
}

// clamp bounds v to [lo, hi]. NaN is mapped to lo.
func clamp(v, lo, hi float64) float64 {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteVec(v r3.Vec) bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

func finiteQuat(q quat.Number) bool {
	return finite(q.Real) && finite(q.Imag) && finite(q.Jmag) && finite(q.Kmag)
}

// rotate returns v rotated from the body frame to the world frame by the unit quaternion q.
func rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vec{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// rotateInv returns v rotated from the world frame to the body frame.
func rotateInv(q quat.Number, v r3.Vec) r3.Vec {
	return rotate(quat.Conj(q), v)
}

// normalize returns q with unit norm. A degenerate quaternion becomes the identity.
func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < 1e-12 || !finite(n) {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// integrateOrientation advances q by the body rate ω over dt. The update is exact
// for a constant ω and the result is renormalized.
func integrateOrientation(q quat.Number, ω r3.Vec, dt float64) quat.Number {
	θ := r3.Norm(ω) * dt
	if θ < 1e-12 {
		return normalize(q)
	}
	axis := unit(ω)
	s, c := math.Sincos(θ / 2)
	dq := quat.Number{Real: c, Imag: s * axis.X, Jmag: s * axis.Y, Kmag: s * axis.Z}
	return normalize(quat.Mul(q, dq))
}

// quatRate returns dq/dt for the body rate ω.
func quatRate(q quat.Number, ω r3.Vec) quat.Number {
	return quat.Scale(0.5, quat.Mul(q, quat.Number{Imag: ω.X, Jmag: ω.Y, Kmag: ω.Z}))
}

// Deg2rad converts degrees to radians.
func Deg2rad(a float64) float64 {
	return a * deg2rad
}

// Rad2deg converts radians to degrees.
func Rad2deg(a float64) float64 {
	return a / deg2rad
}
