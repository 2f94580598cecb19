package rocket

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// axisAngle returns the unit quaternion of a rotation by θ about a unit axis (x, y, z).
func axisAngle(θ, x, y, z float64) quat.Number {
	s, c := math.Sincos(θ / 2)
	return quat.Number{Real: c, Imag: s * x, Jmag: s * y, Kmag: s * z}
}

// OrientationFromEuler returns the body-to-world quaternion for the pitch (about X),
// yaw (about Y) and roll (about Z) angles in radians, composed as yaw·pitch·roll.
// Zero angles leave the nose pointing up.
func OrientationFromEuler(pitch, yaw, roll float64) quat.Number {
	q := quat.Mul(axisAngle(yaw, 0, 1, 0), axisAngle(pitch, 1, 0, 0))
	return normalize(quat.Mul(q, axisAngle(roll, 0, 0, 1)))
}

// RotationMatrix returns the body-to-world direction cosine matrix of q.
func RotationMatrix(q quat.Number) *mat.Dense {
	q = normalize(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
}

// EulerAngles is the inverse of OrientationFromEuler, in radians.
func EulerAngles(q quat.Number) (pitch, yaw, roll float64) {
	m := RotationMatrix(q)
	pitch = math.Asin(clamp(-m.At(1, 2), -1, 1))
	yaw = math.Atan2(m.At(0, 2), m.At(2, 2))
	roll = math.Atan2(m.At(1, 0), m.At(1, 1))
	return
}
