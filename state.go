package rocket

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const stateSize = 14

// RigidBodyState is the full dynamic state of the rocket. It is a value: copies never alias.
type RigidBodyState struct {
	Position        r3.Vec      `json:"position"`        // world frame, m, Y is up
	Orientation     quat.Number `json:"orientation"`     // body to world
	Velocity        r3.Vec      `json:"velocity"`        // world frame, m/s
	AngularVelocity r3.Vec      `json:"angularVelocity"` // body frame, rad/s
	DryMass         float64     `json:"dryMass"`         // kg
	FuelMass        float64     `json:"fuelMass"`        // kg
}

// TotalMass returns the dry mass plus the remaining fuel.
func (s RigidBodyState) TotalMass() float64 {
	return s.DryMass + s.FuelMass
}

// Altitude returns the height above the origin, in meters.
func (s RigidBodyState) Altitude() float64 {
	return s.Position.Y
}

// Axis returns the world frame direction of the nose.
func (s RigidBodyState) Axis() r3.Vec {
	return rotate(s.Orientation, bodyAxis)
}

// Valid returns whether every component of the state is finite.
func (s RigidBodyState) Valid() bool {
	return finiteVec(s.Position) && finiteVec(s.Velocity) && finiteVec(s.AngularVelocity) &&
		finiteQuat(s.Orientation) && finite(s.DryMass) && finite(s.FuelMass)
}

// vector packs the integrated part of the state. The dry mass is constant during a step.
func (s RigidBodyState) vector() []float64 {
	q := s.Orientation
	return []float64{
		s.Position.X, s.Position.Y, s.Position.Z,
		s.Velocity.X, s.Velocity.Y, s.Velocity.Z,
		q.Real, q.Imag, q.Jmag, q.Kmag,
		s.AngularVelocity.X, s.AngularVelocity.Y, s.AngularVelocity.Z,
		s.FuelMass,
	}
}

// withVector returns a copy of s with the integrated part set from v.
func (s RigidBodyState) withVector(v []float64) RigidBodyState {
	s.Position = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	s.Velocity = r3.Vec{X: v[3], Y: v[4], Z: v[5]}
	s.Orientation = quat.Number{Real: v[6], Imag: v[7], Jmag: v[8], Kmag: v[9]}
	s.AngularVelocity = r3.Vec{X: v[10], Y: v[11], Z: v[12]}
	s.FuelMass = v[13]
	return s
}

// initialState returns the state of the rocket on the pad: nose up and at rest.
func initialState(conf RocketConfig) RigidBodyState {
	return RigidBodyState{
		Position:    r3.Vec{Y: conf.InitialAltitude},
		Orientation: quat.Number{Real: 1},
		DryMass:     conf.DryMass,
		FuelMass:    conf.FuelMass,
	}
}

// principalInertia returns the principal moments of inertia about the body X, Y and Z
// axes of a solid cylinder of the given mass, with Y along its length.
func principalInertia(mass, radius, length float64) r3.Vec {
	transverse := mass * (3*radius*radius + length*length) / 12
	axial := mass * radius * radius / 2
	return r3.Vec{
		X: math.Max(transverse, 1e-9),
		Y: math.Max(axial, 1e-9),
		Z: math.Max(transverse, 1e-9),
	}
}

// angularAcceleration solves Euler's equations of rigid body motion in the principal frame.
func angularAcceleration(inertia, ω, torque r3.Vec) r3.Vec {
	mf1 := (inertia.Y - inertia.Z) / inertia.X
	mf2 := (inertia.Z - inertia.X) / inertia.Y
	mf3 := (inertia.X - inertia.Y) / inertia.Z
	return r3.Vec{
		X: torque.X/inertia.X + mf1*ω.Y*ω.Z,
		Y: torque.Y/inertia.Y + mf2*ω.Z*ω.X,
		Z: torque.Z/inertia.Z + mf3*ω.X*ω.Y,
	}
}
