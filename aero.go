package rocket

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// VelocityEpsilon is the airspeed in m/s below which no aerodynamic force is produced.
const VelocityEpsilon = 0.1

// AeroForces are the aerodynamic loads on the rocket.
type AeroForces struct {
	Drag            r3.Vec  // world frame, N
	Lift            r3.Vec  // world frame, N
	Torque          r3.Vec  // body frame, N·m
	AngleOfAttack   float64 // rad
	DynamicPressure float64 // Pa
	Mach            float64
}

// AeroModel computes drag, lift and the restoring torque of a slender body.
type AeroModel struct {
	cd        float64
	area      float64
	liftSlope float64
	stall     float64 // rad
	cpOffset  float64 // m, positive when the center of pressure is behind the center of mass
	transonic bool
}

// NewAeroModel returns the aerodynamic model of the given rocket.
func NewAeroModel(conf RocketConfig) AeroModel {
	return AeroModel{
		cd:        conf.DragCoefficient,
		area:      conf.ReferenceArea,
		liftSlope: conf.LiftSlope,
		stall:     Deg2rad(conf.StallAngle),
		cpOffset:  conf.CPOffset,
		transonic: conf.TransonicDrag,
	}
}

// BaseDragCoefficient returns the subsonic drag coefficient.
func (m AeroModel) BaseDragCoefficient() float64 {
	return m.cd
}

// WithDragCoefficient returns a copy of the model with another subsonic drag coefficient.
func (m AeroModel) WithDragCoefficient(cd float64) AeroModel {
	m.cd = cd
	return m
}

// LiftCoefficient is linear in the angle of attack up to the stall angle and constant beyond.
func (m AeroModel) LiftCoefficient(α float64) float64 {
	return m.liftSlope * math.Min(math.Abs(α), m.stall)
}

// DragCoefficient returns the drag coefficient at the given Mach number.
func (m AeroModel) DragCoefficient(mach float64) float64 {
	if !m.transonic {
		return m.cd
	}
	return m.cd * machDragFactor(mach)
}

// machDragFactor is the transonic drag rise relative to subsonic drag: flat up to
// Mach 0.8, peaking at Mach 1 and decaying in the supersonic range.
func machDragFactor(mach float64) float64 {
	switch {
	case mach < 0.8:
		return 1
	case mach < 1.0:
		return 1 + (mach-0.8)/0.2*1.5
	case mach <= 1.2:
		return 2.5 - (mach-1.0)/0.2*0.25
	case mach <= 3.0:
		return 2.25 - (mach-1.2)/1.8*0.5
	case mach <= 5.0:
		return 1.75 - (mach-3.0)/2.0*0.2
	default:
		return 1.55
	}
}

// Forces returns the aerodynamic loads for a world frame velocity and a body-to-world orientation.
func (m AeroModel) Forces(velocity r3.Vec, orientation quat.Number, air Air) AeroForces {
	speed := r3.Norm(velocity)
	if !(speed >= VelocityEpsilon) || !finite(speed) {
		return AeroForces{}
	}
	vHat := r3.Scale(1/speed, velocity)
	q := 0.5 * air.Density * speed * speed
	mach := speed / math.Max(air.SpeedOfSound, minSpeedOfSound)
	out := AeroForces{DynamicPressure: q, Mach: mach}
	out.Drag = r3.Scale(-q*m.DragCoefficient(mach)*m.area, vHat)

	axis := rotate(orientation, bodyAxis)
	cosα := clamp(r3.Dot(axis, vHat), -1, 1)
	out.AngleOfAttack = math.Acos(cosα)
	normal := r3.Sub(axis, r3.Scale(cosα, vHat))
	if r3.Norm(normal) < 1e-9 || q == 0 {
		// Flying along the axis: no lift and no torque.
		return out
	}
	cl := m.LiftCoefficient(out.AngleOfAttack)
	out.Lift = r3.Scale(q*cl*m.area, unit(normal))
	pivot := unit(r3.Cross(axis, vHat))
	out.Torque = rotateInv(orientation, r3.Scale(m.cpOffset*q*m.area*cl, pivot))
	return out
}
