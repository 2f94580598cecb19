package rocket

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// HighGLimit is the load factor above which the structure is in danger.
	HighGLimit = 8.0
	// CriticalDynamicPressure is the dynamic pressure in Pa above which the structure is in danger.
	CriticalDynamicPressure = 50000.0

	minMass = 1e-6 // kg
)

// Forces are the loads of the last integration step, in the world frame unless noted.
type Forces struct {
	Thrust   r3.Vec
	Drag     r3.Vec
	Lift     r3.Vec
	Gravity  r3.Vec
	Net      r3.Vec
	Normal   r3.Vec // ground reaction, already included in Net
	Accel    r3.Vec // m/s², Net over the mass of the step
	Torque   r3.Vec // body frame
	Aero     AeroForces
	Throttle float64 // effective throttle, zero after flame-out
}

// Warnings are the caution lights of the HUD.
type Warnings struct {
	FuelEmpty        bool `json:"fuelEmpty"`
	HighG            bool `json:"highG"`
	CriticalPressure bool `json:"criticalPressure"`
}

// Any returns whether any warning is set.
func (w Warnings) Any() bool {
	return w.FuelEmpty || w.HighG || w.CriticalPressure
}

// Telemetry are the quantities derived from the state for display and export.
type Telemetry struct {
	Speed             float64  `json:"speed"`           // m/s
	Altitude          float64  `json:"altitude"`        // m
	VerticalSpeed     float64  `json:"verticalSpeed"`   // m/s
	Mach              float64  `json:"mach"`            //
	DynamicPressure   float64  `json:"dynamicPressure"` // Pa
	MaxQ              float64  `json:"maxQ"`            // Pa, since reset
	GForce            float64  `json:"gForce"`          // g0
	TWR               float64  `json:"twr"`             //
	Acceleration      float64  `json:"acceleration"`    // m/s²
	Mass              float64  `json:"mass"`            // kg
	FuelFraction      float64  `json:"fuelFraction"`    // of the initial fuel
	Thrust            float64  `json:"thrust"`          // N
	Drag              float64  `json:"drag"`            // N
	Lift              float64  `json:"lift"`            // N
	AirDensity        float64  `json:"airDensity"`      // kg/m³
	AngleOfAttack     float64  `json:"angleOfAttack"`   // deg
	EngineTemperature float64  `json:"engineTemperature"`
	Pitch             float64  `json:"pitch"` // deg
	Yaw               float64  `json:"yaw"`   // deg
	Roll              float64  `json:"roll"`  // deg
	OnGround          bool     `json:"onGround"`
	Warnings          Warnings `json:"warnings"`
}

// DeriveTelemetry computes the telemetry of a state. It is a pure function of its
// inputs; MaxQ and OnGround are left for the caller which tracks them.
func DeriveTelemetry(s RigidBodyState, conf RocketConfig, f Forces, atm Atmosphere) Telemetry {
	air := atm.At(s.Altitude())
	speed := r3.Norm(s.Velocity)
	mass := math.Max(s.TotalMass(), minMass)
	thrust := r3.Norm(f.Thrust)
	accel := r3.Norm(f.Accel)
	t := Telemetry{
		Speed:             speed,
		Altitude:          s.Altitude(),
		VerticalSpeed:     s.Velocity.Y,
		Mach:              speed / math.Max(air.SpeedOfSound, minSpeedOfSound),
		DynamicPressure:   0.5 * air.Density * speed * speed,
		GForce:            accel / StandardGravity,
		TWR:               thrust / (mass * StandardGravity),
		Acceleration:      accel,
		Mass:              s.TotalMass(),
		Thrust:            thrust,
		Drag:              r3.Norm(f.Drag),
		Lift:              r3.Norm(f.Lift),
		AirDensity:        air.Density,
		AngleOfAttack:     Rad2deg(f.Aero.AngleOfAttack),
		EngineTemperature: EngineTemperature(f.Throttle),
	}
	if conf.FuelMass > 0 {
		t.FuelFraction = clamp(s.FuelMass/conf.FuelMass, 0, 1)
	}
	pitch, yaw, roll := EulerAngles(s.Orientation)
	t.Pitch, t.Yaw, t.Roll = Rad2deg(pitch), Rad2deg(yaw), Rad2deg(roll)
	t.Warnings = Warnings{
		FuelEmpty:        s.FuelMass <= 0,
		HighG:            t.GForce > HighGLimit,
		CriticalPressure: t.DynamicPressure > CriticalDynamicPressure,
	}
	return t
}
