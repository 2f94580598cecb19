package rocket

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	ambientTemperature = 300.0  // K
	burnTemperature    = 2000.0 // K, rise at full throttle
)

// Thruster defines a rocket engine.
type Thruster interface {
	// Returns the thrust in Newtons at full throttle.
	MaxThrust() float64
	// Returns the thrust in Newtons and isp in seconds at a throttle in [0, 1].
	Thrust(throttle float64) (thrust, isp float64)
}

/* Available Thrusters */

// LiquidEngine is a throttleable engine with a constant specific impulse.
type LiquidEngine struct {
	maxThrust float64
	isp       float64
}

// MaxThrust implements the Thruster interface.
func (t *LiquidEngine) MaxThrust() float64 {
	return t.maxThrust
}

// Thrust implements the Thruster interface.
func (t *LiquidEngine) Thrust(throttle float64) (thrust, isp float64) {
	return clamp(throttle, 0, 1) * t.maxThrust, t.isp
}

// NewLiquidEngine returns a throttleable liquid engine.
func NewLiquidEngine(maxThrust, isp float64) *LiquidEngine {
	return &LiquidEngine{maxThrust, isp}
}

// GenericEngine is an on/off engine: any positive throttle gives the full thrust.
type GenericEngine struct {
	thrust float64
	isp    float64
}

// MaxThrust implements the Thruster interface.
func (t *GenericEngine) MaxThrust() float64 {
	return t.thrust
}

// Thrust implements the Thruster interface.
func (t *GenericEngine) Thrust(throttle float64) (thrust, isp float64) {
	if !(throttle > 0) {
		return 0, t.isp
	}
	return t.thrust, t.isp
}

// NewGenericEngine returns a generic on/off engine.
func NewGenericEngine(thrust, isp float64) *GenericEngine {
	return &GenericEngine{thrust, isp}
}

// NewThruster returns the engine selected by the rocket configuration.
func NewThruster(conf RocketConfig) Thruster {
	if conf.Engine == EngineGeneric {
		return NewGenericEngine(conf.MaxThrust, conf.SpecificImpulse)
	}
	return NewLiquidEngine(conf.MaxThrust, conf.SpecificImpulse)
}

// PropulsionOutput is the result of firing an Engine for one step.
type PropulsionOutput struct {
	Force        r3.Vec  // world frame, N
	Thrust       float64 // N
	FuelFlow     float64 // kg/s
	FuelConsumed float64 // kg
	FlameOut     bool
}

// Engine mounts a Thruster along the body axis of the rocket.
type Engine struct {
	thruster Thruster
}

// NewEngine returns an Engine firing the given thruster.
func NewEngine(th Thruster) Engine {
	return Engine{th}
}

// MaxThrust returns the thrust of the mounted thruster at full throttle.
func (e Engine) MaxThrust() float64 {
	return e.thruster.MaxThrust()
}

// Thrust fires the engine for dt seconds. No thrust is produced without fuel, and
// the fuel consumed never exceeds the fuel remaining.
func (e Engine) Thrust(throttle, fuel float64, orientation quat.Number, dt float64) PropulsionOutput {
	if !(fuel > 0) {
		return PropulsionOutput{FlameOut: true}
	}
	thrust, isp := e.thruster.Thrust(clamp(throttle, 0, 1))
	if !(thrust > 0) || !finite(thrust) {
		return PropulsionOutput{}
	}
	out := PropulsionOutput{
		Force:  r3.Scale(thrust, rotate(orientation, bodyAxis)),
		Thrust: thrust,
	}
	if isp > 0 {
		out.FuelFlow = thrust / (isp * StandardGravity)
	}
	if dt > 0 {
		out.FuelConsumed = math.Min(out.FuelFlow*dt, fuel)
	}
	return out
}

// EngineTemperature returns the nozzle temperature in Kelvin at the given throttle.
func EngineTemperature(throttle float64) float64 {
	return ambientTemperature + clamp(throttle, 0, 1)*burnTemperature
}
