package rocket

import (
	"fmt"
	"math"

	kitlog "github.com/go-kit/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/MalikTzys/Rocket-With-Aerodynamic/integrator"
)

// groundContactSpeed is the impact speed in m/s above which a ground contact is reported.
const groundContactSpeed = 1.0

/* Handles the flight dynamics. */

// Flight owns the state of one rocket and advances it tick by tick. It is not safe
// for concurrent use: other goroutines talk to it through a CommandQueue and read
// it through a SnapshotStore.
type Flight struct {
	conf   Config
	atm    Atmosphere
	aero   AeroModel
	engine Engine
	logger kitlog.Logger

	state    RigidBodyState
	clock    Clock
	throttle float64
	input    r3.Vec // pitch, roll and yaw inputs about the body X, Y and Z axes
	forces   Forces
	maxQ     float64
	events   []Event
}

// Option customizes a Flight.
type Option func(*Flight)

// WithAtmosphere replaces the configured atmosphere model.
func WithAtmosphere(atm Atmosphere) Option {
	return func(f *Flight) { f.atm = atm }
}

// WithThruster mounts th in place of the engine selected by the configuration.
func WithThruster(th Thruster) Option {
	return func(f *Flight) { f.engine = NewEngine(th) }
}

// NewFlight returns a new flight on the pad. A nil logger discards all logs.
func NewFlight(conf Config, logger kitlog.Logger, opts ...Option) (*Flight, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	f := &Flight{
		conf:   conf,
		atm:    NewAtmosphere(conf.Atmosphere),
		logger: kitlog.With(logger, "flight", conf.Name),
		clock:  Clock{TimeScale: clamp(conf.Sim.TimeScale, 0, conf.Sim.MaxTimeScale)},
	}
	opts = append([]Option{WithThruster(NewThruster(conf.Rocket))}, opts...)
	for _, opt := range opts {
		opt(f)
	}
	f.reinit()
	return f, nil
}

// reinit puts the rocket back on the pad. The time scale is a user preference and is kept.
func (f *Flight) reinit() {
	f.aero = NewAeroModel(f.conf.Rocket)
	f.state = initialState(f.conf.Rocket)
	f.clock.Time = 0
	f.clock.Paused = false
	f.throttle = clamp(f.conf.Rocket.Throttle, 0, 1)
	f.input = r3.Vec{}
	f.maxQ = 0
	f.forces = f.derive(f.state, 0).forces
}

// Config returns the configuration of this flight.
func (f *Flight) Config() Config {
	return f.conf
}

// State returns a copy of the rigid body state.
func (f *Flight) State() RigidBodyState {
	return f.state
}

// Clock returns a copy of the simulation clock.
func (f *Flight) Clock() Clock {
	return f.clock
}

// Throttle returns the current throttle setting.
func (f *Flight) Throttle() float64 {
	return f.throttle
}

// DragCoefficient returns the current subsonic drag coefficient.
func (f *Flight) DragCoefficient() float64 {
	return f.aero.BaseDragCoefficient()
}

// Status returns whether the flight is running or paused.
func (f *Flight) Status() Status {
	if f.clock.Paused {
		return Paused
	}
	return Running
}

// Reset reinitializes the flight. Resetting twice is the same as resetting once.
func (f *Flight) Reset() {
	f.reinit()
	f.emit(EventReset, "")
	f.logger.Log("level", "info", "subsys", "sim", "status", "reset")
}

// Pause freezes the flight.
func (f *Flight) Pause() {
	if f.clock.Paused {
		return
	}
	f.clock.Paused = true
	f.emit(EventPaused, "")
	f.logger.Log("level", "info", "subsys", "sim", "status", "paused", "t(s)", f.clock.Time)
}

// Resume unfreezes the flight.
func (f *Flight) Resume() {
	if !f.clock.Paused {
		return
	}
	f.clock.Paused = false
	f.emit(EventResumed, "")
	f.logger.Log("level", "info", "subsys", "sim", "status", "resumed", "t(s)", f.clock.Time)
}

// TogglePause pauses a running flight and resumes a paused one.
func (f *Flight) TogglePause() {
	if f.clock.Paused {
		f.Resume()
	} else {
		f.Pause()
	}
}

// LogStatus logs the status of the flight.
func (f *Flight) LogStatus() {
	t := DeriveTelemetry(f.state, f.conf.Rocket, f.forces, f.atm)
	f.logger.Log("level", "info", "subsys", "sim", "t(s)", f.clock.Time, "alt(m)", t.Altitude, "speed(m/s)", t.Speed, "mach", t.Mach, "q(Pa)", t.DynamicPressure, "fuel(kg)", f.state.FuelMass)
}

// Tick applies the command and advances the flight by wallDt seconds of wall time
// scaled by the time scale. It never fails: invalid inputs are reported as events
// in the returned snapshot.
func (f *Flight) Tick(wallDt float64, cmd Command) Snapshot {
	if f.apply(cmd) {
		return f.snapshot()
	}
	if !finite(wallDt) || wallDt < 0 {
		f.emit(EventInvalidStep, fmt.Sprintf("wall time step %v", wallDt))
		f.logger.Log("level", "warning", "subsys", "sim", "message", "invalid wall time step", "dt", wallDt)
	} else if dt := f.clock.Step(wallDt); dt > 0 {
		f.advance(dt)
	}
	f.input = r3.Vec{}
	return f.snapshot()
}

// apply applies a command at the tick boundary and returns whether the flight was reset.
func (f *Flight) apply(cmd Command) bool {
	cmd = cmd.sanitized()
	if cmd.Reset {
		f.Reset()
		return true
	}
	if cmd.Pause {
		f.TogglePause()
	}
	if cmd.TimeScaleDelta != 0 {
		f.clock.TimeScale = clamp(f.clock.TimeScale+cmd.TimeScaleDelta, 0, f.conf.Sim.MaxTimeScale)
		f.logger.Log("level", "debug", "subsys", "ctrl", "time_scale", f.clock.TimeScale)
	}
	if cmd.ThrottleDelta != 0 {
		f.throttle = clamp(f.throttle+cmd.ThrottleDelta, 0, 1)
		f.logger.Log("level", "debug", "subsys", "ctrl", "throttle", f.throttle)
	}
	if cmd.DragDelta != 0 {
		rc := f.conf.Rocket
		f.aero = f.aero.WithDragCoefficient(clamp(f.aero.BaseDragCoefficient()+cmd.DragDelta, rc.MinDragCoefficient, rc.MaxDragCoefficient))
		f.logger.Log("level", "debug", "subsys", "ctrl", "cd", f.aero.BaseDragCoefficient())
	}
	if f.clock.Paused {
		return false
	}
	if cmd.MassDelta != 0 {
		f.state.DryMass = clamp(f.state.DryMass+cmd.MassDelta, f.conf.Rocket.MinDryMass, f.conf.Rocket.MaxDryMass)
		f.logger.Log("level", "debug", "subsys", "ctrl", "dry_mass(kg)", f.state.DryMass)
	}
	f.input = r3.Vec{X: cmd.Pitch, Y: cmd.Roll, Z: cmd.Yaw}
	return false
}

// advance integrates dt seconds of simulated time in equal sub-steps no longer than MaxStep.
func (f *Flight) advance(dt float64) {
	maxStep, maxSteps := f.conf.Sim.MaxStep, f.conf.Sim.MaxSubSteps
	// Counted in floating point: a huge dt would overflow an int.
	n := math.Ceil(dt/maxStep - 1e-9)
	var (
		steps int
		h     float64
	)
	if n > float64(maxSteps) {
		dropped := dt - float64(maxSteps)*maxStep
		f.emit(EventFrameSkip, fmt.Sprintf("dropped %.3fs of simulated time", dropped))
		f.logger.Log("level", "warning", "subsys", "sim", "message", "too many sub-steps", "dropped(s)", dropped)
		steps, h = maxSteps, maxStep
	} else {
		steps = max(int(n), 1)
		h = dt / float64(steps)
	}
	for i := 0; i < steps; i++ {
		var ok bool
		if f.conf.Sim.Scheme == SchemeRK4 {
			ok = f.stepRK4(h)
		} else {
			ok = f.stepEuler(h)
		}
		if !ok {
			// The remaining sub-steps would start from the same state.
			return
		}
	}
}

// dynamics are the loads and rates of a state.
type dynamics struct {
	forces       Forces
	accel        r3.Vec // world frame
	angularAccel r3.Vec // body frame
	fuelFlow     float64
	fuelConsumed float64
}

// derive computes the loads on the state s, burning for h seconds.
func (f *Flight) derive(s RigidBodyState, h float64) dynamics {
	mass := math.Max(s.TotalMass(), minMass)
	air := f.atm.At(s.Altitude())
	prop := f.engine.Thrust(f.throttle, s.FuelMass, s.Orientation, h)
	aero := f.aero.Forces(s.Velocity, s.Orientation, air)
	gravity := r3.Vec{Y: -f.conf.Sim.Gravity * mass}
	net := r3.Add(r3.Add(prop.Force, gravity), r3.Add(aero.Drag, aero.Lift))

	rc := f.conf.Rocket
	control := r3.Vec{
		X: f.input.X * rc.PitchYawTorque,
		Y: f.input.Y * rc.RollTorque,
		Z: f.input.Z * rc.PitchYawTorque,
	}
	torque := r3.Add(aero.Torque, control)
	inertia := principalInertia(mass, rc.Radius, rc.Length)

	var throttle float64
	if full := f.engine.MaxThrust(); full > 0 {
		throttle = prop.Thrust / full
	}
	return dynamics{
		forces: Forces{
			Thrust:   prop.Force,
			Drag:     aero.Drag,
			Lift:     aero.Lift,
			Gravity:  gravity,
			Net:      net,
			Accel:    r3.Scale(1/mass, net),
			Torque:   torque,
			Aero:     aero,
			Throttle: throttle,
		},
		accel:        r3.Scale(1/mass, net),
		angularAccel: angularAcceleration(inertia, s.AngularVelocity, torque),
		fuelFlow:     prop.FuelFlow,
		fuelConsumed: prop.FuelConsumed,
	}
}

// stepEuler advances the flight by h with the semi-implicit Euler scheme: the rates
// are updated first and the new rates move the position and attitude.
func (f *Flight) stepEuler(h float64) bool {
	s := f.state
	d := f.derive(s, h)
	s.AngularVelocity = r3.Add(s.AngularVelocity, r3.Scale(h, d.angularAccel))
	s.AngularVelocity = r3.Scale(math.Exp(-f.conf.Sim.AngularDamping*h), s.AngularVelocity)
	s.Velocity = r3.Add(s.Velocity, r3.Scale(h, d.accel))
	s.Position = r3.Add(s.Position, r3.Scale(h, s.Velocity))
	s.Orientation = integrateOrientation(s.Orientation, s.AngularVelocity, h)
	s.FuelMass -= d.fuelConsumed
	return f.commit(s, d.forces, h)
}

// stepRK4 advances the flight by h with the classical Runge-Kutta scheme.
func (f *Flight) stepRK4(h float64) bool {
	d := f.derive(f.state, 0)
	rk := &rk4Step{f: f, s0: f.state}
	solver, err := integrator.NewRK4(0, h, rk)
	if err != nil {
		f.emit(EventDiverged, err.Error())
		return false
	}
	solver.Solve()
	return f.commit(f.state.withVector(rk.out), d.forces, h)
}

// commit restores the invariants of a new state and makes it current, unless it is
// not finite in which case the step is rolled back and false is returned.
func (f *Flight) commit(s RigidBodyState, forces Forces, h float64) bool {
	prev := f.state
	s.Orientation = normalize(s.Orientation)
	s.FuelMass = clamp(s.FuelMass, 0, prev.FuelMass)
	if !s.Valid() || !finiteVec(forces.Net) {
		f.emit(EventDiverged, "non-finite state rolled back")
		f.logger.Log("level", "critical", "subsys", "sim", "message", "non-finite state rolled back", "t(s)", f.clock.Time)
		return false
	}
	if f.ground(&s) && forces.Net.Y < 0 {
		// Resting on the ground: the reaction cancels the downward load.
		forces.Normal = r3.Vec{Y: -forces.Net.Y}
		forces.Net.Y, forces.Accel.Y = 0, 0
	}
	if prev.FuelMass > 0 && s.FuelMass <= 0 {
		f.emit(EventFlameOut, "")
		f.logger.Log("level", "notice", "subsys", "prop", "status", "flame-out", "t(s)", f.clock.Time+h, "alt(m)", s.Altitude())
	}
	f.state = s
	f.forces = forces
	f.maxQ = math.Max(f.maxQ, forces.Aero.DynamicPressure)
	f.clock.Time += h
	return true
}

// ground keeps the rocket above the ground, bouncing it off with friction. It
// returns whether the rocket touched the ground.
func (f *Flight) ground(s *RigidBodyState) bool {
	floor := f.conf.Sim.GroundLevel
	if s.Position.Y >= floor {
		return false
	}
	s.Position.Y = floor
	if s.Velocity.Y >= 0 {
		return true
	}
	impact := -s.Velocity.Y
	s.Velocity.Y = impact * f.conf.Sim.Restitution
	s.Velocity.X *= f.conf.Sim.GroundFriction
	s.Velocity.Z *= f.conf.Sim.GroundFriction
	if impact > groundContactSpeed {
		f.emit(EventGroundContact, fmt.Sprintf("impact at %.1f m/s", impact))
		f.logger.Log("level", "warning", "subsys", "sim", "message", "ground contact", "impact(m/s)", impact)
	}
	return true
}

func (f *Flight) emit(kind EventKind, msg string) {
	f.events = append(f.events, Event{Kind: kind, Time: f.clock.Time, Message: msg})
}

// Snapshot returns a read-only copy of the flight without consuming pending events.
func (f *Flight) Snapshot() Snapshot {
	snap := f.view()
	snap.Events = append([]Event(nil), f.events...)
	return snap
}

// snapshot returns a read-only copy of the flight and hands over the pending events.
func (f *Flight) snapshot() Snapshot {
	snap := f.view()
	snap.Events = f.events
	f.events = nil
	return snap
}

func (f *Flight) view() Snapshot {
	t := DeriveTelemetry(f.state, f.conf.Rocket, f.forces, f.atm)
	t.MaxQ = f.maxQ
	t.OnGround = f.state.Position.Y <= f.conf.Sim.GroundLevel+0.01
	return Snapshot{
		Time:            f.clock.Time,
		Status:          f.Status(),
		TimeScale:       f.clock.TimeScale,
		Throttle:        f.throttle,
		DragCoefficient: f.aero.BaseDragCoefficient(),
		State:           f.state,
		Telemetry:       t,
	}
}

// rk4Step exposes a single sub-step of a Flight as an integrator.Integrable.
type rk4Step struct {
	f   *Flight
	s0  RigidBodyState
	out []float64
}

func (r *rk4Step) GetState() []float64 {
	return r.s0.vector()
}

func (r *rk4Step) SetState(i uint64, s []float64) {
	r.out = s
}

func (r *rk4Step) Stop(i uint64) bool {
	return i >= 1
}

func (r *rk4Step) Func(t float64, y []float64) []float64 {
	s := r.s0.withVector(y)
	s.Orientation = normalize(s.Orientation)
	d := r.f.derive(s, 0)
	qDot := quatRate(s.Orientation, s.AngularVelocity)
	ωDot := r3.Sub(d.angularAccel, r3.Scale(r.f.conf.Sim.AngularDamping, s.AngularVelocity))
	rate := RigidBodyState{
		Position:        s.Velocity,
		Velocity:        d.accel,
		Orientation:     qDot,
		AngularVelocity: ωDot,
		FuelMass:        -d.fuelFlow,
	}
	return rate.vector()
}
