package rocket

import (
	"bytes"
	"math"
	"strings"
	"testing"

	kitlog "github.com/go-kit/log"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

func newTestFlight(t *testing.T, conf Config, opts ...Option) *Flight {
	t.Helper()
	f, err := NewFlight(conf, nil, opts...)
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	return f
}

func countEvents(events []Event, kind EventKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func angleOfAttack(s RigidBodyState) float64 {
	return math.Acos(clamp(r3.Dot(s.Axis(), unit(s.Velocity)), -1, 1))
}

func TestNewFlightInvalidConfig(t *testing.T) {
	conf := DefaultConfig()
	conf.Rocket.DryMass = -1
	if _, err := NewFlight(conf, nil); err == nil {
		t.Fatal("expected an error for a negative dry mass")
	}
}

func TestFlightVerticalAscent(t *testing.T) {
	conf := DefaultConfig()
	conf.Rocket.MaxThrust = 75000
	conf.Rocket.Throttle = 1
	conf.Sim.MaxStep = 1
	f := newTestFlight(t, conf, WithAtmosphere(UniformAtmosphere{}))
	snap := f.Tick(1, Command{})
	s := snap.State
	if !scalar.EqualWithinAbs(s.Velocity.Y, 5.19, 1e-9) {
		t.Fatalf("v = %f m/s instead of 5.19 m/s", s.Velocity.Y)
	}
	if !scalar.EqualWithinAbs(s.Position.Y, 505.19, 1e-9) {
		t.Fatalf("altitude = %f", s.Position.Y)
	}
	if s.Velocity.X != 0 || s.Velocity.Z != 0 {
		t.Fatalf("vertical ascent drifted: %v", s.Velocity)
	}
	burnt := 75000 / (300 * StandardGravity)
	if !scalar.EqualWithinAbs(3000-s.FuelMass, burnt, 1e-9) {
		t.Fatalf("burnt %f kg instead of %f kg", 3000-s.FuelMass, burnt)
	}
	if snap.Time != 1 {
		t.Fatalf("time = %f", snap.Time)
	}

	// With the default sub-steps the lighter rocket accelerates slightly more.
	conf.Sim.MaxStep = DefaultConfig().Sim.MaxStep
	f = newTestFlight(t, conf, WithAtmosphere(UniformAtmosphere{}))
	if v := f.Tick(1, Command{}).State.Velocity.Y; !scalar.EqualWithinAbs(v, 5.19, 0.1) || v < 5.19 {
		t.Fatalf("v = %f m/s", v)
	}
}

func TestFlightWeathercock(t *testing.T) {
	conf := DefaultConfig()
	conf.Rocket.Throttle = 0
	f := newTestFlight(t, conf, WithAtmosphere(UniformAtmosphere{Rho: 1.225, Sound: 340}))
	f.state.Velocity = r3.Vec{Y: 200}
	f.state.Orientation = OrientationFromEuler(Deg2rad(10), 0, 0)
	α0 := angleOfAttack(f.state)
	for i := 0; i < 5; i++ {
		f.Tick(0.05, Command{})
	}
	if α := angleOfAttack(f.state); α >= α0 {
		t.Fatalf("angle of attack grew from %f to %f", α0, α)
	}
	for i := 0; i < 15; i++ {
		f.Tick(0.05, Command{})
	}
	if α := angleOfAttack(f.state); α >= α0/2 {
		t.Fatalf("angle of attack %f° did not settle", Rad2deg(α))
	}
}

func TestFlightPaused(t *testing.T) {
	f := newTestFlight(t, DefaultConfig())
	f.Tick(0.016, Command{})
	snap := f.Tick(0.016, Command{Pause: true})
	if snap.Status != Paused || countEvents(snap.Events, EventPaused) != 1 {
		t.Fatalf("expected a paused snapshot, got %v %v", snap.Status, snap.Events)
	}
	frozen, clock := f.State(), f.Clock()
	for i := 0; i < 100; i++ {
		f.Tick(0.016, Command{Pitch: 1, MassDelta: 100})
	}
	if f.State() != frozen || f.Clock().Time != clock.Time {
		t.Fatal("state changed while paused")
	}
	// Throttle and time scale are still honoured.
	f.Tick(0.016, Command{ThrottleDelta: 0.1, TimeScaleDelta: 1})
	if !scalar.EqualWithinAbs(f.Throttle(), 0.475, 1e-12) || f.Clock().TimeScale != 2 {
		t.Fatalf("throttle = %f time scale = %f", f.Throttle(), f.Clock().TimeScale)
	}
	snap = f.Tick(0.016, Command{Pause: true})
	if snap.Status != Running || f.State() == frozen {
		t.Fatal("flight did not resume")
	}
}

func TestFlightFrozenTimeScale(t *testing.T) {
	conf := DefaultConfig()
	conf.Sim.TimeScale = 0
	f := newTestFlight(t, conf)
	initial := f.State()
	for i := 0; i < 10; i++ {
		f.Tick(0.016, Command{})
	}
	if f.State() != initial || f.Clock().Time != 0 {
		t.Fatal("a zero time scale should freeze the flight")
	}
	f.Tick(0.016, Command{TimeScaleDelta: 100})
	if f.Clock().TimeScale != conf.Sim.MaxTimeScale {
		t.Fatalf("time scale not clamped: %f", f.Clock().TimeScale)
	}
	if f.State() == initial {
		t.Fatal("flight should run once the time scale is positive")
	}
}

func TestFlightReset(t *testing.T) {
	f := newTestFlight(t, DefaultConfig())
	fresh := f.Snapshot()
	for i := 0; i < 60; i++ {
		f.Tick(0.016, Command{Yaw: 1, ThrottleDelta: 0.01, MassDelta: 10})
	}
	snap := f.Tick(0.016, Command{Reset: true, Pitch: 1})
	if countEvents(snap.Events, EventReset) != 1 {
		t.Fatalf("missing reset event: %v", snap.Events)
	}
	once := f.State()
	f.Reset()
	if f.State() != once || once != fresh.State {
		t.Fatal("reset is not idempotent")
	}
	if f.Throttle() != fresh.Throttle || f.Clock().Time != 0 || f.Snapshot().Telemetry.MaxQ != 0 {
		t.Fatal("reset did not restore the throttle, clock and Max-Q")
	}
}

func TestFlightFuel(t *testing.T) {
	conf := DefaultConfig()
	conf.Rocket.FuelMass = 10
	conf.Rocket.Throttle = 1
	f := newTestFlight(t, conf)
	prev := f.State().FuelMass
	flameOuts := 0
	for i := 0; i < 20; i++ {
		snap := f.Tick(0.05, Command{})
		fuel := snap.State.FuelMass
		if fuel < 0 || fuel > conf.Rocket.FuelMass {
			t.Fatalf("fuel out of bounds: %f", fuel)
		}
		if prev > 0 && fuel >= prev {
			t.Fatalf("fuel did not decrease while thrusting: %f -> %f", prev, fuel)
		}
		if snap.State.DryMass <= 0 {
			t.Fatal("dry mass must stay positive")
		}
		flameOuts += countEvents(snap.Events, EventFlameOut)
		prev = fuel
	}
	if prev != 0 || flameOuts != 1 {
		t.Fatalf("fuel = %f, %d flame-outs", prev, flameOuts)
	}
	snap := f.Tick(0.05, Command{})
	if snap.Telemetry.Thrust != 0 || !snap.Telemetry.Warnings.FuelEmpty || snap.Telemetry.EngineTemperature != ambientTemperature {
		t.Fatalf("engine should be off: %+v", snap.Telemetry)
	}
}

func TestFlightInvalidStep(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFlight(DefaultConfig(), kitlog.NewLogfmtLogger(&buf))
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	initial := f.State()
	for _, dt := range []float64{math.NaN(), math.Inf(1), -0.016} {
		snap := f.Tick(dt, Command{})
		if countEvents(snap.Events, EventInvalidStep) != 1 || !snap.Events[0].Kind.Warning() {
			t.Fatalf("dt=%f: %v", dt, snap.Events)
		}
	}
	if f.State() != initial || f.Clock().Time != 0 {
		t.Fatal("invalid steps must not change the state")
	}
	if !strings.Contains(buf.String(), "level=warning") {
		t.Fatalf("expected a warning in the logs: %s", buf.String())
	}
}

func TestFlightDivergedRollback(t *testing.T) {
	f := newTestFlight(t, DefaultConfig(), WithAtmosphere(UniformAtmosphere{Rho: math.NaN(), Sound: 340}))
	f.state.Velocity = r3.Vec{Y: 10}
	before := f.State()
	snap := f.Tick(0.1, Command{})
	if countEvents(snap.Events, EventDiverged) != 1 {
		t.Fatalf("expected a single rollback, got %v", snap.Events)
	}
	if f.State() != before || !f.State().Valid() {
		t.Fatal("diverged step was not rolled back")
	}
}

func TestFlightFrameSkip(t *testing.T) {
	conf := DefaultConfig()
	conf.Sim.TimeScale = 2
	maxAdvance := float64(conf.Sim.MaxSubSteps) * conf.Sim.MaxStep
	// Huge steps must not overflow the sub-step count into a single step.
	for _, wallDt := range []float64{100, 1e18, math.MaxFloat64} {
		f := newTestFlight(t, conf)
		snap := f.Tick(wallDt, Command{})
		if countEvents(snap.Events, EventFrameSkip) != 1 {
			t.Fatalf("%g: expected a frame skip: %v", wallDt, snap.Events)
		}
		if !scalar.EqualWithinAbs(snap.Time, maxAdvance, 1e-9) {
			t.Fatalf("%g: time = %f instead of %f", wallDt, snap.Time, maxAdvance)
		}
		if !snap.State.Valid() || snap.State.Altitude() > 1e4 {
			t.Fatalf("%g: state = %+v", wallDt, snap.State)
		}
	}
}

func TestFlightInvariants(t *testing.T) {
	for _, scheme := range []Scheme{SchemeEuler, SchemeRK4} {
		conf := DefaultConfig()
		conf.Sim.Scheme = scheme
		conf.Rocket.Throttle = 1
		f := newTestFlight(t, conf)
		for i := 0; i < 600; i++ {
			cmd := Command{Pitch: 1, Roll: 1}
			if i%100 > 50 {
				cmd = Command{Yaw: -1, MassDelta: 50}
			}
			snap := f.Tick(1.0/60, cmd)
			s := snap.State
			if !s.Valid() {
				t.Fatalf("%s: invalid state at tick %d", scheme, i)
			}
			if !scalar.EqualWithinAbs(quat.Abs(s.Orientation), 1, 1e-9) {
				t.Fatalf("%s: |q| = %f", scheme, quat.Abs(s.Orientation))
			}
			if s.FuelMass < 0 || s.FuelMass > conf.Rocket.FuelMass {
				t.Fatalf("%s: fuel = %f", scheme, s.FuelMass)
			}
			if s.DryMass < conf.Rocket.MinDryMass || s.DryMass > conf.Rocket.MaxDryMass {
				t.Fatalf("%s: dry mass = %f", scheme, s.DryMass)
			}
			if s.Position.Y < conf.Sim.GroundLevel {
				t.Fatalf("%s: below ground at %f", scheme, s.Position.Y)
			}
		}
	}
}

func TestFlightRK4Ascent(t *testing.T) {
	conf := DefaultConfig()
	conf.Rocket.MaxThrust = 75000
	conf.Rocket.Throttle = 1
	conf.Sim.Scheme = SchemeRK4
	f := newTestFlight(t, conf, WithAtmosphere(UniformAtmosphere{}))
	s := f.Tick(1, Command{}).State
	if !scalar.EqualWithinAbs(s.Velocity.Y, 5.19, 0.1) {
		t.Fatalf("v = %f m/s", s.Velocity.Y)
	}
	// Constant acceleration: position is the mean of the velocities.
	if !scalar.EqualWithinAbs(s.Position.Y-500, s.Velocity.Y/2, 0.01) {
		t.Fatalf("altitude gain = %f", s.Position.Y-500)
	}
}

func TestFlightGround(t *testing.T) {
	conf := DefaultConfig()
	conf.Rocket.Throttle = 0
	conf.Rocket.InitialAltitude = 20
	f := newTestFlight(t, conf, WithAtmosphere(UniformAtmosphere{}))
	f.state.Velocity = r3.Vec{X: 10}
	contacts := 0
	for i := 0; i < 600; i++ {
		snap := f.Tick(0.016, Command{})
		contacts += countEvents(snap.Events, EventGroundContact)
		if snap.State.Position.Y < 0 {
			t.Fatalf("below ground: %f", snap.State.Position.Y)
		}
		if contacts == 1 && snap.State.Velocity.Y <= 0 && countEvents(snap.Events, EventGroundContact) == 1 {
			t.Fatalf("no bounce after contact: %v", snap.State.Velocity)
		}
	}
	if contacts == 0 {
		t.Fatal("no ground contact")
	}
	if vx := f.State().Velocity.X; vx >= 10 {
		t.Fatalf("friction did not slow the rocket: %f", vx)
	}
	tel := f.Snapshot().Telemetry
	if !tel.OnGround {
		t.Fatal("rocket should have settled on the ground")
	}
	// The ground carries the weight of a resting rocket.
	if tel.Acceleration != 0 || tel.GForce != 0 {
		t.Fatalf("resting rocket accelerates at %f m/s² (%f G)", tel.Acceleration, tel.GForce)
	}
}

func TestFlightGenericEngine(t *testing.T) {
	conf := DefaultConfig()
	conf.Rocket.Engine = EngineGeneric
	conf.Rocket.Throttle = 0.1
	f := newTestFlight(t, conf, WithAtmosphere(UniformAtmosphere{}))
	snap := f.Tick(0.016, Command{})
	if !scalar.EqualWithinAbs(snap.Telemetry.Thrust, conf.Rocket.MaxThrust, 1e-6) {
		t.Fatalf("an on/off engine fires at full thrust, got %f N", snap.Telemetry.Thrust)
	}
	if snap.Throttle != 0.1 {
		t.Fatalf("throttle setting = %f", snap.Throttle)
	}
}

func TestFlightDragEdits(t *testing.T) {
	conf := DefaultConfig()
	f := newTestFlight(t, conf)
	snap := f.Tick(0.016, Command{DragDelta: 0.25})
	if !scalar.EqualWithinAbs(snap.DragCoefficient, 0.7, 1e-12) || f.DragCoefficient() != snap.DragCoefficient {
		t.Fatalf("Cd = %f", snap.DragCoefficient)
	}
	if snap = f.Tick(0.016, Command{DragDelta: 10}); snap.DragCoefficient != conf.Rocket.MaxDragCoefficient {
		t.Fatalf("Cd not clamped to the maximum: %f", snap.DragCoefficient)
	}
	f.Tick(0.016, Command{Pause: true})
	if snap = f.Tick(0.016, Command{DragDelta: -10}); snap.DragCoefficient != conf.Rocket.MinDragCoefficient {
		t.Fatalf("Cd not clamped to the minimum while paused: %f", snap.DragCoefficient)
	}
	if snap = f.Tick(0.016, Command{Reset: true}); snap.DragCoefficient != conf.Rocket.DragCoefficient {
		t.Fatalf("reset should restore the configured Cd, got %f", snap.DragCoefficient)
	}
}

func TestFlightDragAffectsDescent(t *testing.T) {
	conf := DefaultConfig()
	conf.Rocket.Throttle = 0
	conf.Rocket.InitialAltitude = 2000
	atm := WithAtmosphere(UniformAtmosphere{Rho: 1.225, Sound: 340})
	clean, draggy := newTestFlight(t, conf, atm), newTestFlight(t, conf, atm)
	draggy.Tick(0.016, Command{DragDelta: 1})
	for i := 0; i < 300; i++ {
		clean.Tick(0.016, Command{})
		draggy.Tick(0.016, Command{})
	}
	if vc, vd := clean.State().Velocity.Y, draggy.State().Velocity.Y; vd <= vc {
		t.Fatalf("more drag should slow the fall: %f vs %f m/s", vd, vc)
	}
}

func TestFlightMassEdits(t *testing.T) {
	f := newTestFlight(t, DefaultConfig())
	f.Tick(0.016, Command{MassDelta: 1e6})
	if f.State().DryMass != 10000 {
		t.Fatalf("dry mass = %f", f.State().DryMass)
	}
	f.Tick(0.016, Command{MassDelta: -1e6})
	if f.State().DryMass != 500 {
		t.Fatalf("dry mass = %f", f.State().DryMass)
	}
	f.Tick(0.016, Command{ThrottleDelta: 5})
	if f.Throttle() != 1 {
		t.Fatalf("throttle = %f", f.Throttle())
	}
}

func TestSnapshotIndependence(t *testing.T) {
	f := newTestFlight(t, DefaultConfig())
	snap := f.Tick(0.016, Command{Pause: true})
	if len(snap.Events) != 1 {
		t.Fatalf("events = %v", snap.Events)
	}
	snap.Events[0].Kind = EventReset
	snap.State.Position.Y = -1
	next := f.Tick(0.016, Command{Pause: true})
	if countEvents(next.Events, EventReset) != 0 || next.State.Position.Y < 0 {
		t.Fatal("snapshots alias the flight")
	}
}
