package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	rocket "github.com/MalikTzys/Rocket-With-Aerodynamic"
)

// Recorder exports the latest snapshot as Prometheus gauges.
type Recorder struct {
	altitude          prometheus.Gauge
	velocity          prometheus.Gauge
	verticalVelocity  prometheus.Gauge
	acceleration      prometheus.Gauge
	mass              prometheus.Gauge
	fuel              prometheus.Gauge
	drag              prometheus.Gauge
	lift              prometheus.Gauge
	thrust            prometheus.Gauge
	airDensity        prometheus.Gauge
	mach              prometheus.Gauge
	dynamicPressure   prometheus.Gauge
	maxQ              prometheus.Gauge
	twr               prometheus.Gauge
	gForce            prometheus.Gauge
	angleOfAttack     prometheus.Gauge
	engineTemperature prometheus.Gauge
	throttle          prometheus.Gauge
	dragCoefficient   prometheus.Gauge
	timeScale         prometheus.Gauge
	simTime           prometheus.Gauge
	paused            prometheus.Gauge
	events            *prometheus.CounterVec
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
}

// NewRecorder registers the rocket metrics with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		altitude:          gauge("rocket_altitude_meters", "Height above the ground reference"),
		velocity:          gauge("rocket_velocity_mps", "Speed relative to the ground"),
		verticalVelocity:  gauge("rocket_vertical_velocity_mps", "Vertical component of the velocity"),
		acceleration:      gauge("rocket_acceleration_mps2", "Magnitude of the net acceleration"),
		mass:              gauge("rocket_mass_kg", "Dry mass plus remaining fuel"),
		fuel:              gauge("rocket_fuel_kg", "Remaining fuel"),
		drag:              gauge("rocket_drag_newton", "Magnitude of the aerodynamic drag"),
		lift:              gauge("rocket_lift_newton", "Magnitude of the aerodynamic lift"),
		thrust:            gauge("rocket_engine_thrust_newton", "Current thrust of the engine"),
		airDensity:        gauge("rocket_air_density_kg_per_m3", "Air density at the rocket's altitude"),
		mach:              gauge("rocket_mach", "Mach number"),
		dynamicPressure:   gauge("rocket_dynamic_pressure_pascal", "Dynamic pressure"),
		maxQ:              gauge("rocket_max_q_pascal", "Peak dynamic pressure since the last reset"),
		twr:               gauge("rocket_thrust_to_weight_ratio", "Thrust to weight ratio"),
		gForce:            gauge("rocket_g_force", "Net acceleration in standard gravities"),
		angleOfAttack:     gauge("rocket_angle_of_attack_degrees", "Angle between the nose and the velocity"),
		engineTemperature: gauge("rocket_engine_temperature_kelvin", "Nozzle temperature"),
		throttle:          gauge("rocket_throttle_ratio", "Throttle setting in [0, 1]"),
		dragCoefficient:   gauge("rocket_drag_coefficient", "Subsonic drag coefficient setting"),
		timeScale:         gauge("rocket_sim_time_scale", "Simulated seconds per wall clock second"),
		simTime:           gauge("rocket_sim_time_seconds", "Simulated time since the last reset"),
		paused:            gauge("rocket_sim_paused", "1 when the simulation is paused"),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rocket_events_total",
			Help: "Flight events by kind",
		}, []string{"kind"}),
	}
	for _, c := range r.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering rocket metrics: %w", err)
		}
	}
	return r, nil
}

func (r *Recorder) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		r.altitude, r.velocity, r.verticalVelocity, r.acceleration, r.mass, r.fuel,
		r.drag, r.lift, r.thrust, r.airDensity, r.mach, r.dynamicPressure, r.maxQ,
		r.twr, r.gForce, r.angleOfAttack, r.engineTemperature, r.throttle,
		r.dragCoefficient, r.timeScale, r.simTime, r.paused, r.events,
	}
}

// Observe implements the Sink interface.
func (r *Recorder) Observe(_ context.Context, snap rocket.Snapshot) error {
	t := snap.Telemetry
	r.altitude.Set(t.Altitude)
	r.velocity.Set(t.Speed)
	r.verticalVelocity.Set(t.VerticalSpeed)
	r.acceleration.Set(t.Acceleration)
	r.mass.Set(t.Mass)
	r.fuel.Set(snap.State.FuelMass)
	r.drag.Set(t.Drag)
	r.lift.Set(t.Lift)
	r.thrust.Set(t.Thrust)
	r.airDensity.Set(t.AirDensity)
	r.mach.Set(t.Mach)
	r.dynamicPressure.Set(t.DynamicPressure)
	r.maxQ.Set(t.MaxQ)
	r.twr.Set(t.TWR)
	r.gForce.Set(t.GForce)
	r.angleOfAttack.Set(t.AngleOfAttack)
	r.engineTemperature.Set(t.EngineTemperature)
	r.throttle.Set(snap.Throttle)
	r.dragCoefficient.Set(snap.DragCoefficient)
	r.timeScale.Set(snap.TimeScale)
	r.simTime.Set(snap.Time)
	if snap.Status == rocket.Paused {
		r.paused.Set(1)
	} else {
		r.paused.Set(0)
	}
	for _, e := range snap.Events {
		r.events.WithLabelValues(e.Kind.String()).Inc()
	}
	return nil
}
