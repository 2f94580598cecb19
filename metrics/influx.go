package metrics

import (
	"context"
	"fmt"
	"math"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"

	rocket "github.com/MalikTzys/Rocket-With-Aerodynamic"
)

// InfluxSink writes a "flight" point to InfluxDB every interval of simulated time.
type InfluxSink struct {
	writer   influxdb2_api.WriteAPIBlocking
	name     string
	epoch    time.Time
	interval float64

	last  float64
	wrote bool
	seen  float64 // latest simulated time of the current flight
}

// NewInfluxSink returns a sink writing to the bucket of org. Simulated time is
// stamped relative to epoch, which moves past the previous flight on every reset
// so that flights never share timestamps.
func NewInfluxSink(client influxdb2.Client, org, bucket, name string, epoch time.Time, interval float64) *InfluxSink {
	return &InfluxSink{
		writer:   client.WriteAPIBlocking(org, bucket),
		name:     name,
		epoch:    epoch,
		interval: interval,
	}
}

// Observe implements the Sink interface.
func (s *InfluxSink) Observe(ctx context.Context, snap rocket.Snapshot) error {
	for _, e := range snap.Events {
		if e.Kind == rocket.EventReset {
			s.epoch = s.epoch.Add(seconds(s.seen) + time.Second)
			s.seen = 0
			break
		}
	}
	s.seen = math.Max(s.seen, snap.Time)
	// A reset moves the time backwards.
	due := !s.wrote || snap.Time < s.last || snap.Time-s.last >= s.interval
	if !due && len(snap.Events) == 0 {
		return nil
	}
	t := snap.Telemetry
	p := influxdb2.NewPointWithMeasurement("flight").
		AddTag("rocket", s.name).
		AddTag("status", snap.Status.String()).
		AddField("altitude", t.Altitude).
		AddField("speed", t.Speed).
		AddField("vertical_speed", t.VerticalSpeed).
		AddField("acceleration", t.Acceleration).
		AddField("mach", t.Mach).
		AddField("dynamic_pressure", t.DynamicPressure).
		AddField("max_q", t.MaxQ).
		AddField("g_force", t.GForce).
		AddField("twr", t.TWR).
		AddField("mass", t.Mass).
		AddField("fuel", snap.State.FuelMass).
		AddField("thrust", t.Thrust).
		AddField("drag", t.Drag).
		AddField("lift", t.Lift).
		AddField("aoa", t.AngleOfAttack).
		AddField("throttle", snap.Throttle).
		AddField("cd", snap.DragCoefficient).
		AddField("events", len(snap.Events)).
		SetTime(s.epoch.Add(seconds(snap.Time)))
	if err := s.writer.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("writing flight point: %w", err)
	}
	s.last, s.wrote = snap.Time, true
	return nil
}

func seconds(t float64) time.Duration {
	return time.Duration(t * float64(time.Second))
}
