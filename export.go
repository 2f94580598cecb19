package rocket

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ExportConfig configures the CSV flight log.
type ExportConfig struct {
	Dir       string  `mapstructure:"dir"`
	Filename  string  `mapstructure:"filename"`
	Timestamp bool    `mapstructure:"timestamp"`
	Interval  float64 `mapstructure:"interval"` // s of simulated time between rows
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return c.Filename == ""
}

var flightLogHeader = []string{
	"time", "status", "altitude", "speed", "vertical_speed", "mach", "dynamic_pressure", "max_q",
	"g_force", "twr", "mass", "fuel", "throttle", "cd", "thrust", "drag", "lift", "aoa",
	"pitch", "yaw", "roll", "x", "y", "z", "vx", "vy", "vz", "events",
}

// createFlightLog returns a file which requires a defer close statement!
func createFlightLog(conf ExportConfig, start time.Time) (*os.File, error) {
	name := conf.Filename
	if conf.Timestamp {
		name = fmt.Sprintf("flight-%s-%d-%02d-%02dT%02d.%02d.%02d.csv", name, start.Year(), start.Month(), start.Day(), start.Hour(), start.Minute(), start.Second())
	} else {
		name = fmt.Sprintf("flight-%s.csv", name)
	}
	f, err := os.Create(filepath.Join(conf.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating flight log: %w", err)
	}
	// Header
	_, err = fmt.Fprintf(f, `# Creation date (UTC): %s
# Distances in m, speeds in m/s, pressures in Pa, masses in kg, forces in N, angles in degrees.
`, start.UTC())
	if err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func flightLogRecord(s Snapshot) []string {
	t := s.Telemetry
	st := s.State
	events := make([]string, len(s.Events))
	for i, e := range s.Events {
		events[i] = e.Kind.String()
	}
	record := []string{formatFloat(s.Time), s.Status.String()}
	for _, v := range []float64{
		t.Altitude, t.Speed, t.VerticalSpeed, t.Mach, t.DynamicPressure, t.MaxQ,
		t.GForce, t.TWR, t.Mass, st.FuelMass, s.Throttle, s.DragCoefficient, t.Thrust, t.Drag, t.Lift, t.AngleOfAttack,
		t.Pitch, t.Yaw, t.Roll,
		st.Position.X, st.Position.Y, st.Position.Z,
		st.Velocity.X, st.Velocity.Y, st.Velocity.Z,
	} {
		record = append(record, formatFloat(v))
	}
	return append(record, strings.Join(events, ";"))
}

// StreamSnapshots writes the snapshots of the channel to a CSV flight log until the
// channel is closed. A row is written at most every Interval of simulated time,
// and for every snapshot carrying events. The channel is always drained.
func StreamSnapshots(conf ExportConfig, snapshots <-chan Snapshot) error {
	f, err := createFlightLog(conf, time.Now())
	if err != nil {
		for range snapshots {
		}
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(flightLogHeader); err != nil {
		for range snapshots {
		}
		return err
	}

	var last Snapshot
	wrote := false
	for snap := range snapshots {
		// A reset moves the time backwards.
		due := !wrote || snap.Time < last.Time || snap.Time-last.Time >= conf.Interval
		if !due && len(snap.Events) == 0 {
			continue
		}
		if err = w.Write(flightLogRecord(snap)); err != nil {
			break
		}
		last, wrote = snap, true
	}
	if err != nil {
		for range snapshots {
		}
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "# Simulation time end: %ss\n", formatFloat(last.Time)); err != nil {
		return err
	}
	return nil
}
