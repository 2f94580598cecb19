package rocket

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Scheme is the integration scheme of the flight dynamics.
type Scheme string

const (
	// SchemeEuler is the semi-implicit (symplectic) Euler scheme.
	SchemeEuler Scheme = "euler"
	// SchemeRK4 is the classical fourth order Runge-Kutta scheme.
	SchemeRK4 Scheme = "rk4"
)

// EngineKind selects the Thruster mounted on the rocket.
type EngineKind string

const (
	// EngineLiquid is a throttleable LiquidEngine.
	EngineLiquid EngineKind = "liquid"
	// EngineGeneric is an on/off GenericEngine.
	EngineGeneric EngineKind = "generic"
)

// RocketConfig describes the vehicle.
type RocketConfig struct {
	Engine             EngineKind `mapstructure:"engine"`
	MaxThrust          float64    `mapstructure:"max_thrust"`           // N
	Throttle           float64    `mapstructure:"throttle"`             // initial setting in [0, 1]
	SpecificImpulse    float64    `mapstructure:"specific_impulse"`     // s
	DragCoefficient    float64    `mapstructure:"drag_coefficient"`
	MinDragCoefficient float64    `mapstructure:"min_drag_coefficient"` // live edit limits
	MaxDragCoefficient float64    `mapstructure:"max_drag_coefficient"`
	ReferenceArea      float64    `mapstructure:"reference_area"`       // m²
	LiftSlope          float64    `mapstructure:"lift_slope"`           // per rad
	StallAngle         float64    `mapstructure:"stall_angle"`          // deg
	CPOffset           float64    `mapstructure:"cp_offset"`            // m
	TransonicDrag      bool       `mapstructure:"transonic_drag"`
	DryMass            float64    `mapstructure:"dry_mass"`             // kg
	FuelMass           float64    `mapstructure:"fuel_mass"`            // kg
	MinDryMass         float64    `mapstructure:"min_dry_mass"`         // kg
	MaxDryMass         float64    `mapstructure:"max_dry_mass"`         // kg
	Length             float64    `mapstructure:"length"`               // m
	Radius             float64    `mapstructure:"radius"`               // m
	PitchYawTorque     float64    `mapstructure:"pitch_yaw_torque"`
	RollTorque         float64    `mapstructure:"roll_torque"`
	InitialAltitude    float64    `mapstructure:"initial_altitude"`     // m
}

// SimConfig tunes the integrator.
type SimConfig struct {
	Scheme         Scheme  `mapstructure:"scheme"`
	Gravity        float64 `mapstructure:"gravity"`  // m/s²
	MaxStep        float64 `mapstructure:"max_step"` // s
	MaxSubSteps    int     `mapstructure:"max_sub_steps"`
	TimeScale      float64 `mapstructure:"time_scale"`
	MaxTimeScale   float64 `mapstructure:"max_time_scale"`
	AngularDamping float64 `mapstructure:"angular_damping"` // 1/s
	GroundLevel    float64 `mapstructure:"ground_level"`    // m
	Restitution    float64 `mapstructure:"restitution"`
	GroundFriction float64 `mapstructure:"ground_friction"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// InfluxConfig configures the InfluxDB telemetry sink.
type InfluxConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	URL      string  `mapstructure:"url"`
	Token    string  `mapstructure:"token"`
	Org      string  `mapstructure:"org"`
	Bucket   string  `mapstructure:"bucket"`
	Interval float64 `mapstructure:"interval"` // s of simulated time between points
}

// LogConfig configures the logger.
type LogConfig struct {
	File string `mapstructure:"file"` // used when the terminal is taken by the HUD
}

// Config is the full configuration of a simulation run.
type Config struct {
	Name       string           `mapstructure:"name"`
	Rocket     RocketConfig     `mapstructure:"rocket"`
	Atmosphere AtmosphereConfig `mapstructure:"atmosphere"`
	Sim        SimConfig        `mapstructure:"sim"`
	Export     ExportConfig     `mapstructure:"export"`
	Server     ServerConfig     `mapstructure:"server"`
	Influx     InfluxConfig     `mapstructure:"influx"`
	Log        LogConfig        `mapstructure:"log"`
}

// DefaultConfig returns the configuration of the reference rocket.
func DefaultConfig() Config {
	return Config{
		Name: "rocket",
		Rocket: RocketConfig{
			Engine:             EngineLiquid,
			MaxThrust:          200000,
			Throttle:           0.375,
			SpecificImpulse:    300,
			DragCoefficient:    0.45,
			MinDragCoefficient: 0.1,
			MaxDragCoefficient: 2,
			ReferenceArea:      10,
			LiftSlope:          6.283185307179586,
			StallAngle:         15,
			CPOffset:           1.5,
			DryMass:            2000,
			FuelMass:           3000,
			MinDryMass:         500,
			MaxDryMass:         10000,
			Length:             20,
			Radius:             1.8,
			PitchYawTorque:     150000,
			RollTorque:         8000,
			InitialAltitude:    500,
		},
		Atmosphere: AtmosphereConfig{
			Model:               "exponential",
			SeaLevelDensity:     1.225,
			ScaleHeight:         8500,
			Ceiling:             100000,
			SeaLevelTemperature: 288.15,
			LapseRate:           0.0065,
			Tropopause:          11000,
		},
		Sim: SimConfig{
			Scheme:         SchemeEuler,
			Gravity:        9.81,
			MaxStep:        0.05,
			MaxSubSteps:    200,
			TimeScale:      1,
			MaxTimeScale:   5,
			AngularDamping: 5,
			Restitution:    0.3,
			GroundFriction: 0.7,
		},
		Export: ExportConfig{Dir: ".", Interval: 0.1, Timestamp: true},
		Server: ServerConfig{Listen: "127.0.0.1:8080"},
		Influx: InfluxConfig{
			URL:      "http://localhost:8086",
			Org:      "rocketsim",
			Bucket:   "flights",
			Interval: 0.5,
		},
		Log: LogConfig{File: "rocketsim.log"},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("name", d.Name)

	v.SetDefault("rocket.engine", d.Rocket.Engine)
	v.SetDefault("rocket.max_thrust", d.Rocket.MaxThrust)
	v.SetDefault("rocket.throttle", d.Rocket.Throttle)
	v.SetDefault("rocket.specific_impulse", d.Rocket.SpecificImpulse)
	v.SetDefault("rocket.drag_coefficient", d.Rocket.DragCoefficient)
	v.SetDefault("rocket.min_drag_coefficient", d.Rocket.MinDragCoefficient)
	v.SetDefault("rocket.max_drag_coefficient", d.Rocket.MaxDragCoefficient)
	v.SetDefault("rocket.reference_area", d.Rocket.ReferenceArea)
	v.SetDefault("rocket.lift_slope", d.Rocket.LiftSlope)
	v.SetDefault("rocket.stall_angle", d.Rocket.StallAngle)
	v.SetDefault("rocket.cp_offset", d.Rocket.CPOffset)
	v.SetDefault("rocket.transonic_drag", d.Rocket.TransonicDrag)
	v.SetDefault("rocket.dry_mass", d.Rocket.DryMass)
	v.SetDefault("rocket.fuel_mass", d.Rocket.FuelMass)
	v.SetDefault("rocket.min_dry_mass", d.Rocket.MinDryMass)
	v.SetDefault("rocket.max_dry_mass", d.Rocket.MaxDryMass)
	v.SetDefault("rocket.length", d.Rocket.Length)
	v.SetDefault("rocket.radius", d.Rocket.Radius)
	v.SetDefault("rocket.pitch_yaw_torque", d.Rocket.PitchYawTorque)
	v.SetDefault("rocket.roll_torque", d.Rocket.RollTorque)
	v.SetDefault("rocket.initial_altitude", d.Rocket.InitialAltitude)

	v.SetDefault("atmosphere.model", d.Atmosphere.Model)
	v.SetDefault("atmosphere.sea_level_density", d.Atmosphere.SeaLevelDensity)
	v.SetDefault("atmosphere.scale_height", d.Atmosphere.ScaleHeight)
	v.SetDefault("atmosphere.ceiling", d.Atmosphere.Ceiling)
	v.SetDefault("atmosphere.sea_level_temperature", d.Atmosphere.SeaLevelTemperature)
	v.SetDefault("atmosphere.lapse_rate", d.Atmosphere.LapseRate)
	v.SetDefault("atmosphere.tropopause", d.Atmosphere.Tropopause)

	v.SetDefault("sim.scheme", string(d.Sim.Scheme))
	v.SetDefault("sim.gravity", d.Sim.Gravity)
	v.SetDefault("sim.max_step", d.Sim.MaxStep)
	v.SetDefault("sim.max_sub_steps", d.Sim.MaxSubSteps)
	v.SetDefault("sim.time_scale", d.Sim.TimeScale)
	v.SetDefault("sim.max_time_scale", d.Sim.MaxTimeScale)
	v.SetDefault("sim.angular_damping", d.Sim.AngularDamping)
	v.SetDefault("sim.ground_level", d.Sim.GroundLevel)
	v.SetDefault("sim.restitution", d.Sim.Restitution)
	v.SetDefault("sim.ground_friction", d.Sim.GroundFriction)

	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("export.filename", d.Export.Filename)
	v.SetDefault("export.timestamp", d.Export.Timestamp)
	v.SetDefault("export.interval", d.Export.Interval)

	v.SetDefault("server.enabled", d.Server.Enabled)
	v.SetDefault("server.listen", d.Server.Listen)

	v.SetDefault("influx.enabled", d.Influx.Enabled)
	v.SetDefault("influx.url", d.Influx.URL)
	v.SetDefault("influx.token", d.Influx.Token)
	v.SetDefault("influx.org", d.Influx.Org)
	v.SetDefault("influx.bucket", d.Influx.Bucket)
	v.SetDefault("influx.interval", d.Influx.Interval)

	v.SetDefault("log.file", d.Log.File)
}

// LoadConfig reads the configuration file at path, if any, and the ROCKETSIM_*
// environment variables on top of the defaults.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("rocketsim")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// Validate checks that the configuration describes a physical rocket and a stable integrator.
func (c Config) Validate() error {
	r, s, a := c.Rocket, c.Sim, c.Atmosphere
	checks := []struct {
		ok  bool
		msg string
	}{
		{r.Engine == EngineLiquid || r.Engine == EngineGeneric, fmt.Sprintf("unknown rocket.engine %q", r.Engine)},
		{r.MaxThrust >= 0, "rocket.max_thrust must not be negative"},
		{r.Throttle >= 0 && r.Throttle <= 1, "rocket.throttle must be within [0, 1]"},
		{r.SpecificImpulse > 0, "rocket.specific_impulse must be positive"},
		{r.DragCoefficient >= 0, "rocket.drag_coefficient must not be negative"},
		{r.MinDragCoefficient >= 0, "rocket.min_drag_coefficient must not be negative"},
		{r.MaxDragCoefficient >= r.MinDragCoefficient, "rocket.max_drag_coefficient must not be less than rocket.min_drag_coefficient"},
		{r.ReferenceArea >= 0, "rocket.reference_area must not be negative"},
		{r.LiftSlope >= 0, "rocket.lift_slope must not be negative"},
		{r.StallAngle >= 0 && r.StallAngle <= 90, "rocket.stall_angle must be within [0, 90] degrees"},
		{finite(r.CPOffset), "rocket.cp_offset must be finite"},
		{r.MinDryMass > 0, "rocket.min_dry_mass must be positive"},
		{r.MaxDryMass >= r.MinDryMass, "rocket.max_dry_mass must not be less than rocket.min_dry_mass"},
		{r.DryMass >= r.MinDryMass && r.DryMass <= r.MaxDryMass, "rocket.dry_mass must be within the dry mass limits"},
		{r.FuelMass >= 0, "rocket.fuel_mass must not be negative"},
		{r.Length > 0 && r.Radius > 0, "rocket.length and rocket.radius must be positive"},
		{r.PitchYawTorque >= 0 && r.RollTorque >= 0, "control torques must not be negative"},
		{finite(r.InitialAltitude) && r.InitialAltitude >= s.GroundLevel, "rocket.initial_altitude must not be below the ground"},
		{s.Scheme == SchemeEuler || s.Scheme == SchemeRK4, fmt.Sprintf("unknown sim.scheme %q", s.Scheme)},
		{s.Gravity >= 0, "sim.gravity must not be negative"},
		{s.MaxStep > 0, "sim.max_step must be positive"},
		{s.MaxSubSteps > 0, "sim.max_sub_steps must be positive"},
		{s.MaxTimeScale > 0, "sim.max_time_scale must be positive"},
		{s.TimeScale >= 0 && s.TimeScale <= s.MaxTimeScale, "sim.time_scale must be within [0, sim.max_time_scale]"},
		{s.AngularDamping >= 0, "sim.angular_damping must not be negative"},
		{s.Restitution >= 0 && s.Restitution <= 1, "sim.restitution must be within [0, 1]"},
		{s.GroundFriction >= 0 && s.GroundFriction <= 1, "sim.ground_friction must be within [0, 1]"},
		{a.Model == "exponential" || a.Model == "uniform", fmt.Sprintf("unknown atmosphere.model %q", a.Model)},
		{a.SeaLevelDensity >= 0, "atmosphere.sea_level_density must not be negative"},
		{a.ScaleHeight > 0, "atmosphere.scale_height must be positive"},
		{a.Ceiling > 0, "atmosphere.ceiling must be positive"},
		{a.SeaLevelTemperature > 0, "atmosphere.sea_level_temperature must be positive"},
		{a.LapseRate >= 0 && a.Tropopause >= 0, "atmosphere.lapse_rate and atmosphere.tropopause must not be negative"},
		{c.Export.Interval >= 0, "export.interval must not be negative"},
	}
	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, check.msg)
		}
	}
	return nil
}
