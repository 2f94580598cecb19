package rocket

import "math"

const (
	airGamma        = 1.4
	airGasConstant  = 287.05 // J/(kg·K)
	minTemperature  = 1.0    // K
	minSpeedOfSound = 1.0    // m/s
)

// Air is the state of the atmosphere at a given altitude.
type Air struct {
	Density      float64 `json:"density"`      // kg/m³
	SpeedOfSound float64 `json:"speedOfSound"` // m/s
}

// Atmosphere defines an atmosphere model. Implementations must be pure and
// return finite values for any altitude, including non-finite ones.
type Atmosphere interface {
	Density(altitude float64) float64
	SpeedOfSound(altitude float64) float64
	At(altitude float64) Air
}

// AtmosphereConfig parameterizes the atmosphere models.
type AtmosphereConfig struct {
	Model               string  `mapstructure:"model"` // "exponential" or "uniform"
	SeaLevelDensity     float64 `mapstructure:"sea_level_density"`
	ScaleHeight         float64 `mapstructure:"scale_height"`
	Ceiling             float64 `mapstructure:"ceiling"`
	SeaLevelTemperature float64 `mapstructure:"sea_level_temperature"`
	LapseRate           float64 `mapstructure:"lapse_rate"`
	Tropopause          float64 `mapstructure:"tropopause"`
}

// NewAtmosphere returns the atmosphere model named in the configuration.
func NewAtmosphere(conf AtmosphereConfig) Atmosphere {
	if conf.Model == "uniform" {
		return UniformAtmosphere{Rho: conf.SeaLevelDensity, Sound: speedOfSound(conf.SeaLevelTemperature)}
	}
	return NewExponentialAtmosphere(conf)
}

// ExponentialAtmosphere is an isothermal-density exponential model with an ISA
// troposphere temperature profile for the speed of sound.
type ExponentialAtmosphere struct {
	conf AtmosphereConfig
}

// NewExponentialAtmosphere returns a new exponential atmosphere.
func NewExponentialAtmosphere(conf AtmosphereConfig) *ExponentialAtmosphere {
	return &ExponentialAtmosphere{conf}
}

// altitude saturates the altitude to the modeled range.
func (a *ExponentialAtmosphere) altitude(h float64) float64 {
	if math.IsNaN(h) {
		return 0
	}
	return math.Max(h, 0)
}

// Density implements the Atmosphere interface.
func (a *ExponentialAtmosphere) Density(altitude float64) float64 {
	h := a.altitude(altitude)
	if h >= a.conf.Ceiling {
		return 0
	}
	if a.conf.ScaleHeight <= 0 {
		return a.conf.SeaLevelDensity
	}
	return a.conf.SeaLevelDensity * math.Exp(-h/a.conf.ScaleHeight)
}

// Temperature returns the air temperature in Kelvin at the given altitude.
func (a *ExponentialAtmosphere) Temperature(altitude float64) float64 {
	h := clamp(a.altitude(altitude), 0, a.conf.Tropopause)
	return math.Max(a.conf.SeaLevelTemperature-a.conf.LapseRate*h, minTemperature)
}

// SpeedOfSound implements the Atmosphere interface.
func (a *ExponentialAtmosphere) SpeedOfSound(altitude float64) float64 {
	return speedOfSound(a.Temperature(altitude))
}

// At implements the Atmosphere interface.
func (a *ExponentialAtmosphere) At(altitude float64) Air {
	return Air{Density: a.Density(altitude), SpeedOfSound: a.SpeedOfSound(altitude)}
}

// UniformAtmosphere has the same density and speed of sound everywhere.
type UniformAtmosphere struct {
	Rho   float64
	Sound float64
}

// Density implements the Atmosphere interface.
func (a UniformAtmosphere) Density(float64) float64 { return math.Max(a.Rho, 0) }

// SpeedOfSound implements the Atmosphere interface.
func (a UniformAtmosphere) SpeedOfSound(float64) float64 {
	return math.Max(a.Sound, minSpeedOfSound)
}

// At implements the Atmosphere interface.
func (a UniformAtmosphere) At(h float64) Air {
	return Air{Density: a.Density(h), SpeedOfSound: a.SpeedOfSound(h)}
}

func speedOfSound(temperature float64) float64 {
	return math.Max(math.Sqrt(airGamma*airGasConstant*math.Max(temperature, minTemperature)), minSpeedOfSound)
}
