package rocket

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestExponentialDensity(t *testing.T) {
	atm := NewExponentialAtmosphere(DefaultConfig().Atmosphere)
	if rho := atm.Density(0); !scalar.EqualWithinAbs(rho, 1.225, 1e-12) {
		t.Fatalf("sea level density = %f", rho)
	}
	if rho := atm.Density(8500); !scalar.EqualWithinAbs(rho, 1.225/math.E, 1e-12) {
		t.Fatalf("density at one scale height = %f", rho)
	}
	if rho := atm.Density(-100); rho != atm.Density(0) {
		t.Fatalf("negative altitudes must saturate at sea level, got %f", rho)
	}
	if rho := atm.Density(100000); rho != 0 {
		t.Fatalf("density at the ceiling = %f", rho)
	}
	prev := math.Inf(1)
	for h := 0.0; h < 120000; h += 250 {
		rho := atm.Density(h)
		if rho < 0 || rho > prev {
			t.Fatalf("density not non-negative and non-increasing at %f m", h)
		}
		prev = rho
	}
}

func TestSpeedOfSound(t *testing.T) {
	atm := NewExponentialAtmosphere(DefaultConfig().Atmosphere)
	if a := atm.SpeedOfSound(0); !scalar.EqualWithinAbs(a, 340.29, 0.01) {
		t.Fatalf("sea level speed of sound = %f", a)
	}
	if a := atm.SpeedOfSound(11000); !scalar.EqualWithinAbs(a, 295.07, 0.01) {
		t.Fatalf("tropopause speed of sound = %f", a)
	}
	if atm.SpeedOfSound(30000) != atm.SpeedOfSound(11000) {
		t.Fatal("speed of sound must be constant above the tropopause")
	}
	prev := math.Inf(1)
	for h := -1000.0; h < 50000; h += 100 {
		a := atm.SpeedOfSound(h)
		if a <= 0 || a > prev {
			t.Fatalf("speed of sound not positive and non-increasing at %f m", h)
		}
		prev = a
	}
}

func TestAtmosphereNonFinite(t *testing.T) {
	atm := NewExponentialAtmosphere(DefaultConfig().Atmosphere)
	for _, h := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		air := atm.At(h)
		if !finite(air.Density) || !finite(air.SpeedOfSound) || air.SpeedOfSound <= 0 {
			t.Fatalf("altitude %f gave %+v", h, air)
		}
	}
}

func TestUniformAtmosphere(t *testing.T) {
	conf := DefaultConfig().Atmosphere
	conf.Model = "uniform"
	atm := NewAtmosphere(conf)
	if _, ok := atm.(UniformAtmosphere); !ok {
		t.Fatalf("expected a uniform atmosphere, got %T", atm)
	}
	if atm.Density(0) != atm.Density(50000) {
		t.Fatal("uniform atmosphere must not vary")
	}
	vacuum := UniformAtmosphere{}
	if vacuum.Density(0) != 0 || vacuum.SpeedOfSound(0) != minSpeedOfSound {
		t.Fatalf("vacuum: %+v", vacuum.At(0))
	}
}
