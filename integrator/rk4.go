// Package integrator provides fixed step integrators for state vectors. The
// flight dynamics use RK4 one sub-step at a time: the Integrable starts from the
// current rigid body state, stops after a single iteration and keeps the result.
package integrator

import (
	"errors"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrStepSize is returned when the step size is not strictly positive.
	ErrStepSize = errors.New("step size must be positive")
	// ErrNoIntegrable is returned when there is nothing to integrate.
	ErrNoIntegrable = errors.New("integrable may not be nil")
)

// RK4 defines the classical fourth order Runge-Kutta integrator.
type RK4 struct {
	X0         float64    // The initial x0.
	StepSize   float64    // The step size.
	Integrable Integrable // What is to be integrated.
}

// NewRK4 returns a new RK4 integrator instance.
func NewRK4(x0 float64, stepSize float64, inte Integrable) (*RK4, error) {
	if !(stepSize > 0) {
		return nil, ErrStepSize
	}
	if inte == nil {
		return nil, ErrNoIntegrable
	}
	return &RK4{X0: x0, StepSize: stepSize, Integrable: inte}, nil
}

// Solve integrates until the Integrable asks to stop.
// Returns the number of iterations performed and the last X_i.
func (r *RK4) Solve() (uint64, float64) {
	h := r.StepSize
	iterNum := uint64(0)
	xi := r.X0
	for !r.Integrable.Stop(iterNum) {
		y := r.Integrable.GetState()
		r.Integrable.SetState(iterNum, r.step(xi, y, h))
		xi += h
		iterNum++
	}
	return iterNum, xi
}

// step returns y(x+h) as a new slice, y being left untouched.
func (r *RK4) step(x float64, y []float64, h float64) []float64 {
	f := r.Integrable.Func
	tmp := make([]float64, len(y))
	k1 := f(x, y)
	k2 := f(x+h/2, floats.AddScaledTo(tmp, y, h/2, k1))
	k3 := f(x+h/2, floats.AddScaledTo(tmp, y, h/2, k2))
	k4 := f(x+h, floats.AddScaledTo(tmp, y, h, k3))

	next := make([]float64, len(y))
	copy(next, y)
	floats.AddScaled(next, h/6, k1)
	floats.AddScaled(next, h/3, k2)
	floats.AddScaled(next, h/3, k3)
	floats.AddScaled(next, h/6, k4)
	return next
}
