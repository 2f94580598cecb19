// Package metrics exports flight telemetry to monitoring backends.
package metrics

import (
	"context"
	"errors"

	rocket "github.com/MalikTzys/Rocket-With-Aerodynamic"
)

// Sink receives every snapshot published by the simulation loop.
type Sink interface {
	Observe(ctx context.Context, snap rocket.Snapshot) error
}

// Sinks fans a snapshot out to several sinks.
type Sinks []Sink

// Observe implements the Sink interface. Every sink sees the snapshot even if another one fails.
func (s Sinks) Observe(ctx context.Context, snap rocket.Snapshot) error {
	var errs []error
	for _, sink := range s {
		if err := sink.Observe(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
