package rocket

// Command is the only way for the outside world to influence the flight. It is
// applied at a tick boundary; the zero value changes nothing.
type Command struct {
	// Attitude inputs in [-1, 1], held for the whole tick.
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`

	ThrottleDelta  float64 `json:"throttleDelta"`  // fraction of the max thrust
	MassDelta      float64 `json:"massDelta"`      // kg of dry mass
	TimeScaleDelta float64 `json:"timeScaleDelta"` // added to the time scale
	DragDelta      float64 `json:"dragDelta"`      // added to the drag coefficient

	Pause bool `json:"pause"` // toggles the pause state
	Reset bool `json:"reset"`
}

// IsZero returns whether c has no effect.
func (c Command) IsZero() bool {
	return c == Command{}
}

// Merge combines two commands received during the same tick: deltas add, attitude
// inputs add and are clamped to [-1, 1], pause toggles cancel out, and a reset wins.
func (c Command) Merge(o Command) Command {
	c, o = c.sanitized(), o.sanitized()
	return Command{
		Pitch:          clamp(c.Pitch+o.Pitch, -1, 1),
		Yaw:            clamp(c.Yaw+o.Yaw, -1, 1),
		Roll:           clamp(c.Roll+o.Roll, -1, 1),
		ThrottleDelta:  c.ThrottleDelta + o.ThrottleDelta,
		MassDelta:      c.MassDelta + o.MassDelta,
		TimeScaleDelta: c.TimeScaleDelta + o.TimeScaleDelta,
		DragDelta:      c.DragDelta + o.DragDelta,
		Pause:          c.Pause != o.Pause,
		Reset:          c.Reset || o.Reset,
	}
}

// sanitized zeroes non-finite fields and clamps the attitude inputs.
func (c Command) sanitized() Command {
	for _, f := range []*float64{&c.Pitch, &c.Yaw, &c.Roll, &c.ThrottleDelta, &c.MassDelta, &c.TimeScaleDelta, &c.DragDelta} {
		if !finite(*f) {
			*f = 0
		}
	}
	c.Pitch = clamp(c.Pitch, -1, 1)
	c.Yaw = clamp(c.Yaw, -1, 1)
	c.Roll = clamp(c.Roll, -1, 1)
	return c
}
