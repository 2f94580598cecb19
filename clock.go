package rocket

// Clock is the simulation clock.
type Clock struct {
	Time      float64 `json:"time"` // s of simulated time since reset
	TimeScale float64 `json:"timeScale"`
	Paused    bool    `json:"paused"`
}

// Step returns the simulated time corresponding to wallDt of wall time.
func (c Clock) Step(wallDt float64) float64 {
	if c.Frozen() {
		return 0
	}
	return wallDt * c.TimeScale
}

// Frozen returns whether the clock will not advance.
func (c Clock) Frozen() bool {
	return c.Paused || !(c.TimeScale > 0)
}
