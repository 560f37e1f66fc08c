package service

import (
	"math"

	"stickman_shake/internal/game"
)

// Accumulator batches pointer travel so one earn write covers at least FlushDistance pixels.
// Owned by a single session; not safe for concurrent use.
type Accumulator struct {
	distance float64
}

// Move adds the travel of one pointer event. While perPixel is not positive nothing is
// accumulated. Returns the distance to pay out once the threshold is crossed, and resets.
func (a *Accumulator) Move(dx, dy, perPixel float64) (float64, bool) {
	if perPixel <= 0 {
		return 0, false
	}
	d := math.Hypot(dx, dy)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	a.distance += d
	if a.distance < game.FlushDistance {
		return 0, false
	}
	out := a.distance
	a.distance = 0
	return out, true
}

// Pending returns the distance not yet flushed.
func (a *Accumulator) Pending() float64 {
	return a.distance
}

// Reset drops pending distance (sign-out).
func (a *Accumulator) Reset() {
	a.distance = 0
}
