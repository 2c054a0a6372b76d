// Package util provides price helpers shared across the tracker. NSE
// option premiums trade in 0.05 increments, so synthetic and displayed
// prices are aligned to that tick.
package util

import "math"

// OptionTick is the minimum price increment for NSE option premiums.
const OptionTick = 0.05

// RoundToTick rounds x to the nearest tick increment. NaN, infinities and
// zero ticks pass x through unchanged; negative ticks use their magnitude.
func RoundToTick(x, tick float64) float64 {
	if !finite(x) {
		return x
	}
	tick = math.Abs(tick)
	if tick == 0 {
		return x
	}
	return math.Round(x/tick) * tick
}

// FloorToTick rounds x down to the nearest tick increment.
func FloorToTick(x, tick float64) float64 {
	if !finite(x) {
		return x
	}
	tick = math.Abs(tick)
	if tick == 0 {
		return x
	}
	// Nudge by a tiny epsilon so values a hair under a tick boundary
	// (float artifacts) land on the boundary itself.
	return math.Floor(x/tick+1e-9) * tick
}

// CeilToTick rounds x up to the nearest tick increment.
func CeilToTick(x, tick float64) float64 {
	if !finite(x) {
		return x
	}
	tick = math.Abs(tick)
	if tick == 0 {
		return x
	}
	return math.Ceil(x/tick-1e-9) * tick
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
