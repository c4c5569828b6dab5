package domain

import "math"

// RoundHalfUp rounds x to the given number of decimal places, with ties
// going toward positive infinity.
func RoundHalfUp(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Floor(x*p+0.5) / p
}
