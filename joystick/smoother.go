package joystick

import "math"

// RawMax is the largest value a 12 bit ADC sample can take.
const RawMax = 4095

// Smooth applies one step of an exponential moving average.
// Higher alpha tracks the raw sample faster and keeps more noise.
func Smooth(prev, raw int, alpha float64) int {
	return int(math.Round((1-alpha)*float64(prev) + alpha*float64(raw)))
}
