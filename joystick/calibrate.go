package joystick

import "math"

const (
	center = 128
	// counts either side of center
	halfTravel = 127
)

// Calibration is the three point calibration of one axis, in raw ADC counts.
// Callers are expected to keep Min <= Mid <= Max.
type Calibration struct {
	Min int `yaml:"min" json:"min"`
	Mid int `yaml:"mid" json:"mid"`
	Max int `yaml:"max" json:"max"`
}

// DefaultCalibration covers most hobby joysticks on a 12 bit ADC.
var DefaultCalibration = Calibration{Min: 300, Mid: 2000, Max: 3800}

// MapToByte maps a smoothed sample to 0..255 with Mid landing on 128.
// The two halves of travel are scaled separately so that sticks with
// uneven travel still rest at center. Values outside Min..Max are
// extrapolated and then clamped.
func MapToByte(value int, cal Calibration) int {
	var v float64
	if value >= cal.Mid {
		span := maxInt(1, cal.Max-cal.Mid)
		v = center + math.Floor(halfTravel*float64(value-cal.Mid)/float64(span))
	} else {
		span := maxInt(1, cal.Mid-cal.Min)
		v = math.Floor(halfTravel * float64(value-cal.Min) / float64(span))
	}
	return Clamp8(int(v))
}

// Clamp8 bounds n to a byte.
func Clamp8(n int) int {
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
