package joystick

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
)

// DefaultSweepInterval is how often a sweep polls the sampler.
const DefaultSweepInterval = 5 * time.Millisecond

// SampleFunc reads one raw sample from each axis.
type SampleFunc func() (x, y int, err error)

// SweepResult holds the calibration observed during a sweep.
type SweepResult struct {
	X       Calibration
	Y       Calibration
	Samples int
}

// Sweep is a quick auto calibration. The operator moves the stick to all
// extremes while the sweep runs; the observed extrema become Min/Max and the
// mean of all samples becomes Mid. The mean is only an approximation of the
// rest position, it is biased if the stick does not pass through center.
type Sweep struct {
	Clock    clockwork.Clock
	Interval time.Duration
}

type axisStats struct {
	min, max, sum int
}

func newAxisStats() axisStats {
	return axisStats{min: RawMax, max: 0}
}

func (a *axisStats) add(v int) {
	if v < a.min {
		a.min = v
	}
	if v > a.max {
		a.max = v
	}
	a.sum += v
}

func (a *axisStats) calibration(n int) Calibration {
	return Calibration{Min: a.min, Mid: a.sum / maxInt(1, n), Max: a.max}
}

// Run polls sample until duration has elapsed. With no samples taken the
// result has Samples == 0 and Mid == 0; callers should treat that as a
// configuration error rather than use it.
func (s *Sweep) Run(ctx context.Context, duration time.Duration, sample SampleFunc) (SweepResult, error) {
	clk := s.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	logger.Infof("Calibrating... move joystick to all extremes for %v", duration)
	xs, ys := newAxisStats(), newAxisStats()
	n := 0
	deadline := clk.Now().Add(duration)
	for clk.Now().Before(deadline) {
		x, y, err := sample()
		if err != nil {
			return SweepResult{}, err
		}
		xs.add(x)
		ys.add(y)
		n++

		select {
		case <-ctx.Done():
			return SweepResult{}, ctx.Err()
		case <-clk.After(interval):
		}
	}

	res := SweepResult{X: xs.calibration(n), Y: ys.calibration(n), Samples: n}
	logger.Infof("Calibration done: x %+v y %+v (%d samples)", res.X, res.Y, n)
	return res, nil
}
