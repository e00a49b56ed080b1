package transmit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gr-butler/joystick/env"
	"github.com/gr-butler/joystick/frame"
	"github.com/gr-butler/joystick/joystick"
	"github.com/gr-butler/joystick/link"
	"github.com/gr-butler/joystick/metrics"
	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
)

type State int32

const (
	StateInit State = iota
	StateRunning
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateHalted:
		return "HALTED"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// AnalogSampler returns a raw sample 0..joystick.RawMax. It must not block.
type AnalogSampler interface {
	Read(channel int) (int, error)
}

// DigitalInput returns 0 when pressed and 1 when released.
type DigitalInput interface {
	Read() (int, error)
}

// Indicator is told about link faults, usually an LED.
type Indicator interface {
	Blink()
}

// ErrHalted is returned once a hardware fault has stopped the transmitter.
var ErrHalted = errors.New("transmitter halted")

// ErrEmptySweep means a calibration sweep took no samples.
var ErrEmptySweep = errors.New("calibration sweep took no samples")

// HardwareError is a failed read from the stick or button. It stops the loop.
type HardwareError struct {
	Source string
	Err    error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("hardware read %s: %v", e.Source, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }

type Config struct {
	Peer     link.Addr
	RateHz   int
	Alpha    float64
	XChannel int
	YChannel int
	CalX     joystick.Calibration
	CalY     joystick.Calibration
}

func (c Config) period() time.Duration {
	hz := c.RateHz
	if hz <= 0 {
		hz = env.DefaultSendHz
	}
	return time.Second / time.Duration(hz)
}

// Transmitter samples the stick and sends one frame per tick to the peer.
type Transmitter struct {
	cfg       Config
	sampler   AnalogSampler
	button    DigitalInput // nil: always released
	link      link.PeerLink
	clock     clockwork.Clock
	Indicator Indicator

	state atomic.Int32

	calMu      sync.Mutex
	calX, calY joystick.Calibration

	seeded bool
	sx, sy int
}

func New(cfg Config, sampler AnalogSampler, button DigitalInput, l link.PeerLink, clock clockwork.Clock) *Transmitter {
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = env.DefaultAlpha
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Transmitter{
		cfg:     cfg,
		sampler: sampler,
		button:  button,
		link:    l,
		clock:   clock,
		calX:    cfg.CalX,
		calY:    cfg.CalY,
	}
}

func (t *Transmitter) State() State {
	return State(t.state.Load())
}

func (t *Transmitter) Calibration() (x, y joystick.Calibration) {
	t.calMu.Lock()
	defer t.calMu.Unlock()
	return t.calX, t.calY
}

func (t *Transmitter) halt(err error) error {
	t.state.Store(int32(StateHalted))
	logger.Errorf("Transmitter halted [%v]", err)
	return err
}

func (t *Transmitter) readAxes() (int, int, error) {
	x, err := t.sampler.Read(t.cfg.XChannel)
	if err != nil {
		return 0, 0, &HardwareError{Source: "x axis", Err: err}
	}
	y, err := t.sampler.Read(t.cfg.YChannel)
	if err != nil {
		return 0, 0, &HardwareError{Source: "y axis", Err: err}
	}
	return x, y, nil
}

func (t *Transmitter) readButton() (int, error) {
	if t.button == nil {
		return 1, nil
	}
	b, err := t.button.Read()
	if err != nil {
		return 0, &HardwareError{Source: "button", Err: err}
	}
	return b, nil
}

func (t *Transmitter) seed() error {
	x, y, err := t.readAxes()
	if err != nil {
		return err
	}
	t.sx, t.sy = x, y
	t.seeded = true
	return nil
}

func (t *Transmitter) registerPeer() error {
	metrics.Prom_peerRegistrations.Inc()
	return t.link.RegisterPeer(t.cfg.Peer)
}

// Calibrate runs a quick sweep on the stick and, if it saw any samples,
// replaces both axis calibrations with the result.
func (t *Transmitter) Calibrate(ctx context.Context, duration time.Duration) error {
	sweep := joystick.Sweep{Clock: t.clock, Interval: env.SweepInterval}
	res, err := sweep.Run(ctx, duration, t.readAxes)
	if err != nil {
		var hwErr *HardwareError
		if errors.As(err, &hwErr) {
			return t.halt(err)
		}
		return err
	}
	if res.Samples == 0 {
		return ErrEmptySweep
	}
	t.calMu.Lock()
	t.calX, t.calY = res.X, res.Y
	t.calMu.Unlock()
	return nil
}

// Run registers the peer, seeds the smoothers and then ticks until ctx is
// done or a hardware read fails.
func (t *Transmitter) Run(ctx context.Context) error {
	if t.State() == StateHalted {
		return ErrHalted
	}
	logger.Infof("Sending to %v at %d Hz", t.cfg.Peer, int(time.Second/t.cfg.period()))
	if err := t.registerPeer(); err != nil {
		// it may already be registered
		logger.Warnf("Register peer %v [%v]", t.cfg.Peer, err)
	}
	if err := t.seed(); err != nil {
		return t.halt(err)
	}
	t.state.Store(int32(StateRunning))

	period := t.cfg.period()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.Tick(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.clock.After(period):
		}
	}
}

// Tick reads, smooths, calibrates and sends one frame. Only a hardware
// read failure is returned; a failed send is answered with a single
// attempt to register the peer again.
func (t *Transmitter) Tick() error {
	if t.State() == StateHalted {
		return ErrHalted
	}
	if !t.seeded {
		if err := t.seed(); err != nil {
			return t.halt(err)
		}
	}

	rx, ry, err := t.readAxes()
	if err != nil {
		return t.halt(err)
	}
	t.sx = joystick.Smooth(t.sx, rx, t.cfg.Alpha)
	t.sy = joystick.Smooth(t.sy, ry, t.cfg.Alpha)

	calX, calY := t.Calibration()
	x := joystick.MapToByte(t.sx, calX)
	y := joystick.MapToByte(t.sy, calY)

	btn, err := t.readButton()
	if err != nil {
		return t.halt(err)
	}

	payload := frame.Encode(uint8(x), uint8(y), uint8(joystick.Clamp8(btn)))
	metrics.Prom_axis.WithLabelValues("x").Set(float64(x))
	metrics.Prom_axis.WithLabelValues("y").Set(float64(y))
	metrics.Prom_button.Set(float64(btn))

	if err := t.link.Send(t.cfg.Peer, payload); err != nil {
		metrics.Prom_sendFailures.Inc()
		logger.Debugf("Send to %v failed [%v], registering peer again", t.cfg.Peer, err)
		if t.Indicator != nil {
			t.Indicator.Blink()
		}
		if rerr := t.registerPeer(); rerr != nil {
			logger.Debugf("Register peer %v [%v]", t.cfg.Peer, rerr)
		}
		return nil
	}
	metrics.Prom_framesSent.Inc()
	logger.Debugf("X: %d Y: %d BTN: %d", x, y, btn)
	return nil
}
