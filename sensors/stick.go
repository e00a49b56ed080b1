package sensors

import (
	"fmt"

	"github.com/gr-butler/joystick/joystick"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

type adcPin interface {
	Read() (analog.Sample, error)
}

// Stick reads the joystick axes as 12 bit raw values, whatever the
// resolution of the ADC behind it.
type Stick struct {
	pins      map[int]adcPin
	fullScale physic.ElectricPotential
}

func NewStick(pins map[int]adcPin, fullScale physic.ElectricPotential) *Stick {
	return &Stick{pins: pins, fullScale: fullScale}
}

// Read returns the raw sample of one channel, 0..RawMax.
func (s *Stick) Read(channel int) (int, error) {
	p, ok := s.pins[channel]
	if !ok {
		return 0, fmt.Errorf("no ADC pin for channel %d", channel)
	}
	sample, err := p.Read()
	if err != nil {
		return 0, fmt.Errorf("ADC channel %d: %w", channel, err)
	}
	return voltsToRaw(sample.V, s.fullScale), nil
}

func (s *Stick) Halt() {
	for _, p := range s.pins {
		if h, ok := p.(interface{ Halt() error }); ok {
			_ = h.Halt()
		}
	}
}

func voltsToRaw(v, fullScale physic.ElectricPotential) int {
	if fullScale <= 0 {
		return 0
	}
	raw := int64(v) * joystick.RawMax / int64(fullScale)
	if raw < 0 {
		return 0
	}
	if raw > joystick.RawMax {
		return joystick.RawMax
	}
	return int(raw)
}

type levelPin interface {
	Read() gpio.Level
}

// Button is an active low push button: 0 pressed, 1 released.
type Button struct {
	pin levelPin
}

func NewButton(p levelPin) *Button {
	return &Button{pin: p}
}

func (b *Button) Read() (int, error) {
	if b.pin.Read() == gpio.Low {
		return 0, nil
	}
	return 1, nil
}
