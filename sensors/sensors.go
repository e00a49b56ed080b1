package sensors

import (
	"fmt"

	"github.com/gr-butler/joystick/env"
	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

/*
 * Sensors reads the joystick hardware: two analog axes on an ADS1115 and an
 * optional push button on a GPIO with pull up.
 */

type Opts struct {
	I2CBus       string // "" opens the default bus
	ADCAddress   uint16
	XChannel     int
	YChannel     int
	FullScaleMV  int
	SampleRateHz int
	ButtonPin    string // "" when the stick has no button wired
}

func DefaultOpts() Opts {
	return Opts{
		ADCAddress:   env.ADCAddress,
		XChannel:     env.XChannel,
		YChannel:     env.YChannel,
		FullScaleMV:  env.FullScaleMilliVolts,
		SampleRateHz: env.ADCSampleRateHz,
		ButtonPin:    env.ButtonIn,
	}
}

type Sensors struct {
	Stick  *Stick
	Button *Button // nil without a button
	Bus    i2c.BusCloser
}

var adsChannels = []ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}

// InitHost loads the periph drivers. InitSensors calls it, LEDs without
// sensors need it first.
func InitHost() error {
	if _, err := host.Init(); err != nil {
		logger.Errorf("Failed to init host [%v]", err)
		return err
	}
	return nil
}

// InitSensors opens the I2C bus, the ADC pins for both axes and the button.
func InitSensors(o Opts) (*Sensors, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}

	bus, err := i2creg.Open(o.I2CBus)
	if err != nil {
		logger.Errorf("Failed to open I²C [%v]", err)
		return nil, err
	}
	s := &Sensors{Bus: bus}

	logger.Infof("Starting joystick ADC I2C [%x]", o.ADCAddress)
	adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: o.ADCAddress})
	if err != nil {
		logger.Errorf("Failed to open ADS1115 [%v]", err)
		_ = bus.Close()
		return nil, err
	}

	fullScale := physic.ElectricPotential(o.FullScaleMV) * physic.MilliVolt
	rate := physic.Frequency(o.SampleRateHz) * physic.Hertz
	pins := make(map[int]adcPin)
	for _, ch := range []int{o.XChannel, o.YChannel} {
		if ch < 0 || ch >= len(adsChannels) {
			_ = bus.Close()
			return nil, fmt.Errorf("ADC channel %d out of range", ch)
		}
		p, err := adc.PinForChannel(adsChannels[ch], fullScale, rate, ads1x15.BestQuality)
		if err != nil {
			logger.Errorf("Failed to open ADC channel %d [%v]", ch, err)
			_ = bus.Close()
			return nil, err
		}
		pins[ch] = p
	}
	s.Stick = NewStick(pins, fullScale)

	if o.ButtonPin != "" {
		bp := gpioreg.ByName(o.ButtonPin)
		if bp == nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to find %v - button pin", o.ButtonPin)
		}
		logger.Infof("%s: %s", bp, bp.Function())
		if err := bp.In(gpio.PullUp, gpio.NoEdge); err != nil {
			logger.Errorf("Failed to set button pull up [%v]", err)
			_ = s.Close()
			return nil, err
		}
		s.Button = NewButton(bp)
	}

	logger.Info("Sensors initialized.")
	return s, nil
}

func (s *Sensors) Close() error {
	if s.Stick != nil {
		s.Stick.Halt()
	}
	return s.Bus.Close()
}
