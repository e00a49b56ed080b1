package led

import (
	"fmt"
	"sync"
	"time"

	"github.com/gr-butler/joystick/env"
	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

type outPin interface {
	Out(l gpio.Level) error
}

// LED is a status light. Blink requests never block the caller; while a
// flash is in progress further requests are dropped.
type LED struct {
	Name    string
	lock    sync.Mutex
	on      bool
	blink   chan struct{}
	closed  chan struct{}
	once    sync.Once
	gpioPin outPin
}

// NewLED drives the LED on the named GPIO pin.
func NewLED(name string, GPIOPin string) (*LED, error) {
	logger.Infof("Creating new LED on pin [%v] called [%v]", GPIOPin, name)
	p := gpioreg.ByName(GPIOPin)
	if p == nil {
		return nil, fmt.Errorf("failed to find %v pin for LED %v", GPIOPin, name)
	}
	return newLED(name, p), nil
}

func newLED(name string, pin outPin) *LED {
	l := &LED{
		Name:    name,
		blink:   make(chan struct{}, 1),
		closed:  make(chan struct{}),
		gpioPin: pin,
	}
	_ = l.gpioPin.Out(gpio.Low)

	go func() {
		for {
			select {
			case <-l.blink:
				l.flash()
			case <-l.closed:
				l.Off()
				return
			}
		}
	}()
	return l
}

// Blink queues a single flash.
func (l *LED) Blink() {
	select {
	case l.blink <- struct{}{}:
	default:
	}
}

// On lights the LED steadily; blinks then flash it off.
func (l *LED) On() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.on = true
	_ = l.gpioPin.Out(gpio.High)
}

func (l *LED) Off() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.on = false
	_ = l.gpioPin.Out(gpio.Low)
}

func (l *LED) Close() {
	l.once.Do(func() { close(l.closed) })
}

func (l *LED) flash() {
	l.lock.Lock()
	defer l.lock.Unlock()
	// if the LED is currently off, then flash on
	if !l.on {
		_ = l.gpioPin.Out(gpio.High)
		time.Sleep(env.LEDFlashDuration)
		_ = l.gpioPin.Out(gpio.Low)
	} else {
		// 'off' flash
		_ = l.gpioPin.Out(gpio.Low)
		time.Sleep(env.LEDFlashDuration)
		_ = l.gpioPin.Out(gpio.High)
	}
}
