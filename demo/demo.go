// Package demo runs both ends of the link in one process over an in-memory
// radio, with a mock stick standing in for the hardware.
package demo

import (
	"context"

	"github.com/gr-butler/joystick/config"
	"github.com/gr-butler/joystick/link"
	"github.com/gr-butler/joystick/receive"
	"github.com/gr-butler/joystick/sensors"
	"github.com/gr-butler/joystick/transmit"
	logger "github.com/sirupsen/logrus"
)

var (
	TxAddr = link.Addr{0x02, 0x4A, 0x4F, 0x59, 0x00, 0x01}
	RxAddr = link.Addr{0x02, 0x4A, 0x4F, 0x59, 0x00, 0x02}
)

// NewTransmitter builds a transmitter reading a mock stick and sending from
// station to peer.
func NewTransmitter(cfg *config.Config, station *link.Station, peer link.Addr) *transmit.Transmitter {
	stick := sensors.NewMockStick()
	return transmit.New(transmit.Config{
		Peer:     peer,
		RateHz:   cfg.SendHz,
		Alpha:    cfg.Alpha,
		XChannel: cfg.Hardware.XChannel,
		YChannel: cfg.Hardware.YChannel,
		CalX:     cfg.Calibration.X,
		CalY:     cfg.Calibration.Y,
	}, stick, stick.Button(), station, nil)
}

// Go runs fn in the background and logs how it ended.
func Go(ctx context.Context, name string, fn func(context.Context) error) {
	go func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("Demo %s stopped [%v]", name, err)
		}
	}()
}

// Receiver builds a receiver on station publishing to sinks.
func Receiver(cfg *config.Config, station *link.Station, sinks ...receive.Sink) *receive.Receiver {
	return receive.New(station, cfg.Receiver.Idle, nil, sinks...)
}
