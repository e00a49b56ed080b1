package env

import "time"

const (
	GPIO06 = "GPIO06" // joystick button, active low
	GPIO13 = "GPIO13" // link status LED
	GPIO19 = "GPIO19" // frame received LED

	ButtonIn    = GPIO06
	LinkLed     = GPIO13
	ReceivedLed = GPIO19

	// ADS1115 on the default I2C bus
	ADCAddress = 0x48
	XChannel   = 0
	YChannel   = 1
	// ADC input range used for the 12 bit raw scale, the stick is fed from 3.3V
	FullScaleMilliVolts = 3300
	ADCSampleRateHz     = 475

	DefaultSendHz   = 50
	DefaultAlpha    = 0.25
	DefaultPollIdle = 5 * time.Millisecond
	SweepInterval   = 5 * time.Millisecond

	SerialBaud = 115200

	LEDFlashDuration = time.Millisecond * 50

	// one slot per second
	RateWindowSeconds = 60
)
