package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gr-butler/joystick/env"
	"github.com/gr-butler/joystick/joystick"
	"github.com/gr-butler/joystick/link"
	"gopkg.in/yaml.v3"
)

const (
	LinkSerial   = "serial"
	LinkLoopback = "loopback"
)

// Config is the YAML file shared by joytx and joyrx. Each command only looks
// at the sections it needs.
type Config struct {
	Peer          string        `yaml:"peer"`
	SendHz        int           `yaml:"send_hz"`
	Alpha         float64       `yaml:"alpha"`
	Calibration   Calibrations  `yaml:"calibration"`
	AutoCalibrate time.Duration `yaml:"auto_calibrate"`
	Hardware      Hardware      `yaml:"hardware"`
	Link          Link          `yaml:"link"`
	Receiver      Receiver      `yaml:"receiver"`
	MetricsAddr   string        `yaml:"metrics_addr"`
}

type Calibrations struct {
	X joystick.Calibration `yaml:"x"`
	Y joystick.Calibration `yaml:"y"`
}

type Hardware struct {
	I2CBus      string `yaml:"i2c_bus"`
	ADCAddress  uint16 `yaml:"adc_addr"`
	XChannel    int    `yaml:"x_channel"`
	YChannel    int    `yaml:"y_channel"`
	ButtonPin   string `yaml:"button_pin"`
	FullScaleMV int    `yaml:"full_scale_mv"`
	LinkLED     string `yaml:"link_led"`
	ReceivedLED string `yaml:"rx_led"`
}

type Link struct {
	Kind string `yaml:"kind"`
	Port string `yaml:"port"`
	Baud uint   `yaml:"baud"`
}

type Receiver struct {
	Idle     time.Duration `yaml:"idle"`
	HTTPAddr string        `yaml:"http_addr"`
	MQTT     MQTT          `yaml:"mqtt"`
	Postgres Postgres      `yaml:"postgres"`
	Webhook  Webhook       `yaml:"webhook"`
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

type Webhook struct {
	URL string `yaml:"url"`
}

func Default() *Config {
	return &Config{
		SendHz: env.DefaultSendHz,
		Alpha:  env.DefaultAlpha,
		Calibration: Calibrations{
			X: joystick.DefaultCalibration,
			Y: joystick.DefaultCalibration,
		},
		Hardware: Hardware{
			ADCAddress:  env.ADCAddress,
			XChannel:    env.XChannel,
			YChannel:    env.YChannel,
			ButtonPin:   env.ButtonIn,
			FullScaleMV: env.FullScaleMilliVolts,
			LinkLED:     env.LinkLed,
			ReceivedLED: env.ReceivedLed,
		},
		Link: Link{
			Kind: LinkSerial,
			Port: "/dev/ttyUSB0",
			Baud: env.SerialBaud,
		},
		Receiver: Receiver{
			Idle: env.DefaultPollIdle,
			MQTT: MQTT{
				ClientID: "joyrx",
				Topic:    "joystick/telemetry",
			},
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("JOYSTICK_PG_DSN"); ok {
		c.Receiver.Postgres.DSN = v
	}
	if v, ok := os.LookupEnv("JOYSTICK_MQTT_BROKER"); ok {
		c.Receiver.MQTT.Broker = v
	}
}

// Validate reports every problem found, not just the first.
func (c *Config) Validate() error {
	var errs []string
	if c.Peer != "" {
		if _, err := link.ParseAddr(c.Peer); err != nil {
			errs = append(errs, fmt.Sprintf("peer: %v", err))
		}
	}
	if c.SendHz <= 0 || c.SendHz > 1000 {
		errs = append(errs, fmt.Sprintf("send_hz must be 1-1000, got %d", c.SendHz))
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		errs = append(errs, fmt.Sprintf("alpha must be in (0, 1], got %v", c.Alpha))
	}
	if c.AutoCalibrate < 0 {
		errs = append(errs, fmt.Sprintf("auto_calibrate must not be negative, got %v", c.AutoCalibrate))
	}
	for axis, cal := range map[string]joystick.Calibration{"x": c.Calibration.X, "y": c.Calibration.Y} {
		if err := validateCalibration(cal); err != nil {
			errs = append(errs, fmt.Sprintf("calibration.%s: %v", axis, err))
		}
	}
	for name, ch := range map[string]int{"x_channel": c.Hardware.XChannel, "y_channel": c.Hardware.YChannel} {
		if ch < 0 || ch > 3 {
			errs = append(errs, fmt.Sprintf("hardware.%s must be 0-3, got %d", name, ch))
		}
	}
	if c.Hardware.XChannel == c.Hardware.YChannel {
		errs = append(errs, "hardware.x_channel and hardware.y_channel must differ")
	}
	if c.Hardware.FullScaleMV <= 0 {
		errs = append(errs, fmt.Sprintf("hardware.full_scale_mv must be positive, got %d", c.Hardware.FullScaleMV))
	}
	switch c.Link.Kind {
	case LinkSerial:
		if c.Link.Port == "" {
			errs = append(errs, "link.port is required for a serial link")
		}
		if c.Link.Baud == 0 {
			errs = append(errs, "link.baud must be positive")
		}
	case LinkLoopback:
	default:
		errs = append(errs, fmt.Sprintf("link.kind must be %q or %q, got %q", LinkSerial, LinkLoopback, c.Link.Kind))
	}
	if c.Receiver.Idle <= 0 {
		errs = append(errs, fmt.Sprintf("receiver.idle must be positive, got %v", c.Receiver.Idle))
	}
	if c.Receiver.MQTT.Broker != "" && c.Receiver.MQTT.Topic == "" {
		errs = append(errs, "receiver.mqtt.topic is required when a broker is set")
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return errors.New("invalid config: " + strings.Join(errs, "; "))
	}
	return nil
}

func validateCalibration(cal joystick.Calibration) error {
	if cal.Min < 0 || cal.Max > joystick.RawMax {
		return fmt.Errorf("values must be within 0-%d, got %+v", joystick.RawMax, cal)
	}
	if !(cal.Min <= cal.Mid && cal.Mid <= cal.Max) {
		return fmt.Errorf("need min <= mid <= max, got %+v", cal)
	}
	return nil
}

// PeerAddr returns the parsed peer, which Validate has already checked.
func (c *Config) PeerAddr() (link.Addr, error) {
	if c.Peer == "" {
		return link.Addr{}, errors.New("no peer configured")
	}
	return link.ParseAddr(c.Peer)
}
