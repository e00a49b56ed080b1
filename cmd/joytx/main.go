package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gr-butler/joystick/config"
	"github.com/gr-butler/joystick/demo"
	"github.com/gr-butler/joystick/env"
	"github.com/gr-butler/joystick/led"
	"github.com/gr-butler/joystick/link"
	"github.com/gr-butler/joystick/metrics"
	"github.com/gr-butler/joystick/sensors"
	"github.com/gr-butler/joystick/sink"
	"github.com/gr-butler/joystick/transmit"
	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const version = "GRB-Joystick-TX-1.0.0"

const defaultCalibrateFor = 3 * time.Second

var args env.Args

func main() {
	rootCmd := &cobra.Command{
		Use:   "joytx",
		Short: "Joystick transmitter",
		Long: `joytx samples a two axis analog joystick and its button, smooths and
calibrates the readings and sends a 3 byte frame to the receiver 50 times
a second over the radio bridge.

Use --test to run without joystick hardware and --demo to run the receiver
in the same process over an in-memory radio.`,
		RunE:         run,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&args.ConfigPath, "config", "c", "", "YAML config file")
	rootCmd.Flags().BoolVar(&args.Test, "test", false, "test mode, uses a mock stick instead of the ADC")
	rootCmd.Flags().BoolVarP(&args.Verbose, "verbose", "v", false, "debug logging")
	rootCmd.Flags().BoolVar(&args.Calibrate, "calibrate", false, "run a quick calibration sweep before sending")
	rootCmd.Flags().BoolVar(&args.Demo, "demo", false, "loop frames back to an in-process receiver")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if args.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}
	logger.Infof("Starting joystick transmitter [%v]", version)

	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go metrics.Serve(cfg.MetricsAddr)
	}

	loopback := args.Demo || cfg.Link.Kind == config.LinkLoopback
	mock := args.Test || loopback

	var peer link.Addr
	if loopback && cfg.Peer == "" {
		peer = demo.RxAddr
	} else if peer, err = cfg.PeerAddr(); err != nil {
		return err
	}

	var (
		sampler transmit.AnalogSampler
		button  transmit.DigitalInput
	)
	if mock {
		logger.Info("TEST MODE, using a mock stick")
		stick := sensors.NewMockStick()
		sampler, button = stick, stick.Button()
	} else {
		s, err := sensors.InitSensors(sensorOpts(cfg))
		if err != nil {
			logger.Errorf("Failed to initialise sensors!! [%v]", err)
			return err
		}
		defer s.Close()
		sampler = s.Stick
		if s.Button != nil {
			button = s.Button
		}
	}

	var pl link.PeerLink
	if loopback {
		air := link.NewAir()
		pl = air.Attach(demo.TxAddr)
		rx := demo.Receiver(cfg, air.Attach(peer), sink.NewConsole(os.Stdout))
		demo.Go(ctx, "receiver", rx.Run)
	} else {
		serial, err := link.OpenSerial(cfg.Link.Port, cfg.Link.Baud)
		if err != nil {
			return err
		}
		defer serial.Close()
		pl = serial
	}

	tx := transmit.New(transmit.Config{
		Peer:     peer,
		RateHz:   cfg.SendHz,
		Alpha:    cfg.Alpha,
		XChannel: cfg.Hardware.XChannel,
		YChannel: cfg.Hardware.YChannel,
		CalX:     cfg.Calibration.X,
		CalY:     cfg.Calibration.Y,
	}, sampler, button, pl, clockwork.NewRealClock())

	if !mock && cfg.Hardware.LinkLED != "" {
		l, err := led.NewLED("link", cfg.Hardware.LinkLED)
		if err != nil {
			logger.Warnf("No link LED [%v]", err)
		} else {
			defer l.Close()
			tx.Indicator = l
		}
	}

	if args.Calibrate || cfg.AutoCalibrate > 0 {
		d := cfg.AutoCalibrate
		if d == 0 {
			d = defaultCalibrateFor
		}
		err := tx.Calibrate(ctx, d)
		switch {
		case errors.Is(err, transmit.ErrEmptySweep):
			logger.Errorf("Calibration ignored, keeping configured values [%v]", err)
		case err != nil:
			return err
		}
	}

	err = tx.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("Transmitter stopped")
		return nil
	}
	return err
}

func sensorOpts(cfg *config.Config) sensors.Opts {
	o := sensors.DefaultOpts()
	o.I2CBus = cfg.Hardware.I2CBus
	o.ADCAddress = cfg.Hardware.ADCAddress
	o.XChannel = cfg.Hardware.XChannel
	o.YChannel = cfg.Hardware.YChannel
	o.FullScaleMV = cfg.Hardware.FullScaleMV
	o.ButtonPin = cfg.Hardware.ButtonPin
	return o
}
