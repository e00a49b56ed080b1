package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gr-butler/joystick/config"
	"github.com/gr-butler/joystick/demo"
	"github.com/gr-butler/joystick/env"
	"github.com/gr-butler/joystick/led"
	"github.com/gr-butler/joystick/link"
	"github.com/gr-butler/joystick/metrics"
	"github.com/gr-butler/joystick/monitor"
	"github.com/gr-butler/joystick/receive"
	"github.com/gr-butler/joystick/sensors"
	"github.com/gr-butler/joystick/sink"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const version = "GRB-Joystick-RX-1.0.0"

const identifyTimeout = 2 * time.Second

var args env.Args

func main() {
	rootCmd := &cobra.Command{
		Use:   "joyrx",
		Short: "Joystick receiver",
		Long: `joyrx polls the radio bridge for joystick frames and publishes them to
the console, MQTT, postgres, a webhook and websocket clients, whichever are
configured.

Use --demo to generate frames from an in-process transmitter and --tui for a
live terminal view.`,
		RunE:         run,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&args.ConfigPath, "config", "c", "", "YAML config file")
	rootCmd.Flags().BoolVar(&args.Test, "test", false, "test mode, no LED")
	rootCmd.Flags().BoolVarP(&args.Verbose, "verbose", "v", false, "debug logging")
	rootCmd.Flags().BoolVar(&args.Demo, "demo", false, "receive from an in-process mock transmitter")
	rootCmd.Flags().BoolVar(&args.TUI, "tui", false, "show a live terminal monitor instead of printing events")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if args.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}
	logger.Infof("Starting joystick receiver [%v]", version)

	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	loopback := args.Demo || cfg.Link.Kind == config.LinkLoopback
	var pl link.PeerLink
	if loopback {
		air := link.NewAir()
		station := air.Attach(demo.RxAddr)
		tx := demo.NewTransmitter(cfg, air.Attach(demo.TxAddr), demo.RxAddr)
		demo.Go(ctx, "transmitter", tx.Run)
		pl = station
	} else {
		serial, err := link.OpenSerial(cfg.Link.Port, cfg.Link.Baud)
		if err != nil {
			return err
		}
		closers = append(closers, serial)
		pl = serial
	}

	logger.Info(readyMessage(pl))

	var sinks []receive.Sink
	if args.TUI {
		// the monitor owns the terminal, keep logs out of it
		logger.SetOutput(io.Discard)
	} else {
		sinks = append(sinks, sink.NewConsole(os.Stdout))
	}

	// anything that can block goes behind a queue so polling never waits
	addQueued := func(snk receive.Sink) {
		a := receive.NewAsync(snk, receive.DefaultQueueSize)
		closers = append(closers, a)
		sinks = append(sinks, a)
	}

	if mq := cfg.Receiver.MQTT; mq.Broker != "" {
		m, err := sink.DialMQTT(mq.Broker, mq.ClientID, mq.Topic)
		if err != nil {
			return err
		}
		addQueued(m)
	}
	if dsn := cfg.Receiver.Postgres.DSN; dsn != "" {
		p, err := sink.OpenPostgres(ctx, dsn)
		if err != nil {
			return err
		}
		addQueued(p)
	}
	if url := cfg.Receiver.Webhook.URL; url != "" {
		addQueued(sink.NewWebhook(url))
	}
	if addr := cfg.Receiver.HTTPAddr; addr != "" {
		hub := sink.NewHub()
		addQueued(hub)
		mux := http.NewServeMux()
		hub.Register(mux)
		if cfg.MetricsAddr == "" || cfg.MetricsAddr == addr {
			metrics.Register(mux)
		}
		go serveHTTP(addr, mux)
	}
	if cfg.MetricsAddr != "" && cfg.MetricsAddr != cfg.Receiver.HTTPAddr {
		go metrics.Serve(cfg.MetricsAddr)
	}

	var (
		program *tea.Program
		rx      *receive.Receiver
	)
	if args.TUI {
		program = tea.NewProgram(monitor.New(func() receive.RateStats { return rx.RateStats() }), tea.WithAltScreen())
		addQueued(monitor.NewSink(program))
	}

	rx = receive.New(pl, cfg.Receiver.Idle, nil, sinks...)
	if !args.Test && !loopback && cfg.Hardware.ReceivedLED != "" {
		if err := sensors.InitHost(); err == nil {
			l, err := led.NewLED("received", cfg.Hardware.ReceivedLED)
			if err != nil {
				logger.Warnf("No receive LED [%v]", err)
			} else {
				defer l.Close()
				// steady while listening, each frame flashes it off
				l.On()
				rx.Indicator = l
			}
		}
	}

	if program != nil {
		done := make(chan error, 1)
		go func() { done <- rx.Run(ctx) }()
		go func() {
			<-ctx.Done()
			program.Quit()
		}()
		_, err := program.Run()
		stop()
		<-done
		return err
	}

	err = rx.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("Receiver stopped")
		return nil
	}
	return err
}

// readyMessage names the local radio address, as far as the link knows it.
func readyMessage(pl link.PeerLink) string {
	id, ok := pl.(link.Identifier)
	if !ok {
		return "Receiver ready."
	}
	mine, err := id.Identify(identifyTimeout)
	if err != nil {
		return fmt.Sprintf("Receiver ready. Bridge did not report its MAC [%v]", err)
	}
	return fmt.Sprintf("Receiver ready. My MAC: %v", mine)
}

func serveHTTP(addr string, mux *http.ServeMux) {
	logger.Infof("Starting webservice on %s...", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorf("Webservice stopped [%v]", err)
	}
}
