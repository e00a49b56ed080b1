package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	logger "github.com/sirupsen/logrus"
)

var Prom_framesSent = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "joystick_frames_sent_total",
		Help: "Frames handed to the radio link",
	},
)

var Prom_sendFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "joystick_send_failures_total",
		Help: "Frames the radio link refused",
	},
)

var Prom_peerRegistrations = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "joystick_peer_registrations_total",
		Help: "Peer registration attempts, including re-registration after a failed send",
	},
)

var Prom_axis = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "joystick_axis",
		Help: "Last calibrated axis value 0-255",
	},
	[]string{"axis"},
)

var Prom_button = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "joystick_button",
		Help: "Last button state, 0 pressed 1 released",
	},
)

var Prom_framesReceived = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "joystick_frames_received_total",
		Help: "Valid frames decoded by the receiver",
	},
)

var Prom_formatErrors = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "joystick_frame_format_errors_total",
		Help: "Received payloads discarded for having the wrong length",
	},
)

var Prom_pollErrors = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "joystick_poll_errors_total",
		Help: "Transport errors while polling for frames",
	},
)

var Prom_sinkErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "joystick_sink_errors_total",
		Help: "Events a sink failed to publish",
	},
	[]string{"sink"},
)

var Prom_sinkDropped = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "joystick_sink_dropped_total",
		Help: "Events dropped because a sink queue was full",
	},
	[]string{"sink"},
)

var Prom_receiveRate = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "joystick_receive_rate",
		Help: "Frames per second received, averaged over the last minute",
	},
)

func init() {
	logger.Debug("Initialize prometheus...")
	prometheus.MustRegister(
		Prom_framesSent,
		Prom_sendFailures,
		Prom_peerRegistrations,
		Prom_axis,
		Prom_button,
		Prom_framesReceived,
		Prom_formatErrors,
		Prom_pollErrors,
		Prom_sinkErrors,
		Prom_sinkDropped,
		Prom_receiveRate)
}
