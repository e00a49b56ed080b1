package receive

import (
	"context"
	"time"

	"github.com/gr-butler/joystick/buffer"
	"github.com/gr-butler/joystick/env"
	"github.com/gr-butler/joystick/frame"
	"github.com/gr-butler/joystick/link"
	"github.com/gr-butler/joystick/metrics"
	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
)

type Kind string

const (
	KindTelemetry  Kind = "telemetry"
	KindDiagnostic Kind = "diagnostic"
)

// Event is emitted for every payload taken off the link. Telemetry events
// carry the decoded frame, diagnostic events the raw payload and the reason
// it was discarded.
type Event struct {
	Kind   Kind      `json:"kind"`
	Source link.Addr `json:"source"`
	X      uint8     `json:"x"`
	Y      uint8     `json:"y"`
	Button uint8     `json:"button"`
	Raw    []byte    `json:"raw,omitempty"`
	Error  string    `json:"error,omitempty"`
	Time   time.Time `json:"time"`
}

// Sink is somewhere events are published to.
type Sink interface {
	Name() string
	Publish(ev Event) error
}

// Indicator is told about every valid frame, usually an LED.
type Indicator interface {
	Blink()
}

type Receiver struct {
	link      link.PeerLink
	clock     clockwork.Clock
	idle      time.Duration
	sinks     []Sink
	Indicator Indicator

	rate      *buffer.SampleBuffer
	rateStart time.Time
	count     int
}

func New(l link.PeerLink, idle time.Duration, clock clockwork.Clock, sinks ...Sink) *Receiver {
	if idle <= 0 {
		idle = env.DefaultPollIdle
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Receiver{
		link:  l,
		clock: clock,
		idle:  idle,
		sinks: sinks,
		rate:  buffer.NewBuffer(env.RateWindowSeconds),
	}
}

// Run polls the link until ctx is done. Nothing short of cancellation stops
// it: transport errors, bad payloads and failing sinks are logged and
// skipped.
func (r *Receiver) Run(ctx context.Context) error {
	logger.Infof("Receiver polling every %v", r.idle)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		got := r.PollOnce()
		r.updateRate(r.clock.Now())
		if got {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(r.idle):
		}
	}
}

// PollOnce handles at most one payload and reports whether there was one.
func (r *Receiver) PollOnce() bool {
	pkt, ok, err := r.link.Poll()
	if err != nil {
		metrics.Prom_pollErrors.Inc()
		logger.Errorf("Poll failed [%v]", err)
		return false
	}
	if !ok {
		return false
	}
	r.publish(r.handle(pkt))
	return true
}

func (r *Receiver) handle(pkt link.Packet) Event {
	now := r.clock.Now()
	f, err := frame.Decode(pkt.Payload)
	if err != nil {
		metrics.Prom_formatErrors.Inc()
		logger.Debugf("Discarding payload from %v: %v", pkt.From, err)
		raw := make([]byte, len(pkt.Payload))
		copy(raw, pkt.Payload)
		return Event{Kind: KindDiagnostic, Source: pkt.From, Raw: raw, Error: err.Error(), Time: now}
	}

	metrics.Prom_framesReceived.Inc()
	r.count++
	if r.Indicator != nil {
		r.Indicator.Blink()
	}
	return Event{Kind: KindTelemetry, Source: pkt.From, X: f.X, Y: f.Y, Button: f.Button, Time: now}
}

func (r *Receiver) publish(ev Event) {
	for _, s := range r.sinks {
		if err := s.Publish(ev); err != nil {
			metrics.Prom_sinkErrors.WithLabelValues(s.Name()).Inc()
			logger.Errorf("Sink %s failed [%v]", s.Name(), err)
		}
	}
}

// updateRate closes off every whole second since the last call, recording
// the frames counted in it.
func (r *Receiver) updateRate(now time.Time) {
	if r.rateStart.IsZero() {
		r.rateStart = now
		return
	}
	elapsed := int(now.Sub(r.rateStart) / time.Second)
	if elapsed < 1 {
		return
	}
	r.rate.AddItem(float64(r.count))
	for i := 1; i < elapsed && i < env.RateWindowSeconds; i++ {
		r.rate.AddItem(0)
	}
	r.count = 0
	r.rateStart = r.rateStart.Add(time.Duration(elapsed) * time.Second)
	metrics.Prom_receiveRate.Set(r.Rate())
}

// RateStats are frames per second over the last second, ten seconds and
// minute.
type RateStats struct {
	LastSecond float64
	LastTen    float64
	LastMinute float64
}

// RateStats is safe to call from another goroutine.
func (r *Receiver) RateStats() RateStats {
	return RateStats{
		LastSecond: r.rate.GetLast(),
		LastTen:    float64(r.rate.AverageLast(10)),
		LastMinute: r.Rate(),
	}
}

// Rate is frames per second averaged over the last minute.
func (r *Receiver) Rate() float64 {
	avg, _, _, _ := r.rate.GetAverageMinMaxSum()
	return float64(avg)
}
