package receive

import (
	"io"
	"sync"

	"github.com/gr-butler/joystick/metrics"
	logger "github.com/sirupsen/logrus"
)

const DefaultQueueSize = 64

// Async publishes to a sink from its own goroutine so a slow sink never
// holds up polling. When the queue is full the event is dropped.
type Async struct {
	sink   Sink
	events chan Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsync(s Sink, size int) *Async {
	if size <= 0 {
		size = DefaultQueueSize
	}
	a := &Async{
		sink:   s,
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for ev := range a.events {
		if err := a.sink.Publish(ev); err != nil {
			metrics.Prom_sinkErrors.WithLabelValues(a.sink.Name()).Inc()
			logger.Errorf("Sink %s failed [%v]", a.sink.Name(), err)
		}
	}
}

func (a *Async) Name() string { return a.sink.Name() }

// Publish never blocks.
func (a *Async) Publish(ev Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil
	}
	select {
	case a.events <- ev:
	default:
		metrics.Prom_sinkDropped.WithLabelValues(a.sink.Name()).Inc()
		logger.Debugf("Sink %s busy, event dropped", a.sink.Name())
	}
	return nil
}

// Close delivers what is queued, then closes the sink if it is a Closer.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.events)
	a.mu.Unlock()

	<-a.done
	if c, ok := a.sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
