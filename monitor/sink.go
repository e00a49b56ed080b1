package monitor

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gr-butler/joystick/receive"
)

// Sink forwards receiver events to a running program.
type Sink struct {
	program *tea.Program
}

func NewSink(p *tea.Program) *Sink {
	return &Sink{program: p}
}

func (s *Sink) Name() string { return "tui" }

func (s *Sink) Publish(ev receive.Event) error {
	s.program.Send(EventMsg(ev))
	return nil
}
