package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/gr-butler/joystick/receive"
)

// Console prints one line per event.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	from  lipgloss.Style
	value lipgloss.Style
	warn  lipgloss.Style
}

func NewConsole(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:   out,
		from:  r.NewStyle().Foreground(lipgloss.Color("#00AA22")),
		value: r.NewStyle().Bold(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#FFAA00")),
	}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Publish(ev receive.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	from := c.from.Render(fmt.Sprintf("From %v", ev.Source))
	var err error
	switch ev.Kind {
	case receive.KindTelemetry:
		_, err = fmt.Fprintf(c.out, "%s X: %s Y: %s BTN: %s\n", from,
			c.value.Render(fmt.Sprint(ev.X)),
			c.value.Render(fmt.Sprint(ev.Y)),
			c.value.Render(fmt.Sprint(ev.Button)))
	default:
		_, err = fmt.Fprintf(c.out, "%s raw %s %s\n", from,
			c.value.Render(fmt.Sprintf("% x", ev.Raw)),
			c.warn.Render("("+ev.Error+")"))
	}
	return err
}
