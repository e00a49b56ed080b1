package monitor

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gr-butler/joystick/receive"
)

const (
	gridCols = 33
	gridRows = 17
)

// EventMsg carries a receiver event into the program.
type EventMsg receive.Event

type rateTickMsg time.Time

// Model draws the stick position on a grid with the button state and
// frame counts underneath.
type Model struct {
	last        *receive.Event
	lastDiag    *receive.Event
	frames      int
	diagnostics int
	width       int
	height      int

	stats func() receive.RateStats
	rates receive.RateStats
}

// New builds the model. stats, when not nil, is read once a second for the
// receive rate panel.
func New(stats func() receive.RateStats) Model {
	return Model{stats: stats}
}

func (m Model) tick() tea.Cmd {
	if m.stats == nil {
		return nil
	}
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return rateTickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case rateTickMsg:
		if m.stats != nil {
			m.rates = m.stats()
		}
		return m, m.tick()
	case EventMsg:
		ev := receive.Event(msg)
		if ev.Kind == receive.KindTelemetry {
			m.frames++
			m.last = &ev
		} else {
			m.diagnostics++
			m.lastDiag = &ev
		}
	}
	return m, nil
}

// gridPos maps an axis pair to a grid cell, y up.
func gridPos(x, y uint8) (col, row int) {
	col = int(x) * (gridCols - 1) / 255
	row = (255 - int(y)) * (gridRows - 1) / 255
	return col, row
}

func (m Model) grid() string {
	col, row := -1, -1
	if m.last != nil {
		col, row = gridPos(m.last.X, m.last.Y)
	}
	var b strings.Builder
	for r := 0; r < gridRows; r++ {
		for c := 0; c < gridCols; c++ {
			switch {
			case r == row && c == col:
				b.WriteString(styleStick.Render("@"))
			case r == gridRows/2 && c == gridCols/2:
				b.WriteString(styleGrid.Render("+"))
			case r == gridRows/2:
				b.WriteString(styleGrid.Render("-"))
			case c == gridCols/2:
				b.WriteString(styleGrid.Render("|"))
			default:
				b.WriteString(styleGrid.Render("."))
			}
		}
		if r < gridRows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m Model) status() string {
	lines := []string{}
	if m.last == nil {
		lines = append(lines, styleLabel.Render("waiting for frames..."))
	} else {
		button := "released"
		if m.last.Button == 0 {
			button = "PRESSED"
		}
		lines = append(lines,
			styleLabel.Render("From   ")+m.last.Source.String(),
			styleLabel.Render("X      ")+fmt.Sprint(m.last.X),
			styleLabel.Render("Y      ")+fmt.Sprint(m.last.Y),
			styleLabel.Render("BTN    ")+button,
		)
	}
	lines = append(lines, "",
		styleLabel.Render("frames      ")+fmt.Sprint(m.frames),
		styleLabel.Render("diagnostics ")+fmt.Sprint(m.diagnostics),
		styleLabel.Render("rate/s      ")+fmt.Sprintf("%.0f  10s %.1f  1m %.1f",
			m.rates.LastSecond, m.rates.LastTen, m.rates.LastMinute),
	)
	if m.lastDiag != nil {
		lines = append(lines, styleWarning.Render(m.lastDiag.Error))
	}
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	body := lipgloss.JoinHorizontal(lipgloss.Top, stylePanel.Render(m.grid()), " ", stylePanel.Render(m.status()))
	return styleTitle.Render("joystick monitor") + "\n" + body + "\n" + styleLabel.Render("q to quit")
}
