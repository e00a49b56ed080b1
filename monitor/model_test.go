package monitor

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gr-butler/joystick/link"
	"github.com/gr-butler/joystick/receive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var source = link.Addr{0x7C, 0xDF, 0xA1, 0x12, 0x34, 0x56}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm
}

func TestGridPos(t *testing.T) {
	tests := []struct {
		x, y     uint8
		col, row int
	}{
		{0, 255, 0, 0},
		{255, 0, gridCols - 1, gridRows - 1},
		{128, 127, gridCols / 2, gridRows / 2},
	}
	for _, tt := range tests {
		col, row := gridPos(tt.x, tt.y)
		assert.Equal(t, tt.col, col, "x=%d", tt.x)
		assert.Equal(t, tt.row, row, "y=%d", tt.y)
	}
}

func TestUpdateCountsEvents(t *testing.T) {
	m := New(nil)
	assert.Nil(t, m.Init())
	assert.Contains(t, m.View(), "waiting for frames")

	m = update(t, m, EventMsg{Kind: receive.KindTelemetry, Source: source, X: 0, Y: 255, Button: 0})
	m = update(t, m, EventMsg{Kind: receive.KindDiagnostic, Source: source, Raw: []byte{1}, Error: "bad length"})
	assert.Equal(t, 1, m.frames)
	assert.Equal(t, 1, m.diagnostics)

	view := m.View()
	assert.Contains(t, view, "7C:DF:A1:12:34:56")
	assert.Contains(t, view, "PRESSED")
	assert.Contains(t, view, "bad length")

	grid := strings.Split(m.grid(), "\n")
	require.Len(t, grid, gridRows)
	assert.True(t, strings.HasPrefix(grid[0], "@"), grid[0])
}

func TestRateTick(t *testing.T) {
	calls := 0
	m := New(func() receive.RateStats {
		calls++
		return receive.RateStats{LastSecond: 50, LastTen: 49.5, LastMinute: 48.2}
	})
	require.NotNil(t, m.Init())

	next, cmd := m.Update(rateTickMsg(time.Now()))
	require.NotNil(t, cmd)
	m = next.(Model)
	assert.Equal(t, 1, calls)
	view := m.View()
	assert.Contains(t, view, "rate/s")
	assert.Contains(t, view, "50  10s 49.5  1m 48.2")

	_, cmd = New(nil).Update(rateTickMsg(time.Now()))
	assert.Nil(t, cmd)
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := New(nil).Update(key)
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}

	_, cmd := New(nil).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Nil(t, cmd)
}
