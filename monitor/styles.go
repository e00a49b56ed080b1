package monitor

import "github.com/charmbracelet/lipgloss"

var (
	colorGreen   = lipgloss.Color("#00CC33")
	colorBright  = lipgloss.Color("#00FF41")
	colorDim     = lipgloss.Color("#004A0A")
	colorWarning = lipgloss.Color("#FFAA00")

	styleTitle = lipgloss.NewStyle().
			Foreground(colorBright).
			Bold(true)

	stylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGreen).
			Padding(0, 1)

	styleGrid    = lipgloss.NewStyle().Foreground(colorDim)
	styleStick   = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleLabel   = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning)
)
