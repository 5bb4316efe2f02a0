package console

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/payvo/payvo/internal/session"
)

// Catppuccin Mocha, the subset the console uses.
var colours = struct {
	Red, Green, Yellow, Blue, Mauve, Text, Subtext0, Surface0, Surface1, Base string
}{
	Red:      "#f38ba8",
	Green:    "#a6e3a1",
	Yellow:   "#f9e2af",
	Blue:     "#89b4fa",
	Mauve:    "#cba6f7",
	Text:     "#cdd6f4",
	Subtext0: "#a6adc8",
	Surface0: "#313244",
	Surface1: "#45475a",
	Base:     "#1e1e2e",
}

var (
	containerStyle = lipgloss.NewStyle().
			Padding(1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colours.Blue))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colours.Blue)).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colours.Text)).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colours.Subtext0))

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colours.Subtext0)).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colours.Red))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colours.Yellow)).
			Background(lipgloss.Color(colours.Base)).
			Padding(1, 2).
			Width(56)
)

// statusStyle colours a reply by outcome.
func statusStyle(s session.Status) lipgloss.Style {
	c := colours.Text
	switch s {
	case session.StatusSuccess:
		c = colours.Green
	case session.StatusFailure:
		c = colours.Red
	case session.StatusPending, session.StatusBusy:
		c = colours.Yellow
	case session.StatusInfo:
		c = colours.Blue
	case session.StatusGuidance:
		c = colours.Mauve
	case session.StatusCancelled:
		c = colours.Subtext0
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
}
