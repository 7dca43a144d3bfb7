package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/lipgloss/v2"
)

// volleyDots animates the status line while a request is in flight.
var volleyDots = spinner.Spinner{
	Frames: []string{
		"⠋ In flight",
		"⠙ In flight.",
		"⠹ In flight..",
		"⠸ In flight...",
		"⠼ In flight....",
		"⠴ In flight.....",
		"⠦ In flight....",
		"⠧ In flight...",
		"⠇ In flight..",
		"⠏ In flight.",
	},
	FPS: time.Second / 10,
}

func newStyledSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = volleyDots
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return s
}
