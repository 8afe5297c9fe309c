package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette, field greens with a soil accent
var (
	Primary = lipgloss.Color("#16A34A") // Leaf Green
	Accent  = lipgloss.Color("#CA8A04") // Wheat
	Success = lipgloss.Color("#22C55E") // Green
	Warning = lipgloss.Color("#F97316") // Orange
	Error   = lipgloss.Color("#F43F5E") // Rose
	Text    = lipgloss.Color("#F8FAFC") // White
	TextDim = lipgloss.Color("#94A3B8") // Slate
	Border  = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Label = lipgloss.NewStyle().
		Bold(true).
		Foreground(Accent)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)
)

// Badges
var (
	ModelBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(Success)

	FallbackBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(Warning)

	AlertBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(Error)
)
