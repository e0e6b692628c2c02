package tui

import "github.com/charmbracelet/lipgloss"

// Color constants for the dark theme
const (
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorGreen  = "#3fb950"
	ColorRed    = "#f85149"
	ColorYellow = "#d29922"
	ColorGray   = "#8b949e"
	ColorText   = "#c9d1d9"
	ColorBright = "#f0f6fc"
)

// Styles holds all lipgloss styles for the TUI
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Help     lipgloss.Style

	// Upload and connectivity states
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusPending lipgloss.Style

	// Conversation turns
	UserTurn      lipgloss.Style
	AssistantTurn lipgloss.Style
	ErrorTurn     lipgloss.Style
	Selected      lipgloss.Style

	// Source cards
	MatchBadge lipgloss.Style
	Rating     lipgloss.Style
	Highlight  lipgloss.Style

	Panel       lipgloss.Style
	ActivePanel lipgloss.Style
	Spinner     lipgloss.Style
}

// DefaultStyles creates the default style set
func DefaultStyles() *Styles {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Padding(0, 1)
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		StatusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)).Bold(true),
		StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)).Bold(true),
		StatusPending: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),

		UserTurn:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlue)).Bold(true),
		AssistantTurn: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorText)),
		ErrorTurn:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Selected:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)).Bold(true),

		MatchBadge: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBright)).
			Background(lipgloss.Color(ColorBorder)).
			Padding(0, 1),
		Rating:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)).Bold(true),

		Panel:       border,
		ActivePanel: border.BorderForeground(lipgloss.Color(ColorBlue)),
		Spinner:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlue)),
	}
}
