package ui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles for the chat screen.
type Styles struct {
	Header     lipgloss.Style
	UserLabel  lipgloss.Style
	BotLabel   lipgloss.Style
	ToolTag    lipgloss.Style
	OfflineTag lipgloss.Style
	Status     lipgloss.Style
	InputBox   lipgloss.Style
	Help       lipgloss.Style
}

// DefaultStyles returns the default green-on-dark theme.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")).
			Padding(0, 1),
		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		BotLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")),
		ToolTag: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true),
		OfflineTag: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		InputBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}
