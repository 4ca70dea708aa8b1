package tui

import "github.com/charmbracelet/lipgloss"

var (
	primary = lipgloss.Color("#7C3AED")
	muted   = lipgloss.Color("#6C7086")
	green   = lipgloss.Color("#A6E3A1")
	orange  = lipgloss.Color("#FAB387")
	red     = lipgloss.Color("#F38BA8")
)

type styles struct {
	Title       lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style
	Label       lipgloss.Style
	Muted       lipgloss.Style
	Result      lipgloss.Style
	Status      lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(primary).MarginBottom(1),
		ActiveTab:   lipgloss.NewStyle().Bold(true).Foreground(primary).Underline(true).Padding(0, 2),
		InactiveTab: lipgloss.NewStyle().Foreground(muted).Padding(0, 2),
		Label:       lipgloss.NewStyle().Bold(true),
		Muted:       lipgloss.NewStyle().Foreground(muted),
		Result: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1).
			MarginBottom(1),
		Status:  lipgloss.NewStyle().Foreground(muted).MarginTop(1),
		Error:   lipgloss.NewStyle().Foreground(red).MarginTop(1),
		Success: lipgloss.NewStyle().Foreground(green).MarginTop(1),
	}
}

// scoreColor grades a similarity score: green above 0.8, orange above 0.6, red otherwise
func scoreColor(score float32) lipgloss.Color {
	switch {
	case score > 0.8:
		return green
	case score > 0.6:
		return orange
	default:
		return red
	}
}
