package commands

import "github.com/charmbracelet/lipgloss"

var (
	primary = lipgloss.Color("#00ff9f")
	dim     = lipgloss.Color("#6e7681")
	danger  = lipgloss.Color("#ff5f87")

	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(primary)
	TutorStyle  = lipgloss.NewStyle().Foreground(primary)
	PromptStyle = lipgloss.NewStyle().Bold(true)
	HelpStyle   = lipgloss.NewStyle().Foreground(dim)
	ErrorStyle  = lipgloss.NewStyle().Bold(true).Foreground(danger)
)
