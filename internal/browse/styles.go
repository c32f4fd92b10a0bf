package browse

import "github.com/charmbracelet/lipgloss"

var (
	gold  = lipgloss.Color("#D4A017")
	dim   = lipgloss.Color("#777777")
	white = lipgloss.Color("#FFFFFF")
	red   = lipgloss.Color("#E06C75")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(gold)
	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(white).Background(lipgloss.Color("#5C4A12"))
	errorStyle    = lipgloss.NewStyle().Foreground(red)
	badgeStyle    = lipgloss.NewStyle().Foreground(gold)
)
