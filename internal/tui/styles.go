package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	// SectionStyle styles "----->" build section headers.
	SectionStyle = lipgloss.NewStyle().Bold(true)
	// WarnStyle styles warning lines.
	WarnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	// ErrorStyle styles the final failure line.
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	// OutputStyle styles tailed command output.
	OutputStyle = lipgloss.NewStyle().Faint(true)

	statusStyles = map[string]lipgloss.Style{
		// Terminal states
		"done":      lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"installed": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"resolved":  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"restored":  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"cached":    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),

		// Active states
		"resolving":  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"installing": lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"running":    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"checking":   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"retrying":   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),

		// Skipped / warning
		"skipped": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"missing": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),

		// Error
		"failed": lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		// Pending
		"pending": lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
