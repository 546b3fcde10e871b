package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the text renderer.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Path    lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusSkipped lipgloss.Style
}

// NewStyles builds the styles on the given lipgloss renderer.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    lr.NewStyle().Bold(true),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lr.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Info:    lr.NewStyle().Foreground(lipgloss.Color("12")),
		Path:    lr.NewStyle().Foreground(lipgloss.Color("13")),

		StatusSuccess: lr.NewStyle().Foreground(lipgloss.Color("10")).SetString("✓"),
		StatusFailed:  lr.NewStyle().Foreground(lipgloss.Color("9")).SetString("✗"),
		StatusSkipped: lr.NewStyle().Foreground(lipgloss.Color("8")).SetString("-"),
	}
}
