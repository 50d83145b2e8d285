package theme

import "github.com/charmbracelet/lipgloss"

// Styles describes reusable Lip Gloss styles shared across the UI.
type Styles struct {
	Title                 *lipgloss.Style
	Section               *lipgloss.Style
	Item                  *lipgloss.Style
	ItemIndicator         *lipgloss.Style
	SelectedItemIndicator *lipgloss.Style
	SelectedItem          *lipgloss.Style
	Muted                 *lipgloss.Style
	Badge                 *lipgloss.Style
	Error                 *lipgloss.Style
	Info                  *lipgloss.Style
	Footer                *lipgloss.Style
	Spinner               *lipgloss.Style
	StatusAvailable       *lipgloss.Style
	StatusPending         *lipgloss.Style
	StatusFailed          *lipgloss.Style
}

var defaultStyles = Styles{
	Title: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true),
	),
	Section: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true).MarginTop(1),
	),
	Item: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	ItemIndicator: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	),
	SelectedItemIndicator: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Background(lipgloss.Color("238")),
	),
	SelectedItem: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Bold(true),
	),
	Muted: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	),
	Badge: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")).Padding(0, 1),
	),
	Error: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	),
	Info: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	Footer: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	),
	Spinner: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
	),
	StatusAvailable: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
	),
	StatusPending: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	),
	StatusFailed: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	),
}

// Default exposes the standard style set used across the application.
func Default() *Styles {
	return &defaultStyles
}

func ptr(style lipgloss.Style) *lipgloss.Style {
	return &style
}
