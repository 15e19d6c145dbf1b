package main

import "github.com/charmbracelet/lipgloss"

// --- STYLES ---
var (
	narrativeBlue = lipgloss.Color("#2196f3")
	warningAmber  = lipgloss.Color("#ff8f00")

	docStyle   = lipgloss.NewStyle().Margin(1, 2)
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(narrativeBlue).
			Padding(0, 1)
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Status styles
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	mutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	copySuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)

	// Inline message box for failed operations.
	warningBoxStyle = lipgloss.NewStyle().
			Foreground(warningAmber).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(warningAmber).
			Padding(0, 1)

	// Detail view styles
	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(narrativeBlue).
				Padding(0, 1)
	detailAttrStyle = lipgloss.NewStyle().Bold(true)
	detailValStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	detailPaneStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(narrativeBlue)

	// Org menu styles
	menuPaneStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(narrativeBlue)
	cursorStyle = lipgloss.NewStyle().Foreground(narrativeBlue).Bold(true)
)
