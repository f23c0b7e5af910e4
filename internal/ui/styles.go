// Package ui holds the lipgloss styles shared by the CLI commands.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// HeaderStyle renders section headers in command output.
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#83a598"))

	// SuccessStyle marks completed operations.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#b8bb26"))

	// ErrorStyle marks failures.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fb4934"))

	// MutedStyle is for secondary detail like token counts and timings.
	MutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#928374"))

	// ToolCallStyle highlights reconstructed tool invocations.
	ToolCallStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#fabd2f"))
)
