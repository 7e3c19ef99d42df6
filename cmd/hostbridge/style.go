package main

import (
	"github.com/charmbracelet/lipgloss"
)

// styles holds the lipgloss styles for terminal diagnostics.
type styles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// fatalLine renders a fatal error as "error: <err>" with optional context.
func (s styles) fatalLine(err error, hint string) string {
	line := s.Error.Render("error:") + " " + err.Error()
	if hint != "" {
		line += "\n" + s.Muted.Render(hint)
	}
	return line
}
