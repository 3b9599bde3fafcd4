package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

func (m AppModel) View() string {
	var b strings.Builder

	if m.Editing {
		b.WriteString(titleStyle.Render("edit-file " + m.EditPath))
		b.WriteString("\n")
		b.WriteString(m.Editor.View())
		b.WriteString("\n")
		b.WriteString(m.statusLine("ctrl+s save • esc cancel"))
		return b.String()
	}

	b.WriteString(titleStyle.Render("happyphone"))
	b.WriteString("\n")
	b.WriteString(m.Output.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine("pgup/pgdown scroll • ctrl+c quit"))
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m AppModel) statusLine(help string) string {
	switch {
	case m.Err != nil:
		return errorStyle.Render(m.Err.Error())
	case m.Busy:
		return dimStyle.Render("working...")
	case len(m.ActiveDownloads) > 0:
		line := fmt.Sprintf("downloading: %s", strings.Join(m.ActiveDownloads, ", "))
		if m.Status != "" {
			line = m.Status
		}
		return statusStyle.Render(line)
	}
	return dimStyle.Render(help)
}
