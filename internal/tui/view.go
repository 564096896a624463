package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// View implements tea.Model.
func (m Model) View() string {
	var sections []string

	title := "🧪 conventest"
	if m.runName != "" {
		title += " • " + m.runName
	}
	sections = append(sections, headerStyle.Width(m.width).Render(title))
	sections = append(sections, m.renderActivity())
	sections = append(sections, m.progress.ViewAs(m.Percent())+mutedStyle.Render(fmt.Sprintf("  %d/%d", m.completed, max(m.expected, m.completed))))
	sections = append(sections, m.renderCounts())

	if m.finished {
		sections = append(sections, m.renderResult())
	}
	if len(m.failures) > 0 {
		sections = append(sections, m.renderPanel("Failures", m.failures, failedStyle))
	}
	if len(m.logs) > 0 {
		sections = append(sections, m.renderPanel(IconScroll+" Log", m.tailLogs(), mutedStyle))
	}
	sections = append(sections, m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderActivity() string {
	if m.finished {
		return IconFinished + " Run complete"
	}
	line := m.spinner.View() + " "
	switch {
	case m.currentCase != "":
		line += m.currentCase
	case m.currentClass != "":
		line += IconClass + " " + m.currentClass
	default:
		line += "Starting…"
	}
	return m.truncate(line)
}

func (m Model) renderCounts() string {
	s := m.summary
	return strings.Join([]string{
		passedStyle.Render(fmt.Sprintf("%s %d passed", IconPassed, s.Passed)),
		failedStyle.Render(fmt.Sprintf("%s %d failed", IconFailed, s.Failed)),
		skippedStyle.Render(fmt.Sprintf("%s %d skipped", IconSkipped, s.Skipped)),
	}, "   ")
}

func (m Model) renderResult() string {
	switch {
	case m.runErr != nil:
		return failedStyle.Render("💔 Run aborted: " + m.runErr.Error())
	case m.summary.Failed > 0:
		return failedStyle.Render("💔 Some tests failed")
	default:
		return passedStyle.Render("🎉 All tests passed!")
	}
}

func (m Model) renderPanel(title string, lines []string, style lipgloss.Style) string {
	content := make([]string, 0, len(lines)+1)
	content = append(content, panelTitleStyle.Render(title))
	for _, line := range lines {
		content = append(content, style.Render(m.truncate(line)))
	}
	return panelStyle.Width(max(20, m.width-2)).Render(strings.Join(content, "\n"))
}

// tailLogs returns as many recent log lines as fit the terminal height.
func (m Model) tailLogs() []string {
	room := 10
	if m.height > 0 {
		room = max(3, m.height-14-len(m.failures))
	}
	if len(m.logs) <= room {
		return m.logs
	}
	return m.logs[len(m.logs)-room:]
}

func (m Model) renderStatusBar() string {
	help := "q quit • y copy failures"
	if m.status != "" {
		help = m.status + "  |  " + help
	}
	return statusBarStyle.Render(help)
}

func (m Model) truncate(line string) string {
	width := max(20, m.width-6)
	return runewidth.Truncate(line, width, "…")
}
