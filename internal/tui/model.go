package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"conventest/internal/reporting"
	"conventest/pkg/logging"
)

// For mocking in tests
var writeClipboard = clipboard.WriteAll

// EventMsg delivers one run event to the model. The model acknowledges it
// once applied, which releases the bus.
type EventMsg struct {
	Event reporting.Event
	ack   chan<- error
}

// RunFinishedMsg is sent when the runner has returned.
type RunFinishedMsg struct {
	Summary reporting.ExecutionSummary
	Err     error
}

type logMsg struct {
	entry logging.LogEntry
}

type clearStatusMsg struct{}

// Model is the bubbletea model of a run.
type Model struct {
	runName  string
	expected int

	completed    int
	summary      reporting.ExecutionSummary
	currentClass string
	currentCase  string
	failures     []string
	logs         []string

	finished bool
	runErr   error
	status   string

	width  int
	height int

	logChannel <-chan logging.LogEntry
	spinner    spinner.Model
	progress   progress.Model
}

// NewModel creates the model for a run of about expected cases. logChannel
// may be nil.
func NewModel(expected int, logChannel <-chan logging.LogEntry) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return Model{
		expected:   expected,
		logChannel: logChannel,
		spinner:    s,
		progress:   progress.New(progress.WithDefaultGradient()),
		width:      80,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForLog(m.logChannel))
}

// waitForLog receives the next log entry as a message.
func waitForLog(ch <-chan logging.LogEntry) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return nil
		}
		return logMsg{entry: entry}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		m.apply(msg.Event)
		if msg.ack != nil {
			msg.ack <- nil
		}
		return m, nil

	case RunFinishedMsg:
		m.finished = true
		m.runErr = msg.Err
		m.summary = msg.Summary
		m.currentCase = ""
		return m, nil

	case logMsg:
		m.logs = append(m.logs, msg.entry.String())
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		return m, waitForLog(m.logChannel)

	case clearStatusMsg:
		m.status = ""
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(10, msg.Width-20)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "y":
		report := m.FailureReport()
		if report == "" {
			return m.setStatus("No failures to copy")
		}
		if err := writeClipboard(report); err != nil {
			logging.Error("TUI", err, "Failed to copy failure report")
			return m.setStatus("Copy failed")
		}
		return m.setStatus("Failure report copied to clipboard")
	}
	return m, nil
}

func (m Model) setStatus(status string) (tea.Model, tea.Cmd) {
	m.status = status
	return m, tea.Tick(statusMessageTTL, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

func (m *Model) apply(event reporting.Event) {
	switch e := event.(type) {
	case *reporting.AssemblyStarted:
		m.runName = reporting.RunName(e.Module, e.Framework)
	case *reporting.ClassStarted:
		m.currentClass = e.Class
	case *reporting.TestStarted:
		m.currentCase = e.Name
	case reporting.CaseCompleted:
		m.completed++
		m.summary.Add(e)
		if failed, ok := e.(*reporting.CaseFailed); ok {
			m.failures = append(m.failures, fmt.Sprintf("%s: %s", failed.Name, failed.Message()))
			if len(m.failures) > maxFailureLines {
				m.failures = m.failures[len(m.failures)-maxFailureLines:]
			}
		}
	case *reporting.AssemblyCompleted:
		m.summary = e.Summary
		m.currentCase = ""
	}
}

// Percent returns the share of expected cases completed.
func (m Model) Percent() float64 {
	if m.finished {
		return 1
	}
	if m.expected <= 0 {
		return 0
	}
	return min(1, float64(m.completed)/float64(m.expected))
}

// Summary returns the outcomes seen so far.
func (m Model) Summary() reporting.ExecutionSummary {
	return m.summary
}

// FailureReport renders every failure with its details, or "" when nothing failed.
func (m Model) FailureReport() string {
	if len(m.summary.Failures) == 0 {
		return ""
	}
	var b strings.Builder
	for i, f := range m.summary.Failures {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(f.Name)
		b.WriteString("\n")
		if f.Details != "" {
			b.WriteString(f.Details)
		} else {
			b.WriteString(f.Message)
		}
	}
	return b.String()
}
