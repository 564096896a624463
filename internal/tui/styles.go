package tui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Constants for TUI behavior and internal logic.
const (
	// maxLogLines bounds the log pane history.
	maxLogLines = 200
	// maxFailureLines is the number of recent failures shown below the progress bar.
	maxFailureLines = 8
	// statusMessageTTL is how long a status bar message stays visible.
	statusMessageTTL = 3 * time.Second
)

const (
	IconPassed   = "✔"
	IconFailed   = "✘"
	IconSkipped  = "⏭"
	IconClass    = "🎯"
	IconFinished = "🏁"
	IconScroll   = "📜"
)

// Styles for the TUI, defined using the lipgloss library.
var (
	// headerStyle is for the run title at the top of the view.
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}).
			Background(lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#303030"}).
			Padding(0, 2)

	// panelStyle frames the failure and log panes.
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#A0A0A0", Dark: "#505050"}).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().Bold(true)

	passedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#006400", Dark: "#8AE234"})
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B22222", Dark: "#FF6B6B"})
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#8B6914", Dark: "#FCE94F"})
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#707070", Dark: "#909090"})

	// statusBarStyle renders the help and status line at the bottom.
	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#303030", Dark: "#C0C0C0"})
)
