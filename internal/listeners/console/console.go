// Package console prints run progress and a final summary to a terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"conventest/internal/reporting"
)

// DefaultNameWidth is the column width used for case names.
const DefaultNameWidth = 48

type styles struct {
	passed  lipgloss.Style
	failed  lipgloss.Style
	skipped lipgloss.Style
	muted   lipgloss.Style
}

// Listener writes human-readable run output.
type Listener struct {
	out       io.Writer
	verbose   bool
	nameWidth int
	styles    styles
}

// New creates a console listener writing to out. Colors are only used when out is a terminal.
func New(out io.Writer, verbose bool) *Listener {
	renderer := lipgloss.NewRenderer(out)
	return &Listener{
		out:       out,
		verbose:   verbose,
		nameWidth: DefaultNameWidth,
		styles: styles{
			passed:  renderer.NewStyle().Foreground(lipgloss.Color("10")),
			failed:  renderer.NewStyle().Foreground(lipgloss.Color("9")),
			skipped: renderer.NewStyle().Foreground(lipgloss.Color("11")),
			muted:   renderer.NewStyle().Foreground(lipgloss.Color("8")),
		},
	}
}

// WithNameWidth sets the case name column width.
func (l *Listener) WithNameWidth(width int) *Listener {
	l.nameWidth = width
	return l
}

// EventTypes implements reporting.Interested.
func (l *Listener) EventTypes() []reporting.EventType {
	return []reporting.EventType{
		reporting.EventTypeAssemblyStarted,
		reporting.EventTypeClassStarted,
		reporting.EventTypeCasePassed,
		reporting.EventTypeCaseFailed,
		reporting.EventTypeCaseSkipped,
		reporting.EventTypeClassCompleted,
		reporting.EventTypeAssemblyCompleted,
	}
}

// Handle implements reporting.Listener.
func (l *Listener) Handle(_ context.Context, event reporting.Event) error {
	switch e := event.(type) {
	case *reporting.AssemblyStarted:
		l.printf("🧪 Running %s\n", reporting.RunName(e.Module, e.Framework))
		if l.verbose {
			l.printf("   • Run ID: %s\n", e.RunID)
		}
		l.printf("\n")
	case *reporting.ClassStarted:
		if l.verbose {
			l.printf("🎯 %s\n", e.Class)
		}
	case *reporting.CasePassed:
		l.caseLine(l.styles.passed.Render("✅"), e.Name, e.Duration.String())
		l.output(e.Output)
	case *reporting.CaseSkipped:
		detail := "skipped"
		if e.Reason != "" {
			detail = "skipped: " + e.Reason
		}
		l.caseLine(l.styles.skipped.Render("⏭️"), e.Name, detail)
		l.output(e.Output)
	case *reporting.CaseFailed:
		l.caseLine(l.styles.failed.Render("❌"), e.Name, e.Duration.String())
		l.printf("     %s\n", l.styles.failed.Render("Error: "+e.Message()))
		if l.verbose {
			l.indented(e.FailureText(), "       ")
		}
		l.output(e.Output)
	case *reporting.ClassCompleted:
		if l.verbose {
			l.printf("   📊 %s (%v)\n\n", e.Summary, e.Duration)
		}
	case *reporting.AssemblyCompleted:
		l.summary(e)
	}
	return nil
}

func (l *Listener) caseLine(symbol, name, detail string) {
	indent := ""
	if l.verbose {
		indent = "   "
	}
	column := runewidth.FillRight(runewidth.Truncate(name, l.nameWidth, "…"), l.nameWidth)
	l.printf("%s%s %s %s\n", indent, symbol, column, l.styles.muted.Render(detail))
}

func (l *Listener) output(text string) {
	if !l.verbose || text == "" {
		return
	}
	l.printf("     📤 Output:\n")
	l.indented(text, "       ")
}

func (l *Listener) indented(text, prefix string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		l.printf("%s%s\n", prefix, line)
	}
}

func (l *Listener) summary(e *reporting.AssemblyCompleted) {
	s := e.Summary
	l.printf("\n🏁 Run Complete\n")
	l.printf("⏱️  Duration: %v\n", e.Duration)
	l.printf("📊 Results:\n")
	l.printf("   ✅ Passed: %d\n", s.Passed)
	if s.Failed > 0 {
		l.printf("   ❌ Failed: %d\n", s.Failed)
	}
	if s.Skipped > 0 {
		l.printf("   ⏭️  Skipped: %d\n", s.Skipped)
	}
	l.printf("   📈 Total: %d\n", s.Total())
	l.printf("   📏 Success Rate: %.1f%%\n", s.SuccessRate())

	if s.Failed == 0 {
		l.printf("\n%s\n", l.styles.passed.Render("🎉 All tests passed!"))
		return
	}
	l.printf("\n%s\n", l.styles.failed.Render("💔 Some tests failed"))
	for _, failure := range s.Failures {
		l.printf("   • %s: %s\n", failure.Name, failure.Message)
	}
}

func (l *Listener) printf(format string, args ...any) {
	fmt.Fprintf(l.out, format, args...)
}
