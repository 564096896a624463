// Package tui shows a run as an interactive terminal view: progress bar,
// spinner, the class and case being run, recent failures and the log.
//
// The view is registered on the run's bus as an asynchronous listener. Each
// event is handed to the bubbletea program and acknowledged only after the
// model has applied it, so the view never falls behind the run.
package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"conventest/internal/reporting"
	"conventest/pkg/logging"
)

// Listener forwards run events to a bubbletea program.
type Listener struct {
	send      func(tea.Msg)
	closed    chan struct{}
	closeOnce sync.Once
}

// NewListener creates a listener delivering messages through send, usually tea.Program.Send.
func NewListener(send func(tea.Msg)) *Listener {
	return &Listener{send: send, closed: make(chan struct{})}
}

// Close stops waiting for the program. Pending and later events complete immediately.
func (l *Listener) Close() {
	l.closeOnce.Do(func() { close(l.closed) })
}

// HandleAsync implements reporting.AsyncListener.
func (l *Listener) HandleAsync(ctx context.Context, event reporting.Event) <-chan error {
	result := make(chan error, 1)
	select {
	case <-l.closed:
		close(result)
		return result
	default:
	}

	ack := make(chan error, 1)
	l.send(EventMsg{Event: event, ack: ack})
	go func() {
		select {
		case err := <-ack:
			result <- err
		case <-l.closed:
			close(result)
		case <-ctx.Done():
			result <- ctx.Err()
		}
	}()
	return result
}

// RunFunc runs the tests, publishing to listener in addition to its own listeners.
type RunFunc func(ctx context.Context, listener reporting.Listener) (reporting.ExecutionSummary, error)

// Run shows run in the terminal until the user quits. Quitting early cancels
// the run. It returns what run returned.
func Run(ctx context.Context, expected int, logChannel <-chan logging.LogEntry, run RunFunc) (reporting.ExecutionSummary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(NewModel(expected, logChannel), tea.WithAltScreen(), tea.WithContext(ctx))
	listener := NewListener(program.Send)

	var (
		summary reporting.ExecutionSummary
		runErr  error
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		summary, runErr = run(ctx, reporting.Async(listener))
		program.Send(RunFinishedMsg{Summary: summary, Err: runErr})
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		logging.Error("TUI", err, "Interactive view failed")
	}
	listener.Close()
	cancel()
	<-done

	return summary, runErr
}
