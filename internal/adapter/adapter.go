// Package adapter translates discovery events into the test case models an
// IDE or test platform host consumes.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	goerrors "github.com/go-errors/errors"

	"conventest/internal/lifecycle"
	"conventest/internal/metadata"
	"conventest/internal/reporting"
	"conventest/pkg/logging"
)

// MethodGroup identifies every case of one test operation, whatever its arguments.
type MethodGroup struct {
	Class  string
	Method string
}

// FullName returns Class.Method.
func (g MethodGroup) FullName() string {
	return lifecycle.Test{Class: g.Class, Method: g.Method}.Name()
}

// MethodGroupDiscovered is what the host is told about each discovered operation.
type MethodGroupDiscovered struct {
	MethodGroup MethodGroup
	Method      *metadata.Method
}

// TestCaseModel is the host-facing description of a discovered test.
type TestCaseModel struct {
	MethodGroup  string `json:"methodGroup"`
	AssemblyPath string `json:"assemblyPath"`
	CodeFilePath string `json:"codeFilePath,omitempty"`
	LineNumber   int    `json:"lineNumber,omitempty"`
}

// Sink receives test case models.
type Sink interface {
	SendTestCase(model TestCaseModel) error
}

// JSONLines writes one JSON object per test case model.
type JSONLines struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONLines creates a sink writing to w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{encoder: json.NewEncoder(w)}
}

// SendTestCase implements Sink.
func (s *JSONLines) SendTestCase(model TestCaseModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.encoder.Encode(model); err != nil {
		return fmt.Errorf("failed to write test case %s: %w", model.MethodGroup, err)
	}
	return nil
}

// SourceLocator finds where a method is declared.
type SourceLocator func(m *metadata.Method) (file string, line int, ok bool)

// DiscoveryListener forwards every discovered method group to a Sink along
// with its source location. Failing to locate the source is logged and the
// model is sent without it.
type DiscoveryListener struct {
	sink         Sink
	assemblyPath string
	locate       SourceLocator
}

// NewDiscoveryListener creates a listener for the module at assemblyPath.
func NewDiscoveryListener(sink Sink, assemblyPath string) *DiscoveryListener {
	return &DiscoveryListener{
		sink:         sink,
		assemblyPath: assemblyPath,
		locate:       (*metadata.Method).Source,
	}
}

// WithSourceLocator replaces the default source lookup.
func (l *DiscoveryListener) WithSourceLocator(locate SourceLocator) *DiscoveryListener {
	l.locate = locate
	return l
}

// EventTypes implements reporting.Interested.
func (l *DiscoveryListener) EventTypes() []reporting.EventType {
	return []reporting.EventType{reporting.EventTypeTestDiscovered}
}

// Handle implements reporting.Listener.
func (l *DiscoveryListener) Handle(_ context.Context, event reporting.Event) error {
	discovered, ok := event.(*reporting.TestDiscovered)
	if !ok {
		return nil
	}
	return l.HandleMethodGroup(MethodGroupDiscovered{
		MethodGroup: MethodGroup{Class: discovered.Test.Class, Method: discovered.Test.Method},
		Method:      discovered.Method,
	})
}

// HandleMethodGroup builds and sends the model for one method group.
func (l *DiscoveryListener) HandleMethodGroup(message MethodGroupDiscovered) error {
	model := TestCaseModel{
		MethodGroup:  message.MethodGroup.FullName(),
		AssemblyPath: l.assemblyPath,
	}

	if message.Method != nil {
		file, line, err := l.sourceLocation(message.Method)
		switch {
		case err != nil:
			logging.Error("Adapter", err, "Failed to locate source of %s", model.MethodGroup)
		case file != "":
			model.CodeFilePath = file
			model.LineNumber = line
		}
	}

	return l.sink.SendTestCase(model)
}

func (l *DiscoveryListener) sourceLocation(m *metadata.Method) (file string, line int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = goerrors.Wrap(fmt.Errorf("source lookup panicked: %v", r), 2)
		}
	}()
	file, line, ok := l.locate(m)
	if !ok {
		return "", 0, nil
	}
	return file, line, nil
}
