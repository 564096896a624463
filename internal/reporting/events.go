package reporting

import (
	"fmt"
	"time"

	"conventest/internal/lifecycle"
	"conventest/internal/metadata"
)

// EventType defines the type of event
type EventType string

const (
	// Run lifecycle events
	EventTypeAssemblyStarted   EventType = "assembly.started"
	EventTypeAssemblyCompleted EventType = "assembly.completed"
	EventTypeClassStarted      EventType = "class.started"
	EventTypeClassCompleted    EventType = "class.completed"

	// Test events
	EventTypeTestDiscovered EventType = "test.discovered"
	EventTypeTestStarted    EventType = "test.started"

	// Case outcome events
	EventTypeCaseSkipped EventType = "case.skipped"
	EventTypeCasePassed  EventType = "case.passed"
	EventTypeCaseFailed  EventType = "case.failed"
)

// AllEventTypes lists every event type in the order a run emits them.
var AllEventTypes = []EventType{
	EventTypeTestDiscovered,
	EventTypeAssemblyStarted,
	EventTypeClassStarted,
	EventTypeTestStarted,
	EventTypeCaseSkipped,
	EventTypeCasePassed,
	EventTypeCaseFailed,
	EventTypeClassCompleted,
	EventTypeAssemblyCompleted,
}

// EventSeverity indicates the importance/severity of an event
type EventSeverity string

const (
	SeverityDebug EventSeverity = "debug"
	SeverityInfo  EventSeverity = "info"
	SeverityWarn  EventSeverity = "warn"
	SeverityError EventSeverity = "error"
)

// Event is the base interface for all events published during a run
type Event interface {
	// Type returns the event type
	Type() EventType

	// Source returns the module or class the event is about
	Source() string

	// Timestamp returns when the event occurred
	Timestamp() time.Time

	// Severity returns the event severity
	Severity() EventSeverity

	// CorrelationID returns the run ID shared by every event of one run
	CorrelationID() string

	// String returns a human-readable description of the event
	String() string
}

// BaseEvent provides common event functionality
type BaseEvent struct {
	EventType     EventType     `json:"type"`
	SourceLabel   string        `json:"source"`
	EventTime     time.Time     `json:"timestamp"`
	EventSeverity EventSeverity `json:"severity"`
	CorrelationId string        `json:"correlation_id"`
}

// Type implements Event interface
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Source implements Event interface
func (e BaseEvent) Source() string {
	return e.SourceLabel
}

// Timestamp implements Event interface
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// Severity implements Event interface
func (e BaseEvent) Severity() EventSeverity {
	return e.EventSeverity
}

// CorrelationID implements Event interface
func (e BaseEvent) CorrelationID() string {
	return e.CorrelationId
}

// String implements Event interface
func (e BaseEvent) String() string {
	return string(e.EventType) + " from " + e.SourceLabel
}

// AssemblyStarted is published once before any class runs
type AssemblyStarted struct {
	BaseEvent
	Module    string `json:"module"`
	Framework string `json:"framework,omitempty"`
	RunID     string `json:"run_id"`
}

// String returns a human-readable description
func (e AssemblyStarted) String() string {
	return "Running " + RunName(e.Module, e.Framework)
}

// AssemblyCompleted is published once after every class has completed
type AssemblyCompleted struct {
	BaseEvent
	Module    string           `json:"module"`
	Framework string           `json:"framework,omitempty"`
	Summary   ExecutionSummary `json:"summary"`
	Duration  time.Duration    `json:"duration"`
}

// String returns a human-readable description
func (e AssemblyCompleted) String() string {
	return fmt.Sprintf("%s completed: %s", RunName(e.Module, e.Framework), e.Summary)
}

// ClassStarted is published before the lifecycle of a class runs
type ClassStarted struct {
	BaseEvent
	Class string `json:"class"`
}

// String returns a human-readable description
func (e ClassStarted) String() string {
	return "Class " + e.Class + " started"
}

// ClassCompleted carries the summary of one class
type ClassCompleted struct {
	BaseEvent
	Class    string           `json:"class"`
	Summary  ExecutionSummary `json:"summary"`
	Duration time.Duration    `json:"duration"`
}

// String returns a human-readable description
func (e ClassCompleted) String() string {
	return fmt.Sprintf("Class %s completed: %s", e.Class, e.Summary)
}

// TestDiscovered is published for every test found by Discover
type TestDiscovered struct {
	BaseEvent
	Test lifecycle.Test `json:"test"`
	// Method is the discovered operation, for source lookups.
	Method *metadata.Method `json:"-"`
}

// String returns a human-readable description
func (e TestDiscovered) String() string {
	return "Discovered " + e.Test.Name()
}

// TestStarted is published before each case is invoked
type TestStarted struct {
	BaseEvent
	Test lifecycle.Test `json:"test"`
	Name string         `json:"name"`
}

// String returns a human-readable description
func (e TestStarted) String() string {
	return "Starting " + e.Name
}

// CaseResult holds the fields shared by every case outcome
type CaseResult struct {
	Test     lifecycle.Test `json:"test"`
	Name     string         `json:"name"`
	Duration time.Duration  `json:"duration"`
	Output   string         `json:"output,omitempty"`
}

// CaseCompleted is implemented by the three case outcome events
type CaseCompleted interface {
	Event
	Result() CaseResult
	Status() lifecycle.Status
}

// CaseSkipped reports a case that did not run
type CaseSkipped struct {
	BaseEvent
	CaseResult
	Reason string `json:"reason,omitempty"`
}

// Result implements CaseCompleted
func (e CaseSkipped) Result() CaseResult { return e.CaseResult }

// Status implements CaseCompleted
func (e CaseSkipped) Status() lifecycle.Status { return lifecycle.Skipped }

// String returns a human-readable description
func (e CaseSkipped) String() string {
	if e.Reason != "" {
		return e.Name + " skipped: " + e.Reason
	}
	return e.Name + " skipped"
}

// CasePassed reports a case that returned normally
type CasePassed struct {
	BaseEvent
	CaseResult
}

// Result implements CaseCompleted
func (e CasePassed) Result() CaseResult { return e.CaseResult }

// Status implements CaseCompleted
func (e CasePassed) Status() lifecycle.Status { return lifecycle.Passed }

// String returns a human-readable description
func (e CasePassed) String() string {
	return e.Name + " passed"
}

// CaseFailed reports a case that raised a fault
type CaseFailed struct {
	BaseEvent
	CaseResult
	// Exception is the original fault raised by the case.
	Exception *lifecycle.PreservedError `json:"-"`
	// Secondary holds faults raised after the primary one, such as disposal failures.
	Secondary []error `json:"-"`
}

// Result implements CaseCompleted
func (e CaseFailed) Result() CaseResult { return e.CaseResult }

// Status implements CaseCompleted
func (e CaseFailed) Status() lifecycle.Status { return lifecycle.Failed }

// Message returns the message of the original fault
func (e CaseFailed) Message() string {
	if e.Exception == nil {
		return ""
	}
	return e.Exception.Error()
}

// FailureText renders the fault type, message, stack and secondary faults
func (e CaseFailed) FailureText() string {
	return lifecycle.FailureText(e.Exception, e.Secondary)
}

// String returns a human-readable description
func (e CaseFailed) String() string {
	return e.Name + " failed: " + e.Message()
}

// RunName formats a module name with its target framework in parentheses.
func RunName(module, framework string) string {
	if framework == "" {
		return module
	}
	return module + " (" + framework + ")"
}
