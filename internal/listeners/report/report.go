// Package report writes a detailed JSON report file for every run.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"conventest/internal/reporting"
	"conventest/pkg/logging"
)

// FilePrefix starts the name of every report file.
const FilePrefix = "conventest-report-"

// CaseReport is one case in the report.
type CaseReport struct {
	Test     string        `json:"test"`
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
	Output   string        `json:"output,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Message  string        `json:"message,omitempty"`
	Details  string        `json:"details,omitempty"`
}

// ClassReport groups the cases of one class.
type ClassReport struct {
	Name     string                     `json:"name"`
	Duration time.Duration              `json:"duration"`
	Summary  reporting.ExecutionSummary `json:"summary"`
	Cases    []CaseReport               `json:"cases"`
}

// Report is the document written at the end of a run.
type Report struct {
	RunID     string                     `json:"run_id"`
	Module    string                     `json:"module"`
	Framework string                     `json:"framework,omitempty"`
	StartTime time.Time                  `json:"start_time"`
	EndTime   time.Time                  `json:"end_time"`
	Duration  time.Duration              `json:"duration"`
	Summary   reporting.ExecutionSummary `json:"summary"`
	Classes   []ClassReport              `json:"classes"`
}

// Listener collects run events and saves a Report on AssemblyCompleted.
type Listener struct {
	dir string

	mu      sync.Mutex
	report  Report
	current *ClassReport
	path    string
}

// New creates a report listener writing into dir.
func New(dir string) *Listener {
	return &Listener{dir: dir}
}

// Path returns the file written by the last completed run, if any.
func (l *Listener) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// EventTypes implements reporting.Interested.
func (l *Listener) EventTypes() []reporting.EventType {
	return []reporting.EventType{
		reporting.EventTypeAssemblyStarted,
		reporting.EventTypeClassStarted,
		reporting.EventTypeCaseSkipped,
		reporting.EventTypeCasePassed,
		reporting.EventTypeCaseFailed,
		reporting.EventTypeClassCompleted,
		reporting.EventTypeAssemblyCompleted,
	}
}

// Handle implements reporting.Listener.
func (l *Listener) Handle(_ context.Context, event reporting.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch e := event.(type) {
	case *reporting.AssemblyStarted:
		l.report = Report{
			RunID:     e.RunID,
			Module:    e.Module,
			Framework: e.Framework,
			StartTime: e.Timestamp(),
		}
	case *reporting.ClassStarted:
		l.current = &ClassReport{Name: e.Class}
	case reporting.CaseCompleted:
		if l.current == nil {
			return nil
		}
		l.current.Cases = append(l.current.Cases, caseReport(e))
	case *reporting.ClassCompleted:
		if l.current == nil {
			return nil
		}
		l.current.Duration = e.Duration
		l.current.Summary = e.Summary
		l.report.Classes = append(l.report.Classes, *l.current)
		l.current = nil
	case *reporting.AssemblyCompleted:
		l.report.EndTime = e.Timestamp()
		l.report.Duration = e.Duration
		l.report.Summary = e.Summary
		path, err := l.saveDetailedReport()
		if err != nil {
			return err
		}
		l.path = path
		logging.Info("Report", "Detailed report saved to %s", path)
	}
	return nil
}

func caseReport(e reporting.CaseCompleted) CaseReport {
	result := e.Result()
	cr := CaseReport{
		Test:     result.Test.Name(),
		Name:     result.Name,
		Status:   e.Status().String(),
		Duration: result.Duration,
		Output:   result.Output,
	}
	switch e := e.(type) {
	case *reporting.CaseSkipped:
		cr.Reason = e.Reason
	case *reporting.CaseFailed:
		cr.Message = e.Message()
		cr.Details = e.FailureText()
	}
	return cr
}

// saveDetailedReport saves the collected report as indented JSON.
func (l *Listener) saveDetailedReport() (string, error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	stamp := l.report.EndTime
	if stamp.IsZero() {
		stamp = time.Now()
	}
	filename := fmt.Sprintf("%s%s.json", FilePrefix, stamp.Format("20060102-150405"))
	fullPath := filepath.Join(l.dir, filename)

	jsonData, err := json.MarshalIndent(l.report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	if err := os.WriteFile(fullPath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return fullPath, nil
}
