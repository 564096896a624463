package reporting

import (
	"context"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"conventest/internal/lifecycle"
	"conventest/internal/metadata"
	"conventest/pkg/logging"
)

// Recorder times a run and turns case outcomes into published events. It keeps
// one summary for the current class and one for the whole run; a class summary
// is folded into the run summary when the class completes.
//
// A Recorder is driven from a single goroutine.
type Recorder struct {
	bus   *Bus
	clock Clock
	runID string

	module    string
	framework string

	assemblySummary ExecutionSummary
	classSummary    ExecutionSummary

	assemblyWatch *Stopwatch
	classWatch    *Stopwatch
	caseWatch     *Stopwatch

	faults *multierror.Error
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock sets the clock used for timestamps and durations.
func WithClock(clock Clock) RecorderOption {
	return func(r *Recorder) {
		r.clock = clock
	}
}

// WithRunID sets the run ID instead of generating one.
func WithRunID(id string) RecorderOption {
	return func(r *Recorder) {
		r.runID = id
	}
}

// NewRecorder creates a recorder publishing on bus.
func NewRecorder(bus *Bus, opts ...RecorderOption) *Recorder {
	r := &Recorder{bus: bus, clock: SystemClock()}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	r.assemblyWatch = NewStopwatch(r.clock)
	r.classWatch = NewStopwatch(r.clock)
	r.caseWatch = NewStopwatch(r.clock)
	return r
}

// RunID returns the ID stamped on every event of the run.
func (r *Recorder) RunID() string {
	return r.runID
}

// Discovered publishes a TestDiscovered event.
func (r *Recorder) Discovered(ctx context.Context, test lifecycle.Test, method *metadata.Method) {
	r.publish(ctx, &TestDiscovered{
		BaseEvent: r.base(EventTypeTestDiscovered, test.Class, SeverityDebug),
		Test:      test,
		Method:    method,
	})
}

// StartAssembly publishes AssemblyStarted and starts the run stopwatch.
func (r *Recorder) StartAssembly(ctx context.Context, module *metadata.Module) {
	r.module = module.Name
	r.framework = module.TargetFramework
	r.assemblySummary = ExecutionSummary{}

	r.publish(ctx, &AssemblyStarted{
		BaseEvent: r.base(EventTypeAssemblyStarted, r.module, SeverityInfo),
		Module:    r.module,
		Framework: r.framework,
		RunID:     r.runID,
	})
	r.assemblyWatch.Restart()
}

// StartClass resets the class summary, publishes ClassStarted and starts the
// class and case stopwatches.
func (r *Recorder) StartClass(ctx context.Context, class string) {
	r.classSummary = ExecutionSummary{}
	r.publish(ctx, &ClassStarted{
		BaseEvent: r.base(EventTypeClassStarted, class, SeverityInfo),
		Class:     class,
	})
	r.classWatch.Restart()
	r.caseWatch.Restart()
}

// StartTest publishes TestStarted for a case about to run and starts its stopwatch.
func (r *Recorder) StartTest(ctx context.Context, c *lifecycle.Case) {
	r.publish(ctx, &TestStarted{
		BaseEvent: r.base(EventTypeTestStarted, c.Test.Class, SeverityDebug),
		Test:      c.Test,
		Name:      c.Name(),
	})
	r.caseWatch.Restart()
}

// Record publishes the outcome of a case. A case that has not been concluded
// is concluded first. The case duration is the time since StartTest, or for
// a case that never started, since the previous outcome was handled. Time
// spent in listeners is never part of a case duration.
func (r *Recorder) Record(ctx context.Context, c *lifecycle.Case) {
	status := c.Status()
	if status == lifecycle.NotRun {
		var err error
		if status, err = c.Conclude(); err != nil {
			logging.Warn("Recorder", "Case %s concluded twice: %v", c.Name(), err)
		}
	}

	c.Duration = r.caseWatch.Elapsed()

	result := CaseResult{
		Test:     c.Test,
		Name:     c.Name(),
		Duration: c.Duration,
		Output:   c.Output,
	}

	var event CaseCompleted
	switch status {
	case lifecycle.Failed:
		event = &CaseFailed{
			BaseEvent:  r.base(EventTypeCaseFailed, c.Test.Class, SeverityError),
			CaseResult: result,
			Exception:  c.Exception(),
			Secondary:  c.SecondaryFaults(),
		}
	case lifecycle.Passed:
		event = &CasePassed{
			BaseEvent:  r.base(EventTypeCasePassed, c.Test.Class, SeverityInfo),
			CaseResult: result,
		}
	default:
		event = &CaseSkipped{
			BaseEvent:  r.base(EventTypeCaseSkipped, c.Test.Class, SeverityWarn),
			CaseResult: result,
			Reason:     c.SkipReason(),
		}
	}

	r.classSummary.Add(event)
	r.publish(ctx, event)
	r.caseWatch.Restart()
}

// Skip records a skipped outcome for a test that never got a case.
func (r *Recorder) Skip(ctx context.Context, test lifecycle.Test, reason string) {
	c := lifecycle.NewCase(test, nil)
	c.Skip(reason)
	r.Record(ctx, c)
}

// Fail records a failed outcome for a test that never got a case, such as a
// class whose lifecycle could not run.
func (r *Recorder) Fail(ctx context.Context, test lifecycle.Test, err error) {
	c := lifecycle.NewCase(test, nil)
	c.Fail(err)
	r.Record(ctx, c)
}

// CompleteClass publishes ClassCompleted and folds the class summary into the run summary.
func (r *Recorder) CompleteClass(ctx context.Context, class string) {
	r.classWatch.Stop()
	r.publish(ctx, &ClassCompleted{
		BaseEvent: r.base(EventTypeClassCompleted, class, SeverityInfo),
		Class:     class,
		Summary:   r.classSummary,
		Duration:  r.classWatch.Elapsed(),
	})
	r.assemblySummary.Merge(r.classSummary)
	r.classSummary = ExecutionSummary{}
}

// CompleteAssembly publishes AssemblyCompleted and returns the run summary.
func (r *Recorder) CompleteAssembly(ctx context.Context) ExecutionSummary {
	r.assemblyWatch.Stop()
	severity := SeverityInfo
	if r.assemblySummary.Failed > 0 {
		severity = SeverityError
	}
	r.publish(ctx, &AssemblyCompleted{
		BaseEvent: r.base(EventTypeAssemblyCompleted, r.module, severity),
		Module:    r.module,
		Framework: r.framework,
		Summary:   r.assemblySummary,
		Duration:  r.assemblyWatch.Elapsed(),
	})
	return r.assemblySummary
}

// Err returns the listener faults collected during the run, or nil.
func (r *Recorder) Err() error {
	return r.faults.ErrorOrNil()
}

func (r *Recorder) publish(ctx context.Context, event Event) {
	if err := r.bus.Publish(ctx, event); err != nil {
		r.faults = multierror.Append(r.faults, err)
	}
}

func (r *Recorder) base(eventType EventType, source string, severity EventSeverity) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SourceLabel:   source,
		EventTime:     r.clock.Now(),
		EventSeverity: severity,
		CorrelationId: r.runID,
	}
}
