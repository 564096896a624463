// Package execution drives a run: it discovers test classes and cases upfront,
// runs each class through its lifecycle and records every outcome.
package execution

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"conventest/internal/convention"
	"conventest/internal/lifecycle"
	"conventest/internal/metadata"
	"conventest/internal/reporting"
	"conventest/pkg/logging"
)

// DiscoveryCaseName names the synthetic case reporting a discovery fault.
const DiscoveryCaseName = "discovery"

// Runner is the entry point consumed by hosts: Discover, RunAll and RunSelected.
type Runner struct {
	module        *metadata.Module
	convention    *convention.Convention
	listeners     []reporting.Listener
	clock         reporting.Clock
	runID         string
	captureOutput bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithListeners registers listeners on the bus of every run, in order.
func WithListeners(listeners ...reporting.Listener) Option {
	return func(r *Runner) {
		r.listeners = append(r.listeners, listeners...)
	}
}

// WithClock sets the clock used for event timestamps and durations.
func WithClock(clock reporting.Clock) Option {
	return func(r *Runner) {
		r.clock = clock
	}
}

// WithRunID fixes the run ID instead of generating one per run.
func WithRunID(id string) Option {
	return func(r *Runner) {
		r.runID = id
	}
}

// WithOutputCapture controls whether os.Stdout is captured while cases run.
func WithOutputCapture(enabled bool) Option {
	return func(r *Runner) {
		r.captureOutput = enabled
	}
}

// NewRunner creates a runner for module. A nil convention means convention.Default().
func NewRunner(module *metadata.Module, conv *convention.Convention, opts ...Option) *Runner {
	if conv == nil {
		conv = convention.Default()
	}
	r := &Runner{
		module:        module,
		convention:    conv,
		clock:         reporting.SystemClock(),
		captureOutput: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// With returns a copy of the runner with opts applied on top of its own.
func (r *Runner) With(opts ...Option) *Runner {
	clone := *r
	clone.listeners = append([]reporting.Listener(nil), r.listeners...)
	for _, opt := range opts {
		opt(&clone)
	}
	return &clone
}

// Module returns the module the runner was created for.
func (r *Runner) Module() *metadata.Module {
	return r.module
}

func (r *Runner) newRecorder() *reporting.Recorder {
	opts := []reporting.RecorderOption{reporting.WithClock(r.clock)}
	if r.runID != "" {
		opts = append(opts, reporting.WithRunID(r.runID))
	}
	return reporting.NewRecorder(reporting.NewBus(r.listeners...), opts...)
}

// Discover publishes a TestDiscovered event for every test case of the module
// and returns the discovered tests in order.
func (r *Runner) Discover(ctx context.Context) ([]lifecycle.Test, error) {
	recorder := r.newRecorder()

	plans, err := plan(r.convention.Freeze(), r.module.Types(), nil)
	if err != nil {
		return nil, err
	}

	var tests []lifecycle.Test
	for _, p := range plans {
		for _, m := range p.methods {
			test := lifecycle.NewTest(p.class, m)
			recorder.Discovered(ctx, test, m)
			tests = append(tests, test)
		}
	}
	logging.Info("Runner", "Discovered %d tests in %d classes", len(tests), len(plans))
	return tests, recorder.Err()
}

// RunAll runs every test case of the module.
func (r *Runner) RunAll(ctx context.Context) (reporting.ExecutionSummary, error) {
	return r.run(ctx, r.module.Types(), nil)
}

// RunSelected runs exactly the named tests. Tests are grouped by class so each
// class still runs through its lifecycle, limited to the requested operations.
// Classes the module does not declare are ignored.
func (r *Runner) RunSelected(ctx context.Context, tests []lifecycle.Test) (reporting.ExecutionSummary, error) {
	request := make(map[string]map[string]bool)
	var candidates []*metadata.Type

	for _, test := range tests {
		methods, seen := request[test.Class]
		if !seen {
			methods = make(map[string]bool)
			request[test.Class] = methods
			if class, ok := r.module.Lookup(test.Class); ok {
				candidates = append(candidates, class)
			} else {
				logging.Warn("Runner", "Requested class %s is not declared by module %s", test.Class, r.module.Name)
			}
		}
		methods[test.Method] = true
	}

	selected := func(class *metadata.Type, m *metadata.Method) bool {
		return request[class.FullName()][m.Name]
	}
	return r.run(ctx, candidates, selected)
}

func (r *Runner) run(ctx context.Context, candidates []*metadata.Type, selected selector) (reporting.ExecutionSummary, error) {
	discovery := r.convention.Freeze()
	recorder := r.newRecorder()
	recorder.StartAssembly(ctx, r.module)

	plans, err := plan(discovery, candidates, selected)
	if err != nil {
		logging.Error("Runner", err, "Discovery failed; aborting run of %s", r.module.Name)
		recorder.StartClass(ctx, r.module.Name)
		recorder.Fail(ctx, lifecycle.Test{Class: r.module.Name, Method: DiscoveryCaseName}, err)
		recorder.CompleteClass(ctx, r.module.Name)
		summary := recorder.CompleteAssembly(ctx)
		if listenerErr := recorder.Err(); listenerErr != nil {
			return summary, multierror.Append(err, listenerErr)
		}
		return summary, err
	}

	assembly := &testAssembly{
		discovery:     discovery,
		recorder:      recorder,
		plans:         plans,
		captureOutput: r.captureOutput,
	}
	assembly.run(ctx)

	summary := recorder.CompleteAssembly(ctx)
	logging.Info("Runner", "Run of %s finished: %s", r.module.Name, summary)
	return summary, recorder.Err()
}
