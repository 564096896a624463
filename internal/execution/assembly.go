package execution

import (
	"context"
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"

	"conventest/internal/convention"
	"conventest/internal/discovery"
	"conventest/internal/lifecycle"
	"conventest/internal/metadata"
	"conventest/internal/reporting"
	"conventest/pkg/logging"
)

// NotRunReason is the skip reason for cases a lifecycle never handed to its CaseAction.
const NotRunReason = "not run by the lifecycle"

// Names of the synthetic case reported when a class fails as a whole.
const (
	ConstructionCaseName = "construction"
	LifecycleCaseName    = "lifecycle"
)

type selector func(class *metadata.Type, m *metadata.Method) bool

// classPlan is a discovered test class with its ordered test methods.
type classPlan struct {
	class   *metadata.Type
	methods []*metadata.Method
}

// plan discovers every test class and test method before anything runs, so a
// faulty predicate aborts the run without partial results.
func plan(d *convention.Discovery, candidates []*metadata.Type, selected selector) ([]classPlan, error) {
	classes, err := discovery.NewClassDiscoverer(d).TestClasses(candidates)
	if err != nil {
		return nil, err
	}

	methodDiscoverer := discovery.NewMethodDiscoverer(d)
	var plans []classPlan
	for _, class := range classes {
		methods, err := methodDiscoverer.TestMethods(class)
		if err != nil {
			return nil, err
		}
		if selected != nil {
			methods = filterSelected(class, methods, selected)
		}
		if len(methods) == 0 {
			continue
		}
		plans = append(plans, classPlan{class: class, methods: methods})
	}
	return plans, nil
}

func filterSelected(class *metadata.Type, methods []*metadata.Method, selected selector) []*metadata.Method {
	var kept []*metadata.Method
	for _, m := range methods {
		if selected(class, m) {
			kept = append(kept, m)
		}
	}
	return kept
}

// testAssembly runs the planned classes one after another.
type testAssembly struct {
	discovery     *convention.Discovery
	recorder      *reporting.Recorder
	plans         []classPlan
	captureOutput bool
}

func (a *testAssembly) run(ctx context.Context) {
	for _, p := range a.plans {
		tc := &testClass{
			plan:          p,
			discovery:     a.discovery,
			recorder:      a.recorder,
			captureOutput: a.captureOutput,
		}
		tc.run(ctx)
	}
}

// caseSpec is one method with one argument list.
type caseSpec struct {
	method  *metadata.Method
	args    []any
	fault   error
	reached bool
}

// testClass runs one class through a fresh lifecycle.
type testClass struct {
	plan          classPlan
	discovery     *convention.Discovery
	recorder      *reporting.Recorder
	captureOutput bool
	specs         []*caseSpec
}

func (tc *testClass) run(ctx context.Context) {
	class := tc.plan.class
	name := class.FullName()
	tc.recorder.StartClass(ctx, name)
	defer tc.recorder.CompleteClass(ctx, name)

	tc.specs = tc.expand()

	err := protect(func() error {
		lc := tc.discovery.NewLifecycle()
		if lc == nil {
			return fmt.Errorf("lifecycle factory returned nil for %s", name)
		}
		return lc.Execute(class, func(action lifecycle.CaseAction) {
			tc.runCases(ctx, action)
		})
	})
	if err != nil {
		logging.Error("Runner", err, "Lifecycle failed for class %s", name)
		tc.recorder.Fail(ctx, lifecycle.Test{Class: name, Method: classFailureName(err)}, err)
	}

	for _, spec := range tc.specs {
		if spec.reached {
			continue
		}
		test := lifecycle.NewTest(class, spec.method)
		if spec.fault != nil {
			tc.recorder.Fail(ctx, test, spec.fault)
			continue
		}
		// The class already failed as a whole; its cases were not omitted by choice.
		if err != nil {
			continue
		}
		c := lifecycle.NewCase(test, spec.method, spec.args...)
		c.Skip(NotRunReason)
		tc.recorder.Record(ctx, c)
	}
}

// classFailureName names the single failed case reported when a lifecycle fails.
func classFailureName(err error) string {
	var construction *lifecycle.ConstructionError
	if errors.As(err, &construction) {
		return ConstructionCaseName
	}
	return LifecycleCaseName
}

// expand turns each method into one spec per argument list.
func (tc *testClass) expand() []*caseSpec {
	var specs []*caseSpec
	for _, m := range tc.plan.methods {
		var sets [][]any
		err := protect(func() error {
			sets = tc.discovery.Parameters(m)
			return nil
		})
		if err != nil {
			specs = append(specs, &caseSpec{method: m, fault: fmt.Errorf("parameter source failed for %s: %w", m.Name, err)})
			continue
		}
		for _, args := range sets {
			specs = append(specs, &caseSpec{method: m, args: args})
		}
	}
	return specs
}

// runCases hands every runnable case to action in discovery order. Each call
// creates fresh cases, so a lifecycle may run the class's cases more than once.
func (tc *testClass) runCases(ctx context.Context, action lifecycle.CaseAction) {
	for _, spec := range tc.specs {
		if spec.fault != nil {
			continue
		}
		spec.reached = true

		c := lifecycle.NewCase(lifecycle.NewTest(tc.plan.class, spec.method), spec.method, spec.args...)
		tc.recorder.StartTest(ctx, c)

		c.Output = captureOutput(tc.captureOutput, func() {
			if err := protect(func() error {
				action(c)
				return nil
			}); err != nil {
				c.Fail(err)
			}
		})

		if _, err := c.Conclude(); err != nil {
			logging.Warn("Runner", "Case %s was already concluded", c.Name())
		}
		tc.recorder.Record(ctx, c)
	}
}

// protect runs fn and converts a panic into an error with a stack.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = goerrors.Wrap(e, 2)
			} else {
				err = goerrors.Wrap(fmt.Errorf("%v", r), 2)
			}
		}
	}()
	return fn()
}
