package execution

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conventest/internal/convention"
	"conventest/internal/discovery"
	"conventest/internal/lifecycle"
	"conventest/internal/metadata"
	"conventest/internal/reporting"
)

type collector struct {
	events []reporting.Event
}

func (c *collector) Handle(_ context.Context, event reporting.Event) error {
	c.events = append(c.events, event)
	return nil
}

func (c *collector) ofType(eventType reporting.EventType) []reporting.Event {
	var matched []reporting.Event
	for _, e := range c.events {
		if e.Type() == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

func (c *collector) outcomes() []string {
	var lines []string
	for _, e := range c.events {
		if completed, ok := e.(reporting.CaseCompleted); ok {
			lines = append(lines, completed.Result().Name+" "+completed.Status().String())
		}
	}
	return lines
}

type customFault struct{ detail string }

func (f *customFault) Error() string { return "custom: " + f.detail }

var fault = &customFault{detail: "original"}

func sampleClass(namespace, name string, methods ...*metadata.Method) *metadata.Type {
	return &metadata.Type{
		Namespace:   namespace,
		Name:        name,
		Methods:     methods,
		Constructor: func() (any, error) { return &struct{}{}, nil },
	}
}

func newRunner(module *metadata.Module, conv *convention.Convention, events *collector) *Runner {
	return NewRunner(module, conv,
		WithListeners(events),
		WithClock(reporting.NewManualClock(time.Unix(0, 0))),
		WithRunID("run"),
		WithOutputCapture(false),
	)
}

func TestRunAll_PassAndFail(t *testing.T) {
	module := metadata.NewModule("Sample",
		sampleClass("Sample", "OutcomeTests",
			metadata.Action("Passes", func(any) error { return nil }),
			metadata.Action("Fails", func(any) error { panic(fault) }),
		),
	)
	events := &collector{}

	summary, err := newRunner(module, nil, events).RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total())
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)

	failed := events.ofType(reporting.EventTypeCaseFailed)
	require.Len(t, failed, 1)
	caseFailed := failed[0].(*reporting.CaseFailed)
	assert.Same(t, fault, caseFailed.Exception.Original)
	assert.Equal(t, "*execution.customFault", caseFailed.Exception.TypeName())
	assert.NotEmpty(t, caseFailed.Exception.Stack())

	completed := events.ofType(reporting.EventTypeAssemblyCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, summary, completed[0].(*reporting.AssemblyCompleted).Summary)
}

func TestRunAll_EventSequence(t *testing.T) {
	module := metadata.NewModule("Sample",
		sampleClass("Sample", "FirstTests", metadata.Action("A", func(any) error { return nil })),
		sampleClass("Sample", "Helper", metadata.Action("NotATest", func(any) error { return nil })),
		sampleClass("Sample", "SecondTests", metadata.Action("B", func(any) error { return nil })),
	)
	events := &collector{}

	_, err := newRunner(module, nil, events).RunAll(context.Background())
	require.NoError(t, err)

	var types []reporting.EventType
	for _, e := range events.events {
		types = append(types, e.Type())
	}
	assert.Equal(t, []reporting.EventType{
		reporting.EventTypeAssemblyStarted,
		reporting.EventTypeClassStarted,
		reporting.EventTypeTestStarted,
		reporting.EventTypeCasePassed,
		reporting.EventTypeClassCompleted,
		reporting.EventTypeClassStarted,
		reporting.EventTypeTestStarted,
		reporting.EventTypeCasePassed,
		reporting.EventTypeClassCompleted,
		reporting.EventTypeAssemblyCompleted,
	}, types)
}

func TestRunAll_CaseIsolation(t *testing.T) {
	module := metadata.NewModule("Sample",
		sampleClass("Sample", "IsolationTests",
			metadata.Action("First", func(any) error { return errors.New("first failed") }),
			metadata.Action("Second", func(any) error { panic("second panicked") }),
			metadata.Action("Third", func(any) error { return nil }),
		),
	)
	events := &collector{}

	summary, err := newRunner(module, nil, events).RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Sample.IsolationTests.First Failed",
		"Sample.IsolationTests.Second Failed",
		"Sample.IsolationTests.Third Passed",
	}, events.outcomes())
	assert.Equal(t, 2, summary.Failed)
}

func TestRunAll_PredicateFaultAbortsRun(t *testing.T) {
	ran := false
	module := metadata.NewModule("Sample",
		sampleClass("Sample", "AnyTests", metadata.Action("A", func(any) error { ran = true; return nil })),
	)
	conv := convention.New().AddClassFilter(func(*metadata.Type) bool {
		panic(errors.New("Unsafe class-discovery predicate threw!"))
	})
	events := &collector{}

	summary, err := newRunner(module, conv, events).RunAll(context.Background())

	var predicateErr *discovery.PredicateError
	require.ErrorAs(t, err, &predicateErr)
	assert.False(t, ran)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"Sample.discovery Failed"}, events.outcomes())
	assert.Len(t, events.ofType(reporting.EventTypeClassStarted), 1)
}

func TestRunAll_LifecycleVariants(t *testing.T) {
	newModule := func() *metadata.Module {
		return metadata.NewModule("Sample",
			sampleClass("Sample", "LifecycleTests",
				metadata.Action("A", func(any) error { return nil }),
				metadata.Action("B", func(any) error { return nil }),
			),
		)
	}

	t.Run("skipping lifecycle", func(t *testing.T) {
		conv := convention.Default().SetLifecycle(func() lifecycle.Lifecycle {
			return lifecycle.LifecycleFunc(func(_ *metadata.Type, runCases func(lifecycle.CaseAction)) error {
				runCases(func(c *lifecycle.Case) {
					if c.Test.Method == "B" {
						c.Skip("B is skipped on purpose")
						return
					}
					c.Execute(nil)
				})
				return nil
			})
		})
		events := &collector{}

		summary, err := newRunner(newModule(), conv, events).RunAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Passed)
		assert.Equal(t, 1, summary.Skipped)

		skipped := events.ofType(reporting.EventTypeCaseSkipped)
		require.Len(t, skipped, 1)
		assert.Equal(t, "B is skipped on purpose", skipped[0].(*reporting.CaseSkipped).Reason)
	})

	t.Run("lifecycle never runs cases", func(t *testing.T) {
		conv := convention.Default().SetLifecycle(func() lifecycle.Lifecycle {
			return lifecycle.LifecycleFunc(func(*metadata.Type, func(lifecycle.CaseAction)) error { return nil })
		})
		events := &collector{}

		summary, err := newRunner(newModule(), conv, events).RunAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Skipped)
		for _, e := range events.ofType(reporting.EventTypeCaseSkipped) {
			assert.Equal(t, NotRunReason, e.(*reporting.CaseSkipped).Reason)
		}
	})

	t.Run("lifecycle repeats cases", func(t *testing.T) {
		conv := convention.Default().SetLifecycle(func() lifecycle.Lifecycle {
			return lifecycle.LifecycleFunc(func(_ *metadata.Type, runCases func(lifecycle.CaseAction)) error {
				for i := 0; i < 2; i++ {
					runCases(func(c *lifecycle.Case) { c.Execute(nil) })
				}
				return nil
			})
		})
		events := &collector{}

		summary, err := newRunner(newModule(), conv, events).RunAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, summary.Passed)
	})

	t.Run("lifecycle fails", func(t *testing.T) {
		conv := convention.Default().SetLifecycle(func() lifecycle.Lifecycle {
			return lifecycle.LifecycleFunc(func(*metadata.Type, func(lifecycle.CaseAction)) error {
				panic("lifecycle exploded")
			})
		})
		events := &collector{}

		summary, err := newRunner(newModule(), conv, events).RunAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Sample.LifecycleTests.lifecycle Failed",
		}, events.outcomes())
		assert.Equal(t, 1, summary.Total())
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, "lifecycle exploded", summary.Failures[0].Message)
	})

	t.Run("no parameterless constructor", func(t *testing.T) {
		module := newModule()
		class, _ := module.Lookup("Sample.LifecycleTests")
		class.Constructor = nil
		events := &collector{}

		summary, err := newRunner(module, nil, events).RunAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Total())
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 0, summary.Skipped)
		assert.Equal(t, []string{"Sample.LifecycleTests.construction Failed"}, events.outcomes())

		failed := events.ofType(reporting.EventTypeCaseFailed)[0].(*reporting.CaseFailed)
		var construction *lifecycle.ConstructionError
		assert.ErrorAs(t, failed.Exception, &construction)
	})
}

func TestRunAll_Parameters(t *testing.T) {
	var sums []int
	add := metadata.NewMethod("Add", 2, func(_ any, args []any) error {
		sums = append(sums, args[0].(int)+args[1].(int))
		return nil
	}).WithTags(
		metadata.Tag{Kind: "Input", Value: []any{1, 2}},
		metadata.Tag{Kind: "Input", Value: []any{3, 4}},
	)
	missing := metadata.NewMethod("Missing", 1, func(any, []any) error { return nil })

	module := metadata.NewModule("Sample", sampleClass("Sample", "MathTests", add, missing))
	conv := convention.Default().SetParameterSource(convention.TagParameters("Input"))
	events := &collector{}

	summary, err := newRunner(module, conv, events).RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, sums)
	assert.Equal(t, []string{
		"Sample.MathTests.Add(1, 2) Passed",
		"Sample.MathTests.Add(3, 4) Passed",
		"Sample.MathTests.Missing Failed",
	}, events.outcomes())
	assert.Equal(t, metadata.MissingArgumentsMessage, summary.Failures[0].Message)
}

func TestRunSelected(t *testing.T) {
	var ran []string
	record := func(name string) *metadata.Method {
		return metadata.Action(name, func(any) error { ran = append(ran, name); return nil })
	}
	module := metadata.NewModule("Sample",
		sampleClass("Sample", "FirstTests", record("A"), record("B"), record("C")),
		sampleClass("Sample", "SecondTests", record("D")),
		sampleClass("Sample", "ThirdTests", record("E")),
	)
	events := &collector{}

	summary, err := newRunner(module, nil, events).RunSelected(context.Background(), []lifecycle.Test{
		{Class: "Sample.ThirdTests", Method: "E"},
		{Class: "Sample.FirstTests", Method: "C"},
		{Class: "Sample.FirstTests", Method: "A"},
		{Class: "Sample.Missing", Method: "X"},
		{Class: "Sample.SecondTests", Method: "Nope"},
	})
	require.NoError(t, err)

	// Classes run in request order; methods keep discovery order.
	assert.Equal(t, []string{"E", "A", "C"}, ran)
	assert.Equal(t, 3, summary.Passed)
	assert.Len(t, events.ofType(reporting.EventTypeClassStarted), 2)
}

func TestDiscover(t *testing.T) {
	module := metadata.NewModule("Sample",
		sampleClass("Sample", "FirstTests", metadata.Action("B", nil), metadata.Action("A", nil)),
		sampleClass("Sample", "Other", metadata.Action("C", nil)),
	)
	events := &collector{}

	tests, err := newRunner(module, convention.Default().SetCaseOrder(convention.ByName), events).Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []lifecycle.Test{
		{Class: "Sample.FirstTests", Method: "A"},
		{Class: "Sample.FirstTests", Method: "B"},
	}, tests)

	discovered := events.ofType(reporting.EventTypeTestDiscovered)
	require.Len(t, discovered, 2)
	assert.Equal(t, "A", discovered[0].(*reporting.TestDiscovered).Method.Name)
}

func TestRunAll_CapturesOutput(t *testing.T) {
	module := metadata.NewModule("Sample",
		sampleClass("Sample", "OutputTests",
			metadata.Action("Prints", func(any) error {
				fmt.Println("hello from the case")
				return nil
			}),
		),
	)
	events := &collector{}
	runner := NewRunner(module, nil, WithListeners(events))

	_, err := runner.RunAll(context.Background())
	require.NoError(t, err)

	passed := events.ofType(reporting.EventTypeCasePassed)
	require.Len(t, passed, 1)
	assert.Equal(t, "hello from the case\n", passed[0].(*reporting.CasePassed).Output)
}

func TestRunAll_ListenerFaultReturned(t *testing.T) {
	module := metadata.NewModule("Sample",
		sampleClass("Sample", "AnyTests", metadata.Action("A", func(any) error { return nil })),
	)
	failing := reporting.ListenerFunc(func(_ context.Context, e reporting.Event) error {
		if e.Type() == reporting.EventTypeCasePassed {
			return errors.New("listener down")
		}
		return nil
	})

	summary, err := NewRunner(module, nil, WithListeners(failing), WithOutputCapture(false)).RunAll(context.Background())
	assert.Equal(t, 1, summary.Passed)
	assert.ErrorContains(t, err, "listener down")
}

func TestRunner_WithAddsListenersToACopy(t *testing.T) {
	module := metadata.NewModule("Sample",
		sampleClass("Sample", "AnyTests", metadata.Action("A", func(any) error { return nil })),
	)
	base := &collector{}
	extra := &collector{}
	runner := newRunner(module, nil, base)

	_, err := runner.With(WithListeners(extra)).RunAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, extra.ofType(reporting.EventTypeCasePassed), 1)
	assert.Len(t, base.ofType(reporting.EventTypeCasePassed), 1)

	_, err = runner.RunAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, extra.ofType(reporting.EventTypeCasePassed), 1, "the original runner is unchanged")
	assert.Len(t, base.ofType(reporting.EventTypeCasePassed), 2)
}
