// Package lifecycle holds the case model and the strategies that decide how test
// classes are instantiated, wrapped and disposed around their cases.
package lifecycle

import (
	"fmt"

	"conventest/internal/metadata"
)

// CaseAction runs one case. The engine calls it once for every case handed to runCases.
type CaseAction func(c *Case)

// Lifecycle governs instantiation, per-case wrapping and disposal for one test class.
//
// Execute is called exactly once per class. It must call runCases with a
// CaseAction; the engine then invokes that action for each discovered case in
// order. A Lifecycle may call runCases more than once, or not at all, to repeat
// or omit cases. An error returned from Execute is fatal to the class.
type Lifecycle interface {
	Execute(class *metadata.Type, runCases func(CaseAction)) error
}

// Factory creates the Lifecycle used for a single class run.
type Factory func() Lifecycle

// LifecycleFunc adapts a function to the Lifecycle interface.
type LifecycleFunc func(class *metadata.Type, runCases func(CaseAction)) error

// Execute calls f.
func (f LifecycleFunc) Execute(class *metadata.Type, runCases func(CaseAction)) error {
	return f(class, runCases)
}

// ConstructionError reports that a test class could not be instantiated.
type ConstructionError struct {
	Type string
	Err  error
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	return fmt.Sprintf("failed to construct %s: %v", e.Type, e.Err)
}

// Unwrap returns the underlying construction fault.
func (e *ConstructionError) Unwrap() error {
	return e.Err
}

func construct(class *metadata.Type) (any, error) {
	instance, err := class.New()
	if err != nil {
		return nil, &ConstructionError{Type: class.FullName(), Err: err}
	}
	return instance, nil
}

func requireConstructor(class *metadata.Type) error {
	if class.Constructor == nil {
		return &ConstructionError{Type: class.FullName(), Err: &metadata.NoConstructorError{Type: class.FullName()}}
	}
	return nil
}

// PerCase constructs a fresh instance for every case and disposes it afterwards.
// A disposal fault fails a passing case and is kept as secondary when the case
// already failed.
type PerCase struct{}

// Execute implements Lifecycle.
func (PerCase) Execute(class *metadata.Type, runCases func(CaseAction)) error {
	if err := requireConstructor(class); err != nil {
		return err
	}
	runCases(func(c *Case) {
		instance, err := construct(class)
		if err != nil {
			c.Fail(err)
			return
		}
		c.Execute(instance)
		c.Fail(metadata.Dispose(instance))
	})
	return nil
}

// PerClass constructs one instance shared by every case of the class and disposes it
// once all cases have run.
type PerClass struct{}

// Execute implements Lifecycle.
func (PerClass) Execute(class *metadata.Type, runCases func(CaseAction)) error {
	instance, err := construct(class)
	if err != nil {
		return err
	}
	runCases(func(c *Case) {
		c.Execute(instance)
	})
	if err := metadata.Dispose(instance); err != nil {
		return fmt.Errorf("dispose %s: %w", class.FullName(), err)
	}
	return nil
}

// SetUp constructs an instance per case and invokes the named operation before the case.
// A set-up fault fails the case without running it.
type SetUp struct {
	Method string
}

// Execute implements Lifecycle.
func (s SetUp) Execute(class *metadata.Type, runCases func(CaseAction)) error {
	if err := requireConstructor(class); err != nil {
		return err
	}
	runCases(func(c *Case) {
		instance, err := construct(class)
		if err != nil {
			c.Fail(err)
			return
		}
		if err := invokeNamed(class, instance, s.Method); err != nil {
			c.Fail(err)
		} else {
			c.Execute(instance)
		}
		c.Fail(metadata.Dispose(instance))
	})
	return nil
}

// invokeNamed invokes a parameterless operation by name. A class without the
// operation is not an error.
func invokeNamed(class *metadata.Type, instance any, name string) error {
	m, ok := class.Method(name)
	if !ok {
		return nil
	}
	return m.Invoke(instance, nil)
}
