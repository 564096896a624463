// Package discovery applies a frozen convention to the types of a module,
// selecting test classes and ordering their test cases.
package discovery

import (
	"fmt"
	"slices"

	goerrors "github.com/go-errors/errors"

	"conventest/internal/convention"
	"conventest/internal/metadata"
	"conventest/pkg/logging"
)

// Scope names the kind of user-supplied function that faulted.
type Scope string

const (
	ScopeClass  Scope = "class-discovery predicate"
	ScopeMethod Scope = "method-discovery predicate"
	ScopeOrder  Scope = "case-ordering comparator"
)

// PredicateError reports that a user-supplied predicate or comparator raised a
// fault. Discovery is all or nothing, so the whole discovery operation fails.
type PredicateError struct {
	Scope Scope
	// Cause is the value raised by the predicate, unchanged.
	Cause error

	trace *goerrors.Error
}

// Error returns the fixed explanation for the scope. The fault itself is available via Unwrap.
func (e *PredicateError) Error() string {
	return fmt.Sprintf("Exception thrown while attempting to run a custom %s. Check the inner exception for more details.", e.Scope)
}

// Unwrap returns the original fault.
func (e *PredicateError) Unwrap() error {
	return e.Cause
}

// StackFrames returns the stack captured where the predicate panicked.
func (e *PredicateError) StackFrames() []goerrors.StackFrame {
	if e.trace == nil {
		return nil
	}
	return e.trace.StackFrames()
}

// guard runs fn and converts a panic into a *PredicateError.
func guard(scope Scope, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			err = &PredicateError{Scope: scope, Cause: cause, trace: goerrors.Wrap(cause, 2)}
		}
	}()
	fn()
	return nil
}

// ClassDiscoverer selects the test classes among candidate types.
type ClassDiscoverer struct {
	filters []convention.ClassPredicate
}

// NewClassDiscoverer creates a class discoverer for a frozen convention.
func NewClassDiscoverer(d *convention.Discovery) *ClassDiscoverer {
	return &ClassDiscoverer{filters: d.ClassFilters()}
}

// TestClasses returns the concrete candidates that satisfy every class predicate,
// in candidate order. Predicates are evaluated in registration order and stop at
// the first one that rejects a candidate.
func (cd *ClassDiscoverer) TestClasses(candidates []*metadata.Type) ([]*metadata.Type, error) {
	var classes []*metadata.Type
	for _, candidate := range candidates {
		if !candidate.IsConcrete() {
			continue
		}

		var matched bool
		err := guard(ScopeClass, func() {
			matched = allClassFilters(cd.filters, candidate)
		})
		if err != nil {
			logging.Error("Discovery", err, "Class predicate faulted on %s", candidate.FullName())
			return nil, err
		}
		if matched {
			classes = append(classes, candidate)
		}
	}

	logging.Debug("Discovery", "Discovered %d test classes among %d candidates", len(classes), len(candidates))
	return classes, nil
}

func allClassFilters(filters []convention.ClassPredicate, t *metadata.Type) bool {
	for _, filter := range filters {
		if !filter(t) {
			return false
		}
	}
	return true
}

// MethodDiscoverer selects and orders the test cases of a test class.
type MethodDiscoverer struct {
	filters []convention.MethodPredicate
	order   convention.CaseComparator
}

// NewMethodDiscoverer creates a method discoverer for a frozen convention.
func NewMethodDiscoverer(d *convention.Discovery) *MethodDiscoverer {
	return &MethodDiscoverer{filters: d.MethodFilters(), order: d.CaseOrder()}
}

// TestMethods returns the public instance operations of class that satisfy every
// method predicate. Special operations and disposal hooks are never test methods.
// With a comparator the result is stably sorted, otherwise declaration order is kept.
func (md *MethodDiscoverer) TestMethods(class *metadata.Type) ([]*metadata.Method, error) {
	var methods []*metadata.Method
	for _, m := range class.InstanceMethods() {
		if m.Special || m.IsDisposalHook() {
			continue
		}

		var matched bool
		err := guard(ScopeMethod, func() {
			matched = allMethodFilters(md.filters, m)
		})
		if err != nil {
			logging.Error("Discovery", err, "Method predicate faulted on %s.%s", class.FullName(), m.Name)
			return nil, err
		}
		if matched {
			methods = append(methods, m)
		}
	}

	if md.order != nil {
		err := guard(ScopeOrder, func() {
			slices.SortStableFunc(methods, md.order)
		})
		if err != nil {
			logging.Error("Discovery", err, "Case comparator faulted on %s", class.FullName())
			return nil, err
		}
	}
	return methods, nil
}

func allMethodFilters(filters []convention.MethodPredicate, m *metadata.Method) bool {
	for _, filter := range filters {
		if !filter(m) {
			return false
		}
	}
	return true
}
