// Package convention configures which types are test classes, which of their
// operations are test cases, in which order cases run and under which lifecycle.
package convention

import (
	"slices"

	"conventest/internal/lifecycle"
	"conventest/internal/metadata"
)

// DefaultClassSuffix is the class name suffix used by Default.
const DefaultClassSuffix = "Tests"

// ClassPredicate decides whether a type is a test class.
type ClassPredicate func(t *metadata.Type) bool

// MethodPredicate decides whether an operation of a test class is a test case.
type MethodPredicate func(m *metadata.Method) bool

// CaseComparator orders test cases. It returns a negative number when a sorts
// before b, a positive number when b sorts before a, and zero when they tie.
type CaseComparator func(a, b *metadata.Method) int

// ParameterSource supplies the argument lists for an operation. Each list
// produces one case.
type ParameterSource func(m *metadata.Method) [][]any

// Convention is the mutable configuration of a run. It is not safe for
// concurrent use; call Freeze once configuration is complete.
type Convention struct {
	classFilters  []ClassPredicate
	methodFilters []MethodPredicate
	caseOrder     CaseComparator
	lifecycle     lifecycle.Factory
	parameters    ParameterSource
}

// New returns a convention with no filters, declaration order and the per-case lifecycle.
func New() *Convention {
	return &Convention{
		lifecycle: func() lifecycle.Lifecycle { return lifecycle.PerCase{} },
	}
}

// Default returns the convention used when none is configured: classes whose
// name ends with "Tests", every public instance operation, the per-case lifecycle.
func Default() *Convention {
	return New().AddClassFilter(NameEndsWith(DefaultClassSuffix))
}

// AddClassFilter appends a class predicate. Predicates are evaluated in the order added.
func (c *Convention) AddClassFilter(p ClassPredicate) *Convention {
	c.classFilters = append(c.classFilters, p)
	return c
}

// AddMethodFilter appends a method predicate. Predicates are evaluated in the order added.
func (c *Convention) AddMethodFilter(p MethodPredicate) *Convention {
	c.methodFilters = append(c.methodFilters, p)
	return c
}

// SetCaseOrder sets the comparator used to sort cases. A nil comparator keeps declaration order.
func (c *Convention) SetCaseOrder(cmp CaseComparator) *Convention {
	c.caseOrder = cmp
	return c
}

// SetLifecycle sets the factory creating a lifecycle for each class run.
func (c *Convention) SetLifecycle(factory lifecycle.Factory) *Convention {
	c.lifecycle = factory
	return c
}

// SetParameterSource sets where argument lists for cases come from.
func (c *Convention) SetParameterSource(source ParameterSource) *Convention {
	c.parameters = source
	return c
}

// Freeze returns an immutable snapshot of the convention. Later changes to c
// do not affect the snapshot.
func (c *Convention) Freeze() *Discovery {
	factory := c.lifecycle
	if factory == nil {
		factory = func() lifecycle.Lifecycle { return lifecycle.PerCase{} }
	}
	return &Discovery{
		classFilters:  slices.Clone(c.classFilters),
		methodFilters: slices.Clone(c.methodFilters),
		caseOrder:     c.caseOrder,
		lifecycle:     factory,
		parameters:    c.parameters,
	}
}

// Discovery is the frozen, ready-to-query form of a Convention.
type Discovery struct {
	classFilters  []ClassPredicate
	methodFilters []MethodPredicate
	caseOrder     CaseComparator
	lifecycle     lifecycle.Factory
	parameters    ParameterSource
}

// ClassFilters returns the class predicates in registration order.
func (d *Discovery) ClassFilters() []ClassPredicate {
	return slices.Clone(d.classFilters)
}

// MethodFilters returns the method predicates in registration order.
func (d *Discovery) MethodFilters() []MethodPredicate {
	return slices.Clone(d.methodFilters)
}

// CaseOrder returns the case comparator, or nil for declaration order.
func (d *Discovery) CaseOrder() CaseComparator {
	return d.caseOrder
}

// NewLifecycle creates the lifecycle for one class run.
func (d *Discovery) NewLifecycle() lifecycle.Lifecycle {
	return d.lifecycle()
}

// Parameters returns the argument lists for m. Without a parameter source, or
// when the source yields nothing, a single empty list is returned so the
// operation still runs once.
func (d *Discovery) Parameters(m *metadata.Method) [][]any {
	if d.parameters == nil {
		return [][]any{nil}
	}
	sets := d.parameters(m)
	if len(sets) == 0 {
		return [][]any{nil}
	}
	return sets
}
