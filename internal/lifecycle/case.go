package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"conventest/internal/metadata"
)

// ErrCaseConcluded is returned when the status of a case is set a second time.
var ErrCaseConcluded = errors.New("case status already concluded")

// Test identifies one test operation by class full name and operation name.
type Test struct {
	Class  string
	Method string
}

// NewTest identifies an operation of a test class.
func NewTest(class *metadata.Type, method *metadata.Method) Test {
	return Test{Class: class.FullName(), Method: method.Name}
}

// ParseTest parses the "Class.Method" form. The operation name is everything
// after the last dot.
func ParseTest(s string) (Test, error) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return Test{}, fmt.Errorf("invalid test name %q: expected Class.Method", s)
	}
	return Test{Class: s[:i], Method: s[i+1:]}, nil
}

// Name returns the "Class.Method" form.
func (t Test) Name() string {
	return t.Class + "." + t.Method
}

// String implements fmt.Stringer.
func (t Test) String() string {
	return t.Name()
}

// Status is the outcome of a case.
type Status int

const (
	NotRun Status = iota
	Skipped
	Passed
	Failed
)

// String returns the display name of the status.
func (s Status) String() string {
	switch s {
	case NotRun:
		return "NotRun"
	case Skipped:
		return "Skipped"
	case Passed:
		return "Passed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Case is one invocation of a test operation with a specific argument list.
type Case struct {
	Test   Test
	Method *metadata.Method
	Args   []any

	// Output holds text the case wrote to standard output while it ran.
	Output   string
	Duration time.Duration

	status     Status
	concluded  bool
	executed   bool
	skipped    bool
	skipReason string
	fault      error
	secondary  *multierror.Error
}

// NewCase creates a case that has not run yet.
func NewCase(test Test, method *metadata.Method, args ...any) *Case {
	return &Case{Test: test, Method: method, Args: args}
}

// Name returns the test name, followed by the arguments when there are any.
func (c *Case) Name() string {
	if len(c.Args) == 0 {
		return c.Test.Name()
	}
	formatted := make([]string, len(c.Args))
	for i, arg := range c.Args {
		if s, ok := arg.(string); ok {
			formatted[i] = fmt.Sprintf("%q", s)
			continue
		}
		formatted[i] = fmt.Sprintf("%v", arg)
	}
	return c.Test.Name() + "(" + strings.Join(formatted, ", ") + ")"
}

// Execute invokes the case operation against instance and records a fault if it raises one.
func (c *Case) Execute(instance any) {
	c.executed = true
	if err := c.Method.Invoke(instance, c.Args); err != nil {
		c.Fail(err)
	}
}

// Fail records a fault. The first fault is primary; later ones are kept as secondary.
func (c *Case) Fail(err error) {
	if err == nil || c.concluded {
		return
	}
	if c.fault == nil {
		c.fault = err
		return
	}
	c.secondary = multierror.Append(c.secondary, err)
}

// Skip marks the case as deliberately not run.
func (c *Case) Skip(reason string) {
	if c.concluded {
		return
	}
	c.skipped = true
	c.skipReason = reason
}

// Conclude moves the case from NotRun to its terminal status. Calling it again
// returns ErrCaseConcluded and leaves the status unchanged.
func (c *Case) Conclude() (Status, error) {
	if c.concluded {
		return c.status, ErrCaseConcluded
	}
	c.concluded = true

	switch {
	case c.fault != nil:
		c.status = Failed
	case c.skipped:
		c.status = Skipped
	case c.executed:
		c.status = Passed
	default:
		c.status = Skipped
	}
	return c.status, nil
}

// Status returns the current status. It is NotRun until Conclude is called.
func (c *Case) Status() Status {
	return c.status
}

// Executed reports whether the case operation was invoked.
func (c *Case) Executed() bool {
	return c.executed
}

// SkipReason returns the reason given to Skip.
func (c *Case) SkipReason() string {
	return c.skipReason
}

// Fault returns the primary fault as recorded, or nil.
func (c *Case) Fault() error {
	return c.fault
}

// Exception returns the primary fault with any invocation wrapper removed.
func (c *Case) Exception() *PreservedError {
	return Preserve(c.fault)
}

// SecondaryFaults returns faults recorded after the primary one, such as disposal failures.
func (c *Case) SecondaryFaults() []error {
	if c.secondary == nil {
		return nil
	}
	return c.secondary.WrappedErrors()
}
