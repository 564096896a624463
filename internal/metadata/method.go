package metadata

import (
	"fmt"
	"reflect"
	"runtime"

	goerrors "github.com/go-errors/errors"
)

// Visibility of an operation.
type Visibility int

const (
	Public Visibility = iota
	Private
)

// Invoker runs an operation against an instance. Static operations receive a nil instance.
type Invoker func(instance any, args []any) error

// MissingArgumentsMessage is reported when a parameterized operation is invoked without arguments.
const MissingArgumentsMessage = "This test case has declared parameters, but no parameter values have been provided to it."

// Method describes one operation declared by a type.
type Method struct {
	Name       string
	Params     int
	Static     bool
	Visibility Visibility
	// Special marks compiler or tooling generated accessors that are never tests.
	Special bool
	Tags    []Tag
	Func    Invoker

	// source is the program counter of the function whose location represents
	// this operation. Zero falls back to Func.
	source    uintptr
	declaring *Type
	allTags   []Tag
}

// NewMethod describes a public instance operation with the given parameter count.
func NewMethod(name string, params int, fn Invoker) *Method {
	return &Method{Name: name, Params: params, Func: fn}
}

// Action describes a public, parameterless instance operation.
func Action(name string, fn func(instance any) error) *Method {
	m := NewMethod(name, 0, func(instance any, _ []any) error {
		return fn(instance)
	})
	m.source = funcPC(fn)
	return m
}

// WithTags attaches tags to the method and returns it.
func (m *Method) WithTags(tags ...Tag) *Method {
	m.Tags = append(m.Tags, tags...)
	return m
}

// Public reports whether the operation is visible to callers outside its type.
func (m *Method) Public() bool {
	return m.Visibility == Public
}

// DeclaringType returns the type that declares the operation. It is nil until
// the declaring type has been resolved.
func (m *Method) DeclaringType() *Type {
	return m.declaring
}

// Has reports whether the operation carries a tag of the given kind, declared or inherited.
func (m *Method) Has(kind string) bool {
	return hasTag(m.tags(), kind)
}

// Tag returns the single tag of the given kind.
func (m *Method) Tag(kind string) (Tag, bool, error) {
	owner := m.Name
	if m.declaring != nil {
		owner = m.declaring.FullName() + "." + m.Name
	}
	return singleTag(owner, m.tags(), kind)
}

// TagsOf returns every tag of the given kind, declared tags first.
func (m *Method) TagsOf(kind string) []Tag {
	var found []Tag
	for _, tag := range m.tags() {
		if tag.Kind == kind {
			found = append(found, tag)
		}
	}
	return found
}

// IsDisposalHook reports whether the operation is a Dispose or Close hook.
func (m *Method) IsDisposalHook() bool {
	return m.Params == 0 && (m.Name == "Dispose" || m.Name == "Close")
}

// Invoke runs the operation. A panic raised by the operation is recovered and
// returned as an error carrying the stack of the panic.
func (m *Method) Invoke(instance any, args []any) (err error) {
	if m.Func == nil {
		return fmt.Errorf("operation %s has no implementation", m.Name)
	}
	if m.Params > 0 && len(args) == 0 {
		return goerrors.New(MissingArgumentsMessage)
	}
	if len(args) != m.Params {
		return fmt.Errorf("parameter count mismatch for %s: expected %d, got %d", m.Name, m.Params, len(args))
	}

	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return m.Func(instance, args)
}

// Source returns the file and line of the function implementing the operation.
func (m *Method) Source() (file string, line int, ok bool) {
	pc := m.source
	if pc == 0 {
		pc = funcPC(m.Func)
	}
	if pc == 0 {
		return "", 0, false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "", 0, false
	}
	file, line = fn.FileLine(fn.Entry())
	return file, line, file != ""
}

func (m *Method) tags() []Tag {
	if m.declaring != nil {
		m.declaring.resolve()
	}
	if m.allTags == nil {
		return m.Tags
	}
	return m.allTags
}

// funcPC returns the entry program counter of a function value.
func funcPC(fn any) uintptr {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return 0
	}
	return v.Pointer()
}

// recovered converts a recovered panic value into an error with a stack trace.
func recovered(r any) error {
	if err, ok := r.(error); ok {
		return goerrors.Wrap(err, 2)
	}
	return goerrors.Wrap(fmt.Errorf("%v", r), 2)
}
