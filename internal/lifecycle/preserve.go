package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
)

// PreservedError exposes the original fault raised by an operation together with
// the stack captured where it was raised. The invocation wrapper that carried it
// is dropped.
type PreservedError struct {
	Original error
	frames   []goerrors.StackFrame
}

// stackTracer is implemented by faults that carry the stack they were raised with.
type stackTracer interface {
	StackFrames() []goerrors.StackFrame
}

// Preserve strips stack-capturing wrappers from err and keeps their frames.
// It returns nil for a nil error.
func Preserve(err error) *PreservedError {
	if err == nil {
		return nil
	}

	var frames []goerrors.StackFrame
	original := err
	for {
		stacked, ok := original.(*goerrors.Error)
		if !ok {
			break
		}
		if frames == nil {
			frames = stacked.StackFrames()
		}
		original = stacked.Err
	}

	if frames == nil {
		var nested stackTracer
		if errors.As(original, &nested) {
			frames = nested.StackFrames()
		}
	}

	return &PreservedError{Original: original, frames: frames}
}

// Error returns the message of the original fault.
func (p *PreservedError) Error() string {
	return p.Original.Error()
}

// Unwrap returns the original fault.
func (p *PreservedError) Unwrap() error {
	return p.Original
}

// TypeName returns the Go type of the original fault, e.g. "*errors.errorString".
func (p *PreservedError) TypeName() string {
	return fmt.Sprintf("%T", p.Original)
}

// Frames returns the captured stack frames, innermost first.
func (p *PreservedError) Frames() []goerrors.StackFrame {
	return p.frames
}

// Stack renders the captured frames as readable text, one "at" line per frame.
// Runtime frames from the panic machinery are omitted.
func (p *PreservedError) Stack() string {
	var b strings.Builder
	for _, frame := range p.frames {
		if frame.Package == "runtime" {
			continue
		}
		fmt.Fprintf(&b, "   at %s.%s in %s:%d\n", frame.Package, frame.Name, frame.File, frame.LineNumber)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FailureText renders a fault for display: the type name, the message, the
// stack and any secondary faults.
func FailureText(primary *PreservedError, secondary []error) string {
	if primary == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(primary.TypeName())
	b.WriteString(": ")
	b.WriteString(primary.Error())
	if stack := primary.Stack(); stack != "" {
		b.WriteString("\n")
		b.WriteString(stack)
	}
	b.WriteString(SecondaryText(secondary))
	return b.String()
}

// SecondaryText renders faults raised after the primary one, each preceded by a blank line.
func SecondaryText(secondary []error) string {
	var b strings.Builder
	for _, err := range secondary {
		p := Preserve(err)
		fmt.Fprintf(&b, "\n\nSecondary fault (%s): %s", p.TypeName(), p.Error())
	}
	return b.String()
}
