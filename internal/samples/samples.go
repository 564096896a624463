// Package samples is a small module of test classes together with the custom
// convention that runs them. The binary runs it when no other module is set.
package samples

import (
	"errors"
	"fmt"

	"conventest/internal/convention"
	"conventest/internal/lifecycle"
	"conventest/internal/metadata"
)

const (
	// Namespace holds every sample class.
	Namespace = "Samples"
	// InputTag carries one argument list for a parameterized case.
	InputTag = "Input"
	// SetUpMethod runs before every case of a sample class.
	SetUpMethod = "SetUp"
)

func expectEqual(expected, actual int) error {
	if expected != actual {
		return fmt.Errorf("expected %d, got %d", expected, actual)
	}
	return nil
}

// CalculatorTests exercises Calculator with a fresh instance per case.
type CalculatorTests struct {
	calc *Calculator
}

func (t *CalculatorTests) SetUp() {
	t.calc = &Calculator{}
}

func (t *CalculatorTests) ShouldAdd() error {
	t.calc.Add(2)
	t.calc.Add(3)
	return expectEqual(5, t.calc.Total())
}

func (t *CalculatorTests) ShouldSubtract() error {
	t.calc.Subtract(4)
	return expectEqual(-4, t.calc.Total())
}

func (t *CalculatorTests) ShouldRejectDivisionByZero() error {
	if _, err := t.calc.Divide(1, 0); !errors.Is(err, ErrDivideByZero) {
		return fmt.Errorf("expected %v, got %v", ErrDivideByZero, err)
	}
	return nil
}

func (t *CalculatorTests) ShouldStartEmpty() error {
	fmt.Println("calculator total:", t.calc.Total())
	return expectEqual(0, t.calc.Total())
}

// Close runs after every case.
func (t *CalculatorTests) Close() error {
	t.calc = nil
	return nil
}

// ParameterizedTests receives its arguments from Input tags.
type ParameterizedTests struct {
	calc *Calculator
}

func (t *ParameterizedTests) SetUp() {
	t.calc = &Calculator{}
}

func (t *ParameterizedTests) Divide(a, b, expected int) error {
	quotient, err := t.calc.Divide(a, b)
	if err != nil {
		return err
	}
	return expectEqual(expected, quotient)
}

// Helper is not a test class: its name does not end with "Tests".
type Helper struct{}

func (*Helper) Assist() error { return nil }

func input(args ...any) metadata.Tag {
	return metadata.Tag{Kind: InputTag, Value: args}
}

// Module returns the sample module.
func Module() *metadata.Module {
	parameterized := metadata.Reflect[ParameterizedTests](Namespace)
	if divide, ok := parameterized.Method("Divide"); ok {
		divide.WithTags(input(6, 3, 2), input(9, 3, 3), input(7, 2, 3))
	}

	return metadata.NewModule("conventest.Samples",
		metadata.Reflect[CalculatorTests](Namespace),
		parameterized,
		metadata.Reflect[Helper](Namespace),
	)
}

// Convention selects the sample classes, skips SetUp as a case, runs SetUp
// before each case and orders cases by name.
func Convention() *convention.Convention {
	return convention.New().
		AddClassFilter(convention.InNamespace(Namespace)).
		AddClassFilter(convention.NameEndsWith(convention.DefaultClassSuffix)).
		AddMethodFilter(convention.MethodNameNot(SetUpMethod)).
		SetCaseOrder(convention.ByName).
		SetLifecycle(func() lifecycle.Lifecycle { return lifecycle.SetUp{Method: SetUpMethod} }).
		SetParameterSource(convention.TagParameters(InputTag))
}
