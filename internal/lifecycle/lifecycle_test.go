package lifecycle

import (
	"errors"
	"strings"
	"testing"

	goerrors "github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conventest/internal/metadata"
)

var journal []string

type journaled struct {
	id          int
	disposeErr  error
	setUpFailed bool
}

var instances int

func (j *journaled) SetUp() error {
	journal = append(journal, "SetUp")
	if j.setUpFailed {
		return errors.New("set up failed")
	}
	return nil
}

func (j *journaled) Pass() {
	journal = append(journal, "Pass")
}

func (j *journaled) Fail() error {
	journal = append(journal, "Fail")
	return errors.New("case failed")
}

func (j *journaled) Dispose() error {
	journal = append(journal, "Dispose")
	return j.disposeErr
}

func journaledType(configure func(*journaled)) *metadata.Type {
	journal = nil
	instances = 0
	typ := metadata.Reflect[journaled]("Lifecycle")
	typ.Constructor = func() (any, error) {
		instances++
		journal = append(journal, "new")
		j := &journaled{id: instances}
		if configure != nil {
			configure(j)
		}
		return j, nil
	}
	return typ
}

func casesFor(t *testing.T, typ *metadata.Type, names ...string) []*Case {
	var cases []*Case
	for _, name := range names {
		m, ok := typ.Method(name)
		require.True(t, ok, name)
		cases = append(cases, NewCase(NewTest(typ, m), m))
	}
	return cases
}

func runEach(cases []*Case) func(CaseAction) {
	return func(action CaseAction) {
		for _, c := range cases {
			action(c)
		}
	}
}

func conclude(t *testing.T, cases []*Case) []Status {
	statuses := make([]Status, len(cases))
	for i, c := range cases {
		status, err := c.Conclude()
		require.NoError(t, err)
		statuses[i] = status
	}
	return statuses
}

func TestCase_ConcludeOnce(t *testing.T) {
	m := metadata.Action("Op", func(any) error { return nil })
	c := NewCase(Test{Class: "C", Method: "Op"}, m)
	assert.Equal(t, NotRun, c.Status())

	c.Execute(nil)
	status, err := c.Conclude()
	require.NoError(t, err)
	assert.Equal(t, Passed, status)

	c.Fail(errors.New("too late"))
	status, err = c.Conclude()
	assert.ErrorIs(t, err, ErrCaseConcluded)
	assert.Equal(t, Passed, status)
	assert.Nil(t, c.Fault())
}

func TestCase_Outcomes(t *testing.T) {
	ok := metadata.Action("Op", func(any) error { return nil })
	failing := metadata.Action("Op", func(any) error { return errors.New("bad") })

	tests := []struct {
		name   string
		act    func(c *Case)
		method *metadata.Method
		want   Status
	}{
		{"executed", func(c *Case) { c.Execute(nil) }, ok, Passed},
		{"faulted", func(c *Case) { c.Execute(nil) }, failing, Failed},
		{"skipped", func(c *Case) { c.Skip("later") }, ok, Skipped},
		{"never executed", func(c *Case) {}, ok, Skipped},
		{"fault beats skip", func(c *Case) { c.Skip("x"); c.Fail(errors.New("bad")) }, ok, Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCase(Test{Class: "C", Method: "Op"}, tt.method)
			tt.act(c)
			status, err := c.Conclude()
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestCase_Name(t *testing.T) {
	test := Test{Class: "Sample.MathTests", Method: "Add"}
	assert.Equal(t, "Sample.MathTests.Add", NewCase(test, nil).Name())
	assert.Equal(t, `Sample.MathTests.Add(1, "two", true)`, NewCase(test, nil, 1, "two", true).Name())
}

func TestParseTest(t *testing.T) {
	test, err := ParseTest("Sample.Tests.MathTests.Add")
	require.NoError(t, err)
	assert.Equal(t, Test{Class: "Sample.Tests.MathTests", Method: "Add"}, test)

	for _, bad := range []string{"", "NoDot", ".Method", "Class."} {
		_, err := ParseTest(bad)
		assert.Error(t, err, bad)
	}
}

func TestPerCase(t *testing.T) {
	typ := journaledType(nil)
	cases := casesFor(t, typ, "Pass", "Fail")

	require.NoError(t, PerCase{}.Execute(typ, runEach(cases)))

	assert.Equal(t, []string{"new", "Pass", "Dispose", "new", "Fail", "Dispose"}, journal)
	assert.Equal(t, []Status{Passed, Failed}, conclude(t, cases))
	assert.EqualError(t, cases[1].Exception(), "case failed")
}

func TestPerCase_DisposalFaults(t *testing.T) {
	typ := journaledType(func(j *journaled) { j.disposeErr = errors.New("dispose failed") })
	cases := casesFor(t, typ, "Pass", "Fail")

	require.NoError(t, PerCase{}.Execute(typ, runEach(cases)))
	assert.Equal(t, []Status{Failed, Failed}, conclude(t, cases))

	// The disposal fault fails a passing case.
	assert.EqualError(t, cases[0].Exception(), "dispose failed")
	assert.Empty(t, cases[0].SecondaryFaults())

	// The case fault stays primary when the case already failed.
	assert.EqualError(t, cases[1].Exception(), "case failed")
	require.Len(t, cases[1].SecondaryFaults(), 1)
	assert.EqualError(t, cases[1].SecondaryFaults()[0], "dispose failed")
}

func TestPerCase_Construction(t *testing.T) {
	t.Run("no constructor", func(t *testing.T) {
		typ := journaledType(nil)
		typ.Constructor = nil

		called := false
		err := PerCase{}.Execute(typ, func(CaseAction) { called = true })

		var construction *ConstructionError
		require.ErrorAs(t, err, &construction)
		assert.Equal(t, "Lifecycle.journaled", construction.Type)
		assert.False(t, called)
	})

	t.Run("constructor fails", func(t *testing.T) {
		typ := journaledType(nil)
		typ.Constructor = func() (any, error) { return nil, errors.New("cannot build") }
		cases := casesFor(t, typ, "Pass")

		require.NoError(t, PerCase{}.Execute(typ, runEach(cases)))
		assert.Equal(t, []Status{Failed}, conclude(t, cases))

		var construction *ConstructionError
		require.ErrorAs(t, cases[0].Fault(), &construction)
		assert.EqualError(t, construction.Err, "cannot build")
		assert.Empty(t, journal)
	})
}

func TestPerClass(t *testing.T) {
	typ := journaledType(nil)
	cases := casesFor(t, typ, "Pass", "Fail", "Pass")

	require.NoError(t, PerClass{}.Execute(typ, runEach(cases)))
	assert.Equal(t, []string{"new", "Pass", "Fail", "Pass", "Dispose"}, journal)
	assert.Equal(t, 1, instances)
	assert.Equal(t, []Status{Passed, Failed, Passed}, conclude(t, cases))
}

func TestPerClass_ConstructionFailure(t *testing.T) {
	typ := journaledType(nil)
	typ.Constructor = func() (any, error) { panic("constructor panicked") }

	err := PerClass{}.Execute(typ, func(CaseAction) { t.Fatal("cases must not run") })
	var construction *ConstructionError
	require.ErrorAs(t, err, &construction)
	assert.EqualError(t, construction.Err, "constructor panicked")
}

func TestSetUp(t *testing.T) {
	typ := journaledType(nil)
	cases := casesFor(t, typ, "Pass", "Fail")

	require.NoError(t, SetUp{Method: "SetUp"}.Execute(typ, runEach(cases)))
	assert.Equal(t, []string{
		"new", "SetUp", "Pass", "Dispose",
		"new", "SetUp", "Fail", "Dispose",
	}, journal)
	assert.Equal(t, []Status{Passed, Failed}, conclude(t, cases))
}

func TestSetUp_Failure(t *testing.T) {
	typ := journaledType(func(j *journaled) { j.setUpFailed = true })
	cases := casesFor(t, typ, "Pass")

	require.NoError(t, SetUp{Method: "SetUp"}.Execute(typ, runEach(cases)))
	assert.Equal(t, []string{"new", "SetUp", "Dispose"}, journal)
	assert.Equal(t, []Status{Failed}, conclude(t, cases))
	assert.False(t, cases[0].Executed())
	assert.EqualError(t, cases[0].Exception(), "set up failed")
}

type customFault struct{ code int }

func (f *customFault) Error() string { return "custom fault" }

func TestPreserve(t *testing.T) {
	assert.Nil(t, Preserve(nil))

	original := &customFault{code: 42}
	preserved := Preserve(goerrors.Wrap(original, 0))

	assert.Same(t, original, preserved.Original)
	assert.Equal(t, "*lifecycle.customFault", preserved.TypeName())
	assert.NotEmpty(t, preserved.Frames())
	assert.Contains(t, preserved.Stack(), "TestPreserve")

	var fault *customFault
	require.ErrorAs(t, preserved, &fault)
	assert.Equal(t, 42, fault.code)

	plain := Preserve(errors.New("plain"))
	assert.Empty(t, plain.Frames())
	assert.Empty(t, plain.Stack())
}

func TestPreserve_PanicInOperation(t *testing.T) {
	m := metadata.Action("Explodes", func(any) error { panic(&customFault{code: 7}) })
	c := NewCase(Test{Class: "C", Method: "Explodes"}, m)
	c.Execute(nil)

	preserved := c.Exception()
	var fault *customFault
	require.ErrorAs(t, preserved, &fault)
	assert.Same(t, fault, preserved.Original)
	assert.NotEmpty(t, preserved.Frames())
}

func TestFailureText(t *testing.T) {
	assert.Empty(t, FailureText(nil, nil))

	text := FailureText(Preserve(errors.New("primary")), []error{errors.New("dispose failed")})
	lines := strings.Split(text, "\n")
	assert.Equal(t, "*errors.errorString: primary", lines[0])
	assert.Contains(t, text, "Secondary fault (*errors.errorString): dispose failed")
}
