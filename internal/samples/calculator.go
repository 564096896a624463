package samples

import "errors"

// ErrDivideByZero is returned by Calculator.Divide.
var ErrDivideByZero = errors.New("division by zero")

// Calculator is the system under test of the sample classes.
type Calculator struct {
	total int
}

// Add adds n to the running total.
func (c *Calculator) Add(n int) { c.total += n }

// Subtract subtracts n from the running total.
func (c *Calculator) Subtract(n int) { c.total -= n }

// Total returns the running total.
func (c *Calculator) Total() int { return c.total }

// Divide returns a / b.
func (c *Calculator) Divide(a, b int) (int, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return a / b, nil
}
