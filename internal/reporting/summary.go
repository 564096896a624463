package reporting

import "fmt"

// Failure describes one failed case in a summary
type Failure struct {
	Test    string `json:"test"`
	Name    string `json:"name"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ExecutionSummary aggregates case outcomes for a class or for a whole run.
// The zero value is an empty summary.
type ExecutionSummary struct {
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"`
	Failures []Failure `json:"failures,omitempty"`
}

// Total returns the number of recorded cases.
func (s ExecutionSummary) Total() int {
	return s.Passed + s.Failed + s.Skipped
}

// Add counts one case outcome.
func (s *ExecutionSummary) Add(event CaseCompleted) {
	switch e := event.(type) {
	case *CasePassed:
		s.Passed++
	case *CaseSkipped:
		s.Skipped++
	case *CaseFailed:
		s.Failed++
		s.Failures = append(s.Failures, Failure{
			Test:    e.Test.Name(),
			Name:    e.Name,
			Message: e.Message(),
			Details: e.FailureText(),
		})
	}
}

// Merge folds another summary into s.
func (s *ExecutionSummary) Merge(other ExecutionSummary) {
	s.Passed += other.Passed
	s.Failed += other.Failed
	s.Skipped += other.Skipped
	s.Failures = append(s.Failures, other.Failures...)
}

// SuccessRate returns the passed share of non-skipped cases as a percentage.
func (s ExecutionSummary) SuccessRate() float64 {
	executed := s.Passed + s.Failed
	if executed == 0 {
		return 0
	}
	return float64(s.Passed) / float64(executed) * 100
}

// String implements fmt.Stringer.
func (s ExecutionSummary) String() string {
	return fmt.Sprintf("%d total, %d passed, %d failed, %d skipped", s.Total(), s.Passed, s.Failed, s.Skipped)
}
