package highlight

import "time"

const (
	// DefaultMaxSteps bounds matcher invocations per segmentation call.
	DefaultMaxSteps = 50000
	// DefaultMaxDuration bounds wall-clock time per segmentation call.
	DefaultMaxDuration = 250 * time.Millisecond
)

// Budget caps the work of one segmentation call. A step is one matcher
// invocation. Zero disables the corresponding limit.
type Budget struct {
	MaxSteps    int           `json:"max_steps"`
	MaxDuration time.Duration `json:"max_duration"`
}

// DefaultBudget returns the limits used when none are configured.
func DefaultBudget() Budget {
	return Budget{
		MaxSteps:    DefaultMaxSteps,
		MaxDuration: DefaultMaxDuration,
	}
}

// meter tracks consumption of a Budget for a single call.
type meter struct {
	budget Budget
	steps  int
	start  time.Time
	now    func() time.Time
}

func newMeter(budget Budget, now func() time.Time) *meter {
	return &meter{budget: budget, start: now(), now: now}
}

// step records one matcher invocation and fails once the budget is spent.
func (m *meter) step() error {
	m.steps++
	if m.budget.MaxSteps > 0 && m.steps > m.budget.MaxSteps {
		return m.exceeded()
	}
	if m.budget.MaxDuration > 0 && m.now().Sub(m.start) > m.budget.MaxDuration {
		return m.exceeded()
	}
	return nil
}

func (m *meter) exceeded() error {
	return &BudgetExceededError{
		Steps:   m.steps,
		Elapsed: m.now().Sub(m.start),
		Budget:  m.budget,
	}
}
