package highlight

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrBudgetExceeded is matched by errors.Is for every *BudgetExceededError.
var ErrBudgetExceeded = errors.New("segmentation budget exceeded")

// ConfigError reports a registry or legend that must not be used.
// IDs lists the offending category identifiers in the order they were found.
type ConfigError struct {
	IDs     []string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	var sb strings.Builder
	sb.WriteString("config error: ")
	sb.WriteString(e.Message)
	if len(e.IDs) > 0 {
		sb.WriteString(" [categories: ")
		sb.WriteString(strings.Join(e.IDs, ", "))
		sb.WriteString("]")
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// BudgetExceededError is returned when a segmentation call runs out of
// matcher invocations or wall-clock time.
type BudgetExceededError struct {
	Steps   int
	Elapsed time.Duration
	Budget  Budget
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("segmentation budget exceeded after %d steps in %v (max_steps=%d, max_duration=%v)",
		e.Steps, e.Elapsed, e.Budget.MaxSteps, e.Budget.MaxDuration)
}

func (e *BudgetExceededError) Unwrap() error {
	return ErrBudgetExceeded
}
