package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for integration runs.
var (
	// ErrInvalidConfig indicates malformed inputs rejected before any step is taken.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrDiverged indicates a state or derivative became NaN or Inf.
	ErrDiverged = errors.New("dynamo: state diverged (NaN or Inf detected)")

	// ErrStepSizeCollapsed indicates the adaptive step fell below the minimum
	// without meeting the error tolerance.
	ErrStepSizeCollapsed = errors.New("dynamo: adaptive step size collapsed below minimum")

	// ErrStepBudgetExceeded indicates the integrator stalled past its step budget.
	ErrStepBudgetExceeded = errors.New("dynamo: step budget exceeded")

	// ErrCanceled indicates the caller aborted the run.
	ErrCanceled = errors.New("dynamo: integration canceled")
)

// IntegrationError is a failed run. Partial holds the samples produced up
// to the last accepted step; it may be empty.
type IntegrationError struct {
	Kind    error
	Step    int
	Time    float64
	State   State
	Partial *Trajectory
	Cause   error
}

func (e *IntegrationError) Error() string {
	msg := fmt.Sprintf("%v at step %d (t=%.6g)", e.Kind, e.Step, e.Time)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *IntegrationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// PartialTrajectory returns the samples carried by err, if any.
func PartialTrajectory(err error) *Trajectory {
	var ie *IntegrationError
	if errors.As(err, &ie) {
		return ie.Partial
	}
	return nil
}

// Outcome names the terminal state of a run for logs and metadata.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_configuration"
	case errors.Is(err, ErrDiverged):
		return "diverged"
	case errors.Is(err, ErrStepSizeCollapsed):
		return "step_size_collapsed"
	case errors.Is(err, ErrStepBudgetExceeded):
		return "stalled"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	default:
		return "failed"
	}
}
