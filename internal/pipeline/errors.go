package pipeline

import "fmt"

// StepError ties a failure to the step that raised it.
type StepError struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *StepError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("step %s: %s: %v", e.Step, e.Message, e.Cause)
	}
	return fmt.Sprintf("step %s: %s", e.Step, e.Message)
}

// Unwrap returns the underlying error
func (e *StepError) Unwrap() error {
	return e.Cause
}

// NewStepError creates a step execution error
func NewStepError(step, message string, cause error) *StepError {
	return &StepError{Step: step, Message: message, Cause: cause}
}

// NewValidationError creates a step precondition error
func NewValidationError(step, message string) *StepError {
	return &StepError{Step: step, Message: message}
}
