package requires

import "fmt"

// RequirementError reports the first requirement a record violates.
type RequirementError struct {
	// Field is the record field whose requirements were being checked.
	Field string
	// DependencyName is the field found missing or failing its constraint.
	DependencyName string
	// DependencyValue is the dependency's value in the record, or nil when
	// it is absent.
	DependencyValue any
	Message         string
	// Cause is set when the constraint could not be evaluated at all.
	Cause error
}

func (e *RequirementError) Error() string {
	return e.Message
}

func (e *RequirementError) Unwrap() error {
	return e.Cause
}

func missingError(field, dependency, message string) *RequirementError {
	if message == "" {
		message = fmt.Sprintf("%s requires '%s' to be present", field, dependency)
	}
	return &RequirementError{
		Field:          field,
		DependencyName: dependency,
		Message:        message,
	}
}

// ConstructionError is returned when a declaration cannot be turned into a
// graph, e.g. a guard referencing two fields.
type ConstructionError struct {
	Trigger string
	Msg     string
}

func (e *ConstructionError) Error() string {
	if e.Trigger == "" {
		return e.Msg
	}
	return fmt.Sprintf("requirement on %s: %s", e.Trigger, e.Msg)
}
