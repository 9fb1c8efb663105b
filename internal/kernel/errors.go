package kernel

import (
	"errors"
	"fmt"
	"strings"
)

// Fatal error classes. Every mutating kernel call either returns a fully
// annotated record or fails with one of these; no partial state is written.
var (
	ErrNotFound         = errors.New("not found")
	ErrPolicyViolation  = errors.New("policy violation")
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// PolicyViolationError carries the messages of the rules that failed so
// callers can surface them without parsing the error string.
type PolicyViolationError struct {
	Reason     string
	Violations []string
}

func (e *PolicyViolationError) Error() string {
	if len(e.Violations) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Violations, "; "))
}

func (e *PolicyViolationError) Is(target error) bool {
	return target == ErrPolicyViolation
}

func NewPolicyViolation(reason string, violations ...string) error {
	return &PolicyViolationError{Reason: reason, Violations: violations}
}
