package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorEmptyList is returned by finalize when the operator has no in-progress lines.
var ErrorEmptyList = errors.New("pick list is empty")

// ValidationError rejects a request before any persistence happens.
// Field names the precondition that failed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DepartmentMismatchError means the operator's list is locked to another
// department. The caller must finalize or clear the list before retrying.
type DepartmentMismatchError struct {
	LockedDepartment    int
	RequestedDepartment int
}

func (e *DepartmentMismatchError) Error() string {
	return fmt.Sprintf("list is locked to department %d, cannot add item from department %d",
		e.LockedDepartment, e.RequestedDepartment)
}

func IsDepartmentMismatch(err error) bool {
	var dm *DepartmentMismatchError
	return errors.As(err, &dm)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
