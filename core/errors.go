package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrConcurrentModification = errors.New("record was modified by another request, reload and try again")
	ErrDependentRecordsExist  = errors.New("dependent records exist")
	ErrPersistenceFailure     = errors.New("persistence failure")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// DependentRecordsError blocks the deletion of a record that other records still reference.
type DependentRecordsError struct {
	Entity    string // e.g. "course"
	Dependent string // e.g. "enrollments"
	Count     int
}

func NewDependentRecordsError(entity, dependent string, count int) error {
	return &DependentRecordsError{Entity: entity, Dependent: dependent, Count: count}
}

func (err *DependentRecordsError) Error() string {
	return fmt.Sprintf("%s cannot be deleted: %d %s still reference it", err.Entity, err.Count, err.Dependent)
}

func (err *DependentRecordsError) Is(target error) bool {
	return target == ErrDependentRecordsExist
}

// PersistenceError reports a storage failure the caller could not have prevented
// (lost connection, unexpected constraint violation, failed commit).
// The enclosing unit of work has been rolled back when it surfaces.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

func (err *PersistenceError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err *PersistenceError) Unwrap() error { return err.Err }

func (err *PersistenceError) Is(target error) bool {
	return target == ErrPersistenceFailure
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
