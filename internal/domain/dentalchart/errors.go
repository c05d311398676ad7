package dentalchart

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad caller input: tooth numbers, surface names,
	// root positions or document shape.
	ErrValidation = errors.New("validation error")

	// ErrInvalidToothNumber is returned for a tooth outside its dentition.
	ErrInvalidToothNumber = fmt.Errorf("%w: invalid tooth number", ErrValidation)

	// ErrMalformedDocument is returned when a persisted chart document
	// cannot be loaded.
	ErrMalformedDocument = fmt.Errorf("%w: malformed chart document", ErrValidation)

	// ErrNotFound means no chart exists for the requested patient/dentition.
	ErrNotFound = errors.New("dental chart not found")

	// ErrConditionNotFound is returned by catalog lookups on an unknown key.
	ErrConditionNotFound = errors.New("condition not found")

	// ErrTransport wraps storage and network failures. Callers may retry.
	ErrTransport = errors.New("transport error")
)

func invalidTooth(tooth int, isChild bool) error {
	return fmt.Errorf("%w: %d (%s dentition, valid 1-%d)", ErrInvalidToothNumber, tooth, DentitionFor(isChild), maxTooth(isChild))
}

func transportErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
}

// ErrConflict is returned by repositories when a patient already has a
// chart for the dentition being created.
var ErrConflict = errors.New("dental chart already exists")
