// Package utils contains helpers shared by the calibration packages.
package utils

import (
	"github.com/pkg/errors"
)

var (
	// ErrShapeMismatch is returned when a parameter vector or table does not have the width a node expects.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrIndexOutOfRange is returned when an entry outside of a table is requested.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// NewShapeMismatchError is used when a vector of the wrong length is supplied.
func NewShapeMismatchError(what string, expected, actual int) error {
	return errors.Wrapf(ErrShapeMismatch, "%s: expected length %d but got %d", what, expected, actual)
}

// NewIndexOutOfRangeError is used when an index falls outside of [0, size).
func NewIndexOutOfRangeError(index, size int) error {
	return errors.Wrapf(ErrIndexOutOfRange, "index %d not in [0, %d)", index, size)
}

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError(expected interface{}, actual interface{}) error {
	return errors.Errorf("expected %T but got %T", expected, actual)
}
