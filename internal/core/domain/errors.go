package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindConflict          ErrorKind = "conflict"
	KindNotFound          ErrorKind = "not_found"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindStorage           ErrorKind = "storage"
)

var (
	ErrValidation        = errors.New("invalid input")
	ErrConflict          = errors.New("product already exists")
	ErrNotFound          = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPersistence       = errors.New("snapshot not persisted")
)

// PersistError reports a failed snapshot write. The in-memory change that
// triggered the write has already been applied.
type PersistError struct {
	Collection string
	Err        error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Collection, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

func (e *PersistError) Is(target error) bool { return target == ErrPersistence }

// KindOf classifies err. Unknown errors are storage faults.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	default:
		return KindStorage
	}
}
