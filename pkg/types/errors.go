package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidPrecondition = errors.New("invalid precondition")
	ErrConflict            = fmt.Errorf("%w: modified concurrently", ErrInvalidPrecondition)
	ErrStoreFailure        = errors.New("store failure")
	ErrUnknownStatus       = errors.New("unknown donation status")
	ErrCorruptDocument     = errors.New("corrupt document")
)

// Kind names the error category a caller can branch on.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidPrecondition):
		return "invalid_precondition"
	case errors.Is(err, ErrUnknownStatus), errors.Is(err, ErrCorruptDocument):
		return "corrupt_document"
	default:
		return "store_failure"
	}
}
