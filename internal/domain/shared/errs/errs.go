// Package errs holds the error kinds every layer classifies failures by.
// Package-level errors wrap exactly one kind:
//
//	var ErrSelfSwap = fmt.Errorf("%w: swap: requester and receiver must differ", errs.ErrValidation)
//
// and callers test the kind with errors.Is.
package errs

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state transition")
	ErrConflict        = errors.New("concurrent update")
	ErrUnauthenticated = errors.New("authentication required")
)

// Kind returns the first kind err wraps, or nil for unclassified errors.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrForbidden, ErrNotFound, ErrInvalidState, ErrConflict, ErrUnauthenticated} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
