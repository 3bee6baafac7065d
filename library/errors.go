package library

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the conditions a caller is expected to distinguish.
// Anything else that bubbles up from the store is a persistence failure and
// is wrapped with context instead.
var (
	// ErrValidation is returned when a required field is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a lookup by key matches nothing.
	ErrNotFound = errors.New("requested record not found")

	// ErrUnavailable is returned when a book is already checked out.
	ErrUnavailable = errors.New("book is not available")

	// ErrLimitReached is returned when a client is at the open-loan limit.
	ErrLimitReached = errors.New("loan limit reached")

	// ErrAccessDenied is returned on a credential mismatch or when a client
	// acts on a loan that is not theirs.
	ErrAccessDenied = errors.New("access denied")

	// ErrDuplicate is returned when an insert violates a unique constraint
	// (duplicate ISBN or email).
	ErrDuplicate = errors.New("record already exists")
)

// LimitError reports a rejected checkout with the client's current open-loan
// count and the configured limit.
type LimitError struct {
	Count int
	Max   int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("you already have %d outstanding loans (max %d)", e.Count, e.Max)
}

func (e *LimitError) Unwrap() error { return ErrLimitReached }

// mapConstraintErr translates a unique-constraint violation into
// ErrDuplicate and passes everything else through.
func mapConstraintErr(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
