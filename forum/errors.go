package forum

import (
	"errors"
	"fmt"
)

// Error categories. Workflows translate guard/visibility decision values
// into these; storage-owning operations (reports, moderation queue) return
// them directly. RateLimited and UpstreamWrite are retryable; Conflict and
// Forbidden are terminal for the request and must not be retried with the
// same input.
var (
	ErrValidation    = errors.New("invalid request")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrRateLimited   = errors.New("rate limited")
	ErrUpstreamWrite = errors.New("upstream write failed")
)

// Specific failures, each wrapping its category so callers can match either
// the precise condition or the class with errors.Is.
var (
	ErrDuplicateReport  = fmt.Errorf("%w: pending report already filed for this target", ErrConflict)
	ErrSelfReport       = fmt.Errorf("%w: cannot report own content", ErrValidation)
	ErrTargetNotFound   = fmt.Errorf("%w: report target", ErrNotFound)
	ErrAlreadyResolved  = fmt.Errorf("%w: report already resolved", ErrConflict)
	ErrNotResolved      = fmt.Errorf("%w: report is not resolved", ErrConflict)
	ErrNotDismissed     = fmt.Errorf("%w: report was not dismissed", ErrConflict)
	ErrAlreadyAppealed  = fmt.Errorf("%w: report already appealed", ErrConflict)
	ErrNotReporter      = fmt.Errorf("%w: only the original reporter may appeal", ErrForbidden)
	ErrAlreadyModerated = fmt.Errorf("%w: content is not awaiting review", ErrConflict)
	ErrAlreadyRemoved   = fmt.Errorf("%w: content already removed", ErrConflict)
)

// IsRetryable reports whether the caller should communicate the failure as
// retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamWrite)
}
