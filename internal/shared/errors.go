package shared

import "errors"

var (
	// ErrNotFound indicates the referenced role or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the mutation is blocked by dependents or a duplicate.
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates a failed permission check or delegation boundary violation.
	ErrForbidden = errors.New("forbidden")
	// ErrCircularDependency indicates a reparent that would create a cycle.
	ErrCircularDependency = errors.New("circular dependency detected")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage returns a message suitable for end users. Taxonomy
// errors pass through, anything else collapses to a generic message.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrCircularDependency),
		errors.Is(err, ErrInvalidCredentials):
		return err.Error()
	default:
		return "something went wrong, please try again"
	}
}
