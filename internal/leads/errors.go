package leads

import "errors"

var (
	// ErrInvalidName is returned when the name is invalid
	ErrInvalidName = errors.New("name is required")

	// ErrMissingEmail is returned when the email is missing
	ErrMissingEmail = errors.New("email is required")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)

// IsValidationError reports whether err is a user-correctable input error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidName) || errors.Is(err, ErrMissingEmail)
}
