package domain

import "errors"

// Start errors. Expected control flow, surfaced to the caller as a message.
var (
	// ErrAlreadyActive rejects a start while any session is open. The engine
	// enforces a single global active session (legacy single-slot behavior).
	ErrAlreadyActive = errors.New("a blocking session is already active")

	// ErrEmptySelection rejects starting a profile that restricts nothing.
	ErrEmptySelection = errors.New("profile has no restricted targets selected")
)

// Gating errors. Returned when a presented token may not end a session.
var (
	ErrWrongToken             = errors.New("this token cannot unlock this profile")
	ErrNotWhitelisted         = errors.New("this token is not in the whitelist")
	ErrMustUseOriginalTrigger = errors.New("you must present the original token to stop focus")
)

// Whitelist validation errors. Rejected synchronously, no state mutated.
var (
	ErrDuplicateToken     = errors.New("this token is already in the whitelist")
	ErrTokenLimitExceeded = errors.New("maximum of 15 whitelist tokens allowed")
	ErrTagNotFound        = errors.New("token not found in whitelist")
	ErrInvalidTokenID     = errors.New("invalid token identifier")
	ErrInvalidName        = errors.New("token name must be 50 characters or less")
)

// ErrInvalidProfileName rejects creating or renaming a profile to a blank name.
var ErrInvalidProfileName = errors.New("profile name must not be empty")

// ErrScheduleTooShort rejects enabled schedules under the minimum duration.
var ErrScheduleTooShort = errors.New("schedule must be at least 1 hour long")

// ErrNoActiveSession is returned when a stop is requested with nothing open.
var ErrNoActiveSession = errors.New("no blocking session is active")

// ErrProfileNotFound is returned by the profile store for unknown IDs.
var ErrProfileNotFound = errors.New("profile not found")

// ErrSessionNotFound is returned by the profile store for unknown sessions.
var ErrSessionNotFound = errors.New("session not found")

// IsGatingError reports whether err is one of the stop-gating rejections.
func IsGatingError(err error) bool {
	return errors.Is(err, ErrWrongToken) ||
		errors.Is(err, ErrNotWhitelisted) ||
		errors.Is(err, ErrMustUseOriginalTrigger)
}
