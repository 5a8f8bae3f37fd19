package auth

import "errors"

// Sentinel errors for the token verification pipeline. Expiry and
// revocation are distinguished from generic invalidity so clients can
// branch between refreshing and re-authenticating; the generic message
// deliberately does not reveal which check failed.
var (
	ErrInvalidCredentials = errors.New("could not validate credentials")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrTokenCreation      = errors.New("could not create token")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("inactive user")
)

// IsUnauthorized reports whether err belongs to the unauthorized class of
// the taxonomy. Anything else (signing failures, store connectivity) is a
// server fault and must not be presented as an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrUserInactive)
}
