// ABOUTME: Sentinel errors for the session lifecycle
// ABOUTME: Callers match with errors.Is; the underlying api error stays reachable via errors.As

package session

import "errors"

// Session errors
var (
	ErrCredentialRejected = errors.New("credentials rejected")
	ErrSessionExpired     = errors.New("session expired")
	ErrProfileUnavailable = errors.New("profile unavailable")
	ErrMissingToken       = errors.New("token response missing access_token")
	ErrLoginInterrupted   = errors.New("session torn down while logging in")
)
