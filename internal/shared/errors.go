package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidConfig              = fmt.Errorf("invalid configuration")
	ErrMissingClientConfiguration = fmt.Errorf("missing client configuration")

	// Authentication errors
	ErrIdentityProviderUnavailable = fmt.Errorf("identity provider unavailable")
	ErrUserCancelled               = fmt.Errorf("login cancelled")
	ErrAccessDenied                = fmt.Errorf("access denied")
	ErrUnauthorizedIdentity        = fmt.Errorf("account is not authorized")
	ErrUnauthenticated             = fmt.Errorf("session expired, please reconnect")
	ErrTimeout                     = fmt.Errorf("operation timed out")

	// Provider errors
	ErrProvider           = fmt.Errorf("provider error")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Playback errors
	ErrPlaybackRejected = fmt.Errorf("unable to play this source")
	ErrMediaLoadFailure = fmt.Errorf("failed to load audio source")
	ErrPlayAborted      = fmt.Errorf("play request aborted")
	ErrAutoplayBlocked  = fmt.Errorf("autoplay blocked")

	// Storage errors
	ErrStorageParseFailure = fmt.Errorf("corrupt persisted value")
	ErrHandleRevoked       = fmt.Errorf("stream handle revoked")
	ErrNoRollback          = fmt.Errorf("no schema migrations to roll back")
	ErrSchemaTooNew        = fmt.Errorf("database schema is newer than this build")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ProviderError carries the status and detail of a failed provider call.
//
// It matches [ErrProvider] with [errors.Is].
type ProviderError struct {
	Status int
	Detail string
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%v: %s", ErrProvider, e.Detail)
	}
	return fmt.Sprintf("%v: status %d: %s", ErrProvider, e.Status, e.Detail)
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// NewProviderError builds a [ProviderError] from a status code and a formatted detail.
func NewProviderError(status int, format string, args ...any) error {
	return &ProviderError{Status: status, Detail: fmt.Sprintf(format, args...)}
}

// ProviderStatus returns the HTTP status carried by err, or 0.
func ProviderStatus(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Status
	}
	return 0
}
