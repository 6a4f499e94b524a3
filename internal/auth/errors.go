package auth

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

var (
	// ErrNoRefreshToken means no session is stored. EnsureFreshAccessToken
	// treats it as the anonymous path; Refresh reports it as invalid credentials.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrInvalidCredentials matches renewal failures where the authorization
	// server rejected the refresh token. Stored tokens have been cleared.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTransient matches renewal failures that leave storage untouched and
	// may succeed on a later attempt.
	ErrTransient = errors.New("transient renewal failure")
	// ErrMalformedRenewal matches renewals that returned neither an access
	// token nor a complete token pair.
	ErrMalformedRenewal = errors.New("malformed renewal result")
)

// FailureKind classifies a failed renewal.
type FailureKind int

const (
	KindTransient FailureKind = iota
	KindInvalidCredentials
	KindMalformedRenewal
)

func (k FailureKind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindMalformedRenewal:
		return "malformed_renewal"
	default:
		return "transient"
	}
}

// RenewalError is returned to every caller waiting on a failed renewal.
type RenewalError struct {
	Kind FailureKind
	// Status is the HTTP status reported by the renewal, or 0.
	Status int
	Err    error
}

func (e *RenewalError) Error() string {
	switch {
	case e.Kind == KindInvalidCredentials && e.Status != 0:
		return fmt.Sprintf("got %d on token refresh; clearing both auth tokens: %v", e.Status, e.Err)
	case e.Kind == KindInvalidCredentials:
		return fmt.Sprintf("unable to refresh auth token: %v", e.Err)
	case e.Kind == KindMalformedRenewal:
		return fmt.Sprintf("renewal must return either an access token or a complete token pair: %v", e.Err)
	default:
		return fmt.Sprintf("failed to refresh auth token: %v", e.Err)
	}
}

func (e *RenewalError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *RenewalError) Is(target error) bool {
	switch target {
	case ErrInvalidCredentials:
		return e.Kind == KindInvalidCredentials
	case ErrTransient:
		return e.Kind == KindTransient
	case ErrMalformedRenewal:
		return e.Kind == KindMalformedRenewal
	}
	return false
}

// StatusError is an error carrying the HTTP status of a failed token request.
// Custom RenewFuncs can return it to have 401 and 422 classified as invalid
// credentials.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("token refresh failed with status %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("token refresh failed with status %d: %s", e.Code, e.Body)
}

func (e *StatusError) StatusCode() int {
	return e.Code
}

// StatusCode extracts the HTTP status from err, or returns 0. It understands
// any error in the chain with a StatusCode() int method and
// *oauth2.RetrieveError.
func StatusCode(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return re.Response.StatusCode
	}
	return 0
}

func invalidatesCredentials(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusUnprocessableEntity
}
