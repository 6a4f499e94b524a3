package auth

import (
	"context"

	"github.com/dvcrn/authtoken-proxy/internal/credentials"
)

// Renewal is the successful result of a RenewFunc. It is either an
// AccessToken (the refresh token stays as stored) or a TokenPair (both
// tokens are rotated).
type Renewal interface {
	isRenewal()
}

// AccessToken is a renewal that only replaces the access token.
type AccessToken string

func (AccessToken) isRenewal() {}

// TokenPair is a renewal that replaces both tokens.
type TokenPair credentials.Pair

func (TokenPair) isRenewal() {}

// RenewFunc exchanges a refresh token for new credentials. It is the only
// place the coordinator talks to an authorization server. Errors carrying
// an HTTP status (see StatusCode) are classified by that status.
type RenewFunc func(ctx context.Context, refreshToken string) (Renewal, error)

// Header describes how the access token is attached to outgoing requests.
type Header struct {
	Name   string
	Prefix string
}

// DefaultHeader attaches "Authorization: Bearer <token>".
var DefaultHeader = Header{Name: "Authorization", Prefix: "Bearer "}

// WithDefaults maps the zero Header to DefaultHeader. A Header with only a
// Prefix set keeps that prefix under the default name.
func (h Header) WithDefaults() Header {
	if h == (Header{}) {
		return DefaultHeader
	}
	if h.Name == "" {
		h.Name = DefaultHeader.Name
	}
	return h
}
