package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Authorize returns req with the access token attached, renewing it first
// when needed. With no session stored, req is returned unchanged. The
// original request is never modified.
func (c *Coordinator) Authorize(req *http.Request, renew RenewFunc, h Header) (*http.Request, error) {
	accessToken, err := c.EnsureFreshAccessToken(req.Context(), renew)
	if err != nil {
		return nil, fmt.Errorf("unable to refresh access token for request due to token refresh error: %w", err)
	}
	if accessToken == "" {
		return req, nil
	}

	h = h.WithDefaults()
	authed := req.Clone(req.Context())
	authed.Header.Set(h.Name, h.Prefix+accessToken)
	return authed, nil
}

// Transport is an http.RoundTripper that authorizes every request through a
// Coordinator before handing it to Base. A failed renewal fails the request
// instead of sending it unauthenticated.
type Transport struct {
	Coordinator *Coordinator
	Renew       RenewFunc
	Header      Header
	// Base defaults to http.DefaultTransport.
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	authed, err := t.Coordinator.Authorize(req, t.Renew, t.Header)
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}
	return t.base().RoundTrip(authed)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// NewClient returns a shallow copy of base whose transport authorizes every
// request through c.
func NewClient(base *http.Client, c *Coordinator, renew RenewFunc, h Header) (*http.Client, error) {
	if base == nil {
		return nil, errors.New("invalid http client: nil")
	}
	if c == nil || renew == nil {
		return nil, errors.New("a coordinator and a renew function are required")
	}

	client := *base
	client.Transport = &Transport{
		Coordinator: c,
		Renew:       renew,
		Header:      h,
		Base:        base.Transport,
	}
	return &client, nil
}
