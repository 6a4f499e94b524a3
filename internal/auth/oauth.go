package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// DefaultRenewTimeout bounds a single refresh grant round-trip.
const DefaultRenewTimeout = 30 * time.Second

// OAuthConfig describes the authorization server's token endpoint.
type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// HTTPClient performs the token request. Defaults to a client with
	// DefaultRenewTimeout.
	HTTPClient *http.Client
}

// OAuthRenewer renews tokens with an OAuth 2.0 refresh_token grant.
type OAuthRenewer struct {
	config oauth2.Config
	client *http.Client
}

func NewOAuthRenewer(cfg OAuthConfig) (*OAuthRenewer, error) {
	if cfg.TokenURL == "" {
		return nil, errors.New("oauth token URL is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultRenewTimeout}
	}

	return &OAuthRenewer{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: client,
	}, nil
}

// Renew implements RenewFunc. A response that rotates the refresh token
// yields a TokenPair, otherwise an AccessToken. Error responses surface as
// *oauth2.RetrieveError so their status drives classification.
func (o *OAuthRenewer) Renew(ctx context.Context, refreshToken string) (Renewal, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)

	tok, err := o.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh grant against %s failed: %w", o.config.Endpoint.TokenURL, err)
	}

	// The oauth2 package carries the old refresh token over when the
	// server does not return a new one.
	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		return TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
	}
	return AccessToken(tok.AccessToken), nil
}
