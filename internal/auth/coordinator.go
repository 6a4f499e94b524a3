package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvcrn/authtoken-proxy/internal/credentials"
	"github.com/dvcrn/authtoken-proxy/internal/token"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const renewalKey = "renew"

// Coordinator keeps the stored access token fresh. However many callers
// find the token expired at the same time, only one renewal round-trip is
// in flight and every caller waiting on it receives the same outcome.
type Coordinator struct {
	store  *credentials.Store
	fudge  time.Duration
	now    func() time.Time
	logger zerolog.Logger

	flight singleflight.Group
}

type Option func(*Coordinator)

// WithFudge sets how long before real expiry a token is already renewed.
func WithFudge(d time.Duration) Option {
	return func(c *Coordinator) { c.fudge = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(store *credentials.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		fudge:  token.DefaultFudge,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Store() *credentials.Store {
	return c.store
}

func (c *Coordinator) Fudge() time.Duration {
	return c.fudge
}

// EnsureFreshAccessToken returns a usable access token, renewing it through
// renew when it is missing, undecodable or within the fudge window of
// expiry. It returns "" and no error when no refresh token is stored.
func (c *Coordinator) EnsureFreshAccessToken(ctx context.Context, renew RenewFunc) (string, error) {
	pair, err := c.store.Get(ctx)
	if err != nil {
		return "", err
	}
	if pair == nil {
		return "", nil
	}

	if !token.IsExpired(pair.AccessToken, c.fudge, c.now()) {
		return pair.AccessToken, nil
	}

	return c.join(ctx, renew, false)
}

// Refresh renews the access token regardless of its expiry. It joins a
// renewal already in flight instead of starting a second one.
func (c *Coordinator) Refresh(ctx context.Context, renew RenewFunc) (string, error) {
	return c.join(ctx, renew, true)
}

// join waits on the in-flight renewal, starting one if none is running.
// The renewal runs detached from the caller's cancellation so one caller
// giving up does not fail the others; a cancelled caller stops waiting.
func (c *Coordinator) join(ctx context.Context, renew RenewFunc, force bool) (string, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(renewalKey, func() (any, error) {
		return c.renew(detached, renew, force)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Coordinator) renew(ctx context.Context, renew RenewFunc, force bool) (string, error) {
	pair, err := c.store.Get(ctx)
	if err != nil {
		return "", err
	}
	if pair == nil {
		return "", &RenewalError{Kind: KindInvalidCredentials, Err: ErrNoRefreshToken}
	}

	// A renewal that settled just before this one started may already have
	// stored a fresh token.
	if !force && !token.IsExpired(pair.AccessToken, c.fudge, c.now()) {
		return pair.AccessToken, nil
	}

	c.logExpiry(pair.AccessToken)

	start := time.Now()
	result, err := renew(ctx, pair.RefreshToken)
	if err != nil {
		return "", c.classify(ctx, err)
	}

	accessToken, err := c.persist(ctx, result)
	if err != nil {
		c.logger.Error().Err(err).Msg("❌ Failed to apply renewal result")
		return "", err
	}

	c.logger.Info().
		Dur("duration", time.Since(start)).
		Str("access_token", token.Preview(accessToken)).
		Msg("✅ Access token refreshed successfully")
	return accessToken, nil
}

func (c *Coordinator) persist(ctx context.Context, result Renewal) (string, error) {
	switch r := result.(type) {
	case AccessToken:
		if r == "" {
			return "", &RenewalError{Kind: KindMalformedRenewal, Err: errors.New("empty access token")}
		}
		if err := c.store.SetAccessToken(ctx, string(r)); err != nil {
			return "", &RenewalError{Kind: KindTransient, Err: err}
		}
		return string(r), nil

	case TokenPair:
		if r.AccessToken == "" {
			return "", &RenewalError{Kind: KindMalformedRenewal, Err: errors.New("token pair has no access token")}
		}
		if r.RefreshToken == "" {
			return "", &RenewalError{Kind: KindMalformedRenewal, Err: errors.New("token pair has no refresh token")}
		}
		if err := c.store.SetPair(ctx, credentials.Pair(r)); err != nil {
			return "", &RenewalError{Kind: KindTransient, Err: err}
		}
		return r.AccessToken, nil

	default:
		return "", &RenewalError{Kind: KindMalformedRenewal, Err: fmt.Errorf("unsupported result %T", result)}
	}
}

func (c *Coordinator) classify(ctx context.Context, err error) error {
	status := StatusCode(err)
	if !invalidatesCredentials(status) {
		c.logger.Error().Err(err).Int("status", status).Msg("❌ Failed to refresh access token")
		return &RenewalError{Kind: KindTransient, Status: status, Err: err}
	}

	c.logger.Warn().Int("status", status).Msg("🔒 Refresh token rejected, clearing stored auth tokens")
	if clearErr := c.store.Clear(ctx); clearErr != nil {
		c.logger.Error().Err(clearErr).Msg("❌ Failed to clear rejected auth tokens")
		err = errors.Join(err, clearErr)
	}
	return &RenewalError{Kind: KindInvalidCredentials, Status: status, Err: err}
}

func (c *Coordinator) logExpiry(accessToken string) {
	ev := c.logger.Info()
	if remaining, ok := token.RemainingLifetime(accessToken, c.now()); ok {
		ev = ev.Dur("remaining", remaining)
	}
	ev.Msg("🔄 Access token expired or expiring soon, refreshing...")
}
