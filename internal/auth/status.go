package auth

import (
	"context"
	"time"

	"github.com/dvcrn/authtoken-proxy/internal/token"
)

// Status describes the stored session without triggering a renewal.
type Status struct {
	LoggedIn bool `json:"loggedIn"`
	// ExpiresAt is zero when the access token carries no readable exp claim.
	ExpiresAt time.Time     `json:"expiresAt,omitzero"`
	Remaining time.Duration `json:"remaining"`
	Expired   bool          `json:"isExpired"`
	// NeedsRefresh is true when the next request will trigger a renewal.
	NeedsRefresh bool `json:"needsRefresh"`
}

func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	pair, err := c.store.Get(ctx)
	if err != nil {
		return Status{}, err
	}
	if pair == nil {
		return Status{}, nil
	}

	now := c.now()
	st := Status{
		LoggedIn:     true,
		Expired:      true,
		NeedsRefresh: token.IsExpired(pair.AccessToken, c.fudge, now),
	}
	if exp, ok := token.ExpiresAt(pair.AccessToken); ok {
		st.ExpiresAt = exp
		st.Remaining = exp.Sub(now)
		st.Expired = st.Remaining <= 0
	}
	return st, nil
}
