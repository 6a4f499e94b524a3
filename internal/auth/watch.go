package auth

import (
	"context"
	"errors"
	"time"
)

// Watch periodically renews the access token ahead of expiry until ctx is
// done, so requests rarely wait on a renewal. Failures are logged and the
// next tick tries again; an InvalidCredentials failure has already cleared
// storage, after which ticks are no-ops until new tokens are set.
func (c *Coordinator) Watch(ctx context.Context, interval time.Duration, renew RenewFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.checkAndRefresh(ctx, renew)
		case <-ctx.Done():
			c.logger.Debug().Msg("Background token refresh stopped")
			return
		}
	}
}

func (c *Coordinator) checkAndRefresh(ctx context.Context, renew RenewFunc) {
	accessToken, err := c.EnsureFreshAccessToken(ctx, renew)
	switch {
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		c.logger.Error().Err(err).Msg("❌ Background refresh failed")
	case accessToken == "":
		c.logger.Debug().Msg("Background refresh: no session stored")
	default:
		c.logger.Debug().Msg("Background refresh: access token is fresh")
	}
}
