package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dvcrn/authtoken-proxy/internal/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenEndpoint struct {
	status       int
	accessToken  string
	refreshToken string
	gotForm      map[string]string
}

func (e *tokenEndpoint) serve(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		e.gotForm = map[string]string{}
		for k := range r.PostForm {
			e.gotForm[k] = r.PostForm.Get(k)
		}

		w.Header().Set("Content-Type", "application/json")
		if e.status != 0 && e.status != http.StatusOK {
			w.WriteHeader(e.status)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		body := map[string]any{
			"access_token": e.accessToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		if e.refreshToken != "" {
			body["refresh_token"] = e.refreshToken
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRenewer(t *testing.T, srv *httptest.Server) *OAuthRenewer {
	t.Helper()
	r, err := NewOAuthRenewer(OAuthConfig{
		TokenURL:   srv.URL + "/oauth/token",
		ClientID:   "client-1",
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return r
}

func TestNewOAuthRenewer_RequiresTokenURL(t *testing.T) {
	_, err := NewOAuthRenewer(OAuthConfig{})
	assert.Error(t, err)
}

func TestOAuthRenewer_RotatedRefreshToken(t *testing.T) {
	ep := &tokenEndpoint{accessToken: "A2", refreshToken: "R2"}
	r := newTestRenewer(t, ep.serve(t))

	got, err := r.Renew(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, TokenPair{AccessToken: "A2", RefreshToken: "R2"}, got)
	assert.Equal(t, "refresh_token", ep.gotForm["grant_type"])
	assert.Equal(t, "R1", ep.gotForm["refresh_token"])
	assert.Equal(t, "client-1", ep.gotForm["client_id"])
}

func TestOAuthRenewer_AccessTokenOnly(t *testing.T) {
	ep := &tokenEndpoint{accessToken: "A3"}
	r := newTestRenewer(t, ep.serve(t))

	got, err := r.Renew(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, AccessToken("A3"), got)
}

func TestOAuthRenewer_ErrorStatus(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			ep := &tokenEndpoint{status: status}
			r := newTestRenewer(t, ep.serve(t))

			_, err := r.Renew(context.Background(), "R1")
			require.Error(t, err)
			assert.Equal(t, status, StatusCode(err))
		})
	}
}

func TestOAuthRenewer_WithCoordinator(t *testing.T) {
	t.Run("rejected refresh token clears storage", func(t *testing.T) {
		ep := &tokenEndpoint{status: http.StatusUnauthorized}
		r := newTestRenewer(t, ep.serve(t))
		h := newHarness(t, &credentials.Pair{AccessToken: "expired", RefreshToken: "R1"})

		_, err := h.coord.EnsureFreshAccessToken(context.Background(), r.Renew)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Nil(t, h.pair(t))
	})

	t.Run("rotation is persisted", func(t *testing.T) {
		renewed := jwtExpiringAt(t, testNow.Add(time.Hour))
		ep := &tokenEndpoint{accessToken: renewed, refreshToken: "R2"}
		r := newTestRenewer(t, ep.serve(t))
		h := newHarness(t, &credentials.Pair{AccessToken: "expired", RefreshToken: "R1"})

		tok, err := h.coord.EnsureFreshAccessToken(context.Background(), r.Renew)
		require.NoError(t, err)
		assert.Equal(t, renewed, tok)
		assert.Equal(t, &credentials.Pair{AccessToken: renewed, RefreshToken: "R2"}, h.pair(t))
	})
}
