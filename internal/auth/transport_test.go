package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvcrn/authtoken-proxy/internal/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoAuthServer(t *testing.T, header string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, r.Header.Get(header))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, client *http.Client, url string) (string, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body), nil
}

func TestNewClient_AttachesFreshToken(t *testing.T) {
	fresh := jwtExpiringAt(t, testNow.Add(time.Hour))
	h := newHarness(t, &credentials.Pair{AccessToken: fresh, RefreshToken: "rt"})
	var hits, calls atomic.Int32
	srv := echoAuthServer(t, "Authorization", &hits)

	client, err := NewClient(srv.Client(), h.coord, countingRenew(&calls, AccessToken("x"), nil), Header{})
	require.NoError(t, err)

	got, err := get(t, client, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+fresh, got)
	assert.Zero(t, calls.Load())
}

func TestNewClient_CustomHeader(t *testing.T) {
	h := newHarness(t, &credentials.Pair{AccessToken: "expired", RefreshToken: "rt"})
	var hits, calls atomic.Int32
	srv := echoAuthServer(t, "X-Auth", &hits)

	client, err := NewClient(srv.Client(), h.coord, countingRenew(&calls, AccessToken("renewed"), nil),
		Header{Name: "X-Auth", Prefix: "Token "})
	require.NoError(t, err)

	got, err := get(t, client, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Token renewed", got)
	assert.EqualValues(t, 1, calls.Load())
}

func TestNewClient_AnonymousPassThrough(t *testing.T) {
	h := newHarness(t, nil)
	var hits, calls atomic.Int32
	srv := echoAuthServer(t, "Authorization", &hits)

	client, err := NewClient(srv.Client(), h.coord, countingRenew(&calls, AccessToken("x"), nil), Header{})
	require.NoError(t, err)

	got, err := get(t, client, srv.URL)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.EqualValues(t, 1, hits.Load())
	assert.Zero(t, calls.Load())
}

func TestNewClient_RenewalFailureFailsRequest(t *testing.T) {
	h := newHarness(t, &credentials.Pair{AccessToken: "expired", RefreshToken: "rt"})
	var hits, calls atomic.Int32
	srv := echoAuthServer(t, "Authorization", &hits)

	client, err := NewClient(srv.Client(), h.coord,
		countingRenew(&calls, nil, &StatusError{Code: http.StatusUnauthorized}), Header{})
	require.NoError(t, err)

	_, err = get(t, client, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "unable to refresh access token for request due to token refresh error")
	assert.Zero(t, hits.Load(), "the request must not be sent")
	assert.Nil(t, h.pair(t))
}

func TestNewClient_InvalidArguments(t *testing.T) {
	h := newHarness(t, nil)
	renew := countingRenew(new(atomic.Int32), AccessToken("x"), nil)

	_, err := NewClient(nil, h.coord, renew, Header{})
	assert.EqualError(t, err, "invalid http client: nil")

	_, err = NewClient(http.DefaultClient, nil, renew, Header{})
	assert.Error(t, err)

	_, err = NewClient(http.DefaultClient, h.coord, nil, Header{})
	assert.Error(t, err)
}

func TestAuthorize_DoesNotModifyOriginal(t *testing.T) {
	h := newHarness(t, &credentials.Pair{AccessToken: "expired", RefreshToken: "rt"})
	var calls atomic.Int32

	req := httptest.NewRequest(http.MethodPost, "http://upstream.test/v1", strings.NewReader("{}"))
	authed, err := h.coord.Authorize(req, countingRenew(&calls, AccessToken("renewed"), nil), DefaultHeader)

	require.NoError(t, err)
	assert.Equal(t, "Bearer renewed", authed.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestAuthorize_ZeroHeaderUsesBearer(t *testing.T) {
	h := newHarness(t, &credentials.Pair{AccessToken: "expired", RefreshToken: "rt"})
	var calls atomic.Int32

	req := httptest.NewRequest(http.MethodGet, "http://upstream.test/v1", nil)
	authed, err := h.coord.Authorize(req, countingRenew(&calls, AccessToken("renewed"), nil), Header{})

	require.NoError(t, err)
	assert.Equal(t, "Bearer renewed", authed.Header.Get("Authorization"))
}

func TestHeader_WithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Header
		want Header
	}{
		{"zero", Header{}, DefaultHeader},
		{"prefix only", Header{Prefix: "Token "}, Header{Name: "Authorization", Prefix: "Token "}},
		{"name without prefix", Header{Name: "X-Auth"}, Header{Name: "X-Auth"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.WithDefaults())
		})
	}
}
