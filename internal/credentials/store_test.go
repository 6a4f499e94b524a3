package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/dvcrn/authtoken-proxy/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStorage struct{ err error }

func (f failingStorage) Get(context.Context, string) (string, error) { return "", f.err }
func (f failingStorage) Set(context.Context, string, string) error   { return f.err }
func (f failingStorage) Remove(context.Context, string) error        { return f.err }

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	return NewStore(mem, storage.Key("test")), mem
}

func TestStoreEmpty(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	at, err := s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, at)

	rt, err := s.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, rt)

	loggedIn, err := s.IsLoggedIn(ctx)
	require.NoError(t, err)
	assert.False(t, loggedIn)
}

func TestStoreSetPair(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	require.NoError(t, s.SetPair(ctx, Pair{AccessToken: "access", RefreshToken: "refresh"}))

	raw, err := mem.Get(ctx, s.Key())
	require.NoError(t, err)
	assert.JSONEq(t, `{"accessToken":"access","refreshToken":"refresh"}`, raw)

	p, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Pair{AccessToken: "access", RefreshToken: "refresh"}, p)

	loggedIn, err := s.IsLoggedIn(ctx)
	require.NoError(t, err)
	assert.True(t, loggedIn)
}

func TestStoreSetPairRejectsPartialPair(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	require.Error(t, s.SetPair(ctx, Pair{AccessToken: "access"}))
	require.Error(t, s.SetPair(ctx, Pair{RefreshToken: "refresh"}))

	_, err := mem.Get(ctx, s.Key())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoreSetAccessToken(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	err := s.SetAccessToken(ctx, "new-access")
	require.ErrorIs(t, err, ErrNoCredentialsStored)

	require.NoError(t, s.SetPair(ctx, Pair{AccessToken: "old-access", RefreshToken: "refresh"}))
	require.NoError(t, s.SetAccessToken(ctx, "new-access"))

	p, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-access", p.AccessToken)
	assert.Equal(t, "refresh", p.RefreshToken)
}

func TestStoreClear(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.SetPair(ctx, Pair{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, s.Clear(ctx))

	p, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, s.Clear(ctx))
}

func TestStoreCorrupted(t *testing.T) {
	ctx := context.Background()

	for name, raw := range map[string]string{
		"invalid json":          "{accessToken:",
		"missing refresh token": `{"accessToken":"a"}`,
		"wrong shape":           `["a","r"]`,
	} {
		t.Run(name, func(t *testing.T) {
			s, mem := newTestStore(t)
			require.NoError(t, mem.Set(ctx, s.Key(), raw))

			_, err := s.Get(ctx)
			require.ErrorIs(t, err, ErrStorageCorrupted)

			_, err = s.RefreshToken(ctx)
			require.ErrorIs(t, err, ErrStorageCorrupted)

			_, err = s.IsLoggedIn(ctx)
			require.ErrorIs(t, err, ErrStorageCorrupted)

			err = s.SetAccessToken(ctx, "a2")
			require.ErrorIs(t, err, ErrStorageCorrupted)
		})
	}
}

func TestStoreBackendFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend down")
	s := NewStore(failingStorage{err: boom}, "k")

	_, err := s.Get(ctx)
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrStorageCorrupted)

	require.ErrorIs(t, s.SetPair(ctx, Pair{AccessToken: "a", RefreshToken: "r"}), boom)
	require.ErrorIs(t, s.Clear(ctx), boom)
}
