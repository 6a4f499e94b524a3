package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dvcrn/authtoken-proxy/internal/storage"
)

var (
	// ErrStorageCorrupted means a record exists but is not a valid token pair.
	ErrStorageCorrupted = errors.New("stored auth tokens are corrupted")
	// ErrNoCredentialsStored means an access token update was attempted with
	// no pair stored.
	ErrNoCredentialsStored = errors.New("unable to update access token since there are no tokens currently stored")
)

// Pair is the access and refresh token persisted together as one record.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (p Pair) validate() error {
	if p.AccessToken == "" || p.RefreshToken == "" {
		return errors.New("both accessToken and refreshToken are required")
	}
	return nil
}

// Store reads and writes the token pair through a storage backend under a
// single key.
type Store struct {
	storage storage.Storage
	key     string
}

func NewStore(s storage.Storage, key string) *Store {
	return &Store{storage: s, key: key}
}

func (s *Store) Key() string {
	return s.key
}

// Get returns the stored pair, or nil when nothing is stored.
func (s *Store) Get(ctx context.Context) (*Pair, error) {
	raw, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read auth tokens: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	var p Pair
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: failed to parse auth tokens: %w", ErrStorageCorrupted, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageCorrupted, err)
	}
	return &p, nil
}

// SetPair replaces the stored record with p.
func (s *Store) SetPair(ctx context.Context, p Pair) error {
	if err := p.validate(); err != nil {
		return fmt.Errorf("invalid token pair: %w", err)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal auth tokens: %w", err)
	}
	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("failed to write auth tokens: %w", err)
	}
	return nil
}

// SetAccessToken replaces only the access token of the stored pair.
func (s *Store) SetAccessToken(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return errors.New("access token must not be empty")
	}

	p, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNoCredentialsStored
	}

	p.AccessToken = accessToken
	return s.SetPair(ctx, *p)
}

// Clear deletes the stored pair.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("failed to clear auth tokens: %w", err)
	}
	return nil
}

// AccessToken returns the stored access token, or "" when nothing is stored.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	p, err := s.Get(ctx)
	if err != nil || p == nil {
		return "", err
	}
	return p.AccessToken, nil
}

// RefreshToken returns the stored refresh token, or "" when nothing is stored.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	p, err := s.Get(ctx)
	if err != nil || p == nil {
		return "", err
	}
	return p.RefreshToken, nil
}

// IsLoggedIn reports whether a refresh token is stored.
func (s *Store) IsLoggedIn(ctx context.Context) (bool, error) {
	rt, err := s.RefreshToken(ctx)
	if err != nil {
		return false, err
	}
	return rt != "", nil
}
