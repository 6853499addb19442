// Package session owns the persisted auth tokens and serializes access-token
// refreshes so that at most one refresh is outstanding at a time.
package session

import (
	"context"
	"fmt"

	"stockdash/internal/model"
)

// Tokens reads and writes the token pair in the durable store under the
// same keys the browser dashboard uses.
type Tokens struct {
	kv model.KVStore
}

func NewTokens(kv model.KVStore) *Tokens {
	return &Tokens{kv: kv}
}

// Access returns the stored access token, or "" when logged out.
func (t *Tokens) Access(ctx context.Context) (string, error) {
	v, _, err := t.kv.Get(ctx, model.KeyAccessToken)
	if err != nil {
		return "", fmt.Errorf("read access token: %w", err)
	}
	return v, nil
}

// Refresh returns the stored refresh token, or "".
func (t *Tokens) Refresh(ctx context.Context) (string, error) {
	v, _, err := t.kv.Get(ctx, model.KeyRefreshToken)
	if err != nil {
		return "", fmt.Errorf("read refresh token: %w", err)
	}
	return v, nil
}

// Save persists the access token and, when present, the rotated refresh
// token. An empty refresh token leaves the stored one untouched.
func (t *Tokens) Save(ctx context.Context, pair model.TokenPair) error {
	if err := t.kv.Set(ctx, model.KeyAccessToken, pair.AccessToken); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	if pair.RefreshToken != "" {
		if err := t.kv.Set(ctx, model.KeyRefreshToken, pair.RefreshToken); err != nil {
			return fmt.Errorf("save refresh token: %w", err)
		}
	}
	return nil
}

// Clear removes both tokens. Both deletes are attempted even if the first fails.
func (t *Tokens) Clear(ctx context.Context) error {
	errA := t.kv.Delete(ctx, model.KeyAccessToken)
	errR := t.kv.Delete(ctx, model.KeyRefreshToken)
	if errA != nil {
		return fmt.Errorf("clear access token: %w", errA)
	}
	if errR != nil {
		return fmt.Errorf("clear refresh token: %w", errR)
	}
	return nil
}
