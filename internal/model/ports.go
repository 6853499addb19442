package model

import "context"

// ── Storage Port Interfaces ──
// These interfaces decouple the client from concrete durable storage
// (JSON file, SQLite, Redis). Each store implementation satisfies KVStore.

// KVStore is a durable string key-value store with localStorage semantics:
// a missing key is reported as ok=false, never as an error.
type KVStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases underlying resources.
	Close() error
}

// BarCache caches fetched kline series so indicator requests can be served
// without hitting the backend again within the cache TTL.
type BarCache interface {
	// SaveBars stores bars for code/period.
	SaveBars(ctx context.Context, code, period string, bars []PriceBar) error

	// LoadBars returns cached bars. Returns nil, nil on a miss or expiry.
	LoadBars(ctx context.Context, code, period string) ([]PriceBar, error)
}

// Durable keys shared with the browser build of the dashboard.
const (
	KeyAccessToken        = "token"
	KeyRefreshToken       = "refresh_token"
	KeySearchHistory      = "searchHistory"
	KeyDisclaimerAccepted = "risk_disclaimer_accepted"
)
