package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"stockdash/internal/model"
)

// MaxHistory bounds the recent-search list.
const MaxHistory = 10

// History is the recent-search list: most recent first, no duplicates, at
// most MaxHistory entries. It is persisted as a JSON array under
// model.KeySearchHistory.
type History struct {
	kv model.KVStore

	mu    sync.Mutex
	items []string
}

// LoadHistory reads the persisted list. A missing or unreadable value starts
// an empty history.
func LoadHistory(ctx context.Context, kv model.KVStore) (*History, error) {
	h := &History{kv: kv}
	raw, ok, err := kv.Get(ctx, model.KeySearchHistory)
	if err != nil {
		return nil, fmt.Errorf("load search history: %w", err)
	}
	if ok && raw != "" {
		var items []string
		if json.Unmarshal([]byte(raw), &items) == nil {
			if len(items) > MaxHistory {
				items = items[:MaxHistory]
			}
			h.items = items
		}
	}
	return h, nil
}

// List returns a copy of the entries, most recent first.
func (h *History) List() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.items...)
}

// Add moves keyword to the front and persists the list.
func (h *History) Add(ctx context.Context, keyword string) error {
	if keyword == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	next := make([]string, 0, MaxHistory)
	next = append(next, keyword)
	for _, k := range h.items {
		if k != keyword && len(next) < MaxHistory {
			next = append(next, k)
		}
	}

	raw, _ := json.Marshal(next)
	if err := h.kv.Set(ctx, model.KeySearchHistory, string(raw)); err != nil {
		return fmt.Errorf("save search history: %w", err)
	}
	h.items = next
	return nil
}

// Clear empties the list and removes the persisted key.
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.kv.Delete(ctx, model.KeySearchHistory); err != nil {
		return fmt.Errorf("clear search history: %w", err)
	}
	h.items = nil
	return nil
}
