package apiclient

import (
	"context"
	"net/url"

	"stockdash/internal/model"
)

func (c *Client) Watchlist(ctx context.Context) ([]model.WatchlistItem, error) {
	var out []model.WatchlistItem
	err := c.get(ctx, "/watchlist", &out)
	return out, err
}

// AddToWatchlist saves code; note may be empty.
func (c *Client) AddToWatchlist(ctx context.Context, code, name, note string) (*model.WatchlistItem, error) {
	body := struct {
		Code string  `json:"stock_code"`
		Name string  `json:"stock_name"`
		Note *string `json:"note,omitempty"`
	}{Code: code, Name: name}
	if note != "" {
		body.Note = &note
	}
	var item model.WatchlistItem
	if err := c.post(ctx, "/watchlist", body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) RemoveFromWatchlist(ctx context.Context, code string) error {
	return c.delete(ctx, "/watchlist/"+url.PathEscape(code), nil)
}

// InWatchlist reports whether code is saved.
func (c *Client) InWatchlist(ctx context.Context, code string) (bool, error) {
	var out struct {
		InWatchlist bool `json:"in_watchlist"`
	}
	err := c.get(ctx, "/watchlist/check/"+url.PathEscape(code), &out)
	return out.InWatchlist, err
}
