package model

// WatchlistItem is a stock saved to the user's watchlist.
type WatchlistItem struct {
	ID        int64   `json:"id"`
	Code      string  `json:"stock_code"`
	Name      string  `json:"stock_name"`
	Note      *string `json:"note"`
	CreatedAt *string `json:"created_at"`
}
