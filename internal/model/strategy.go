package model

// StrategyInfo describes a built-in screening strategy.
type StrategyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Strategy is a user-saved screening strategy.
type Strategy struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	StrategyType string         `json:"strategy_type"`
	Conditions   map[string]any `json:"conditions"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at,omitempty"`
}

// ExecuteStrategyRequest runs a strategy on the backend screener.
type ExecuteStrategyRequest struct {
	StrategyType string         `json:"strategy_type"`
	Limit        int            `json:"limit,omitempty"`
	Conditions   map[string]any `json:"conditions,omitempty"`
}
