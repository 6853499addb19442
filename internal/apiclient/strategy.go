package apiclient

import (
	"context"
	"strconv"

	"stockdash/internal/model"
)

// ExecuteStrategy runs a screener on the backend and returns matching stocks.
func (c *Client) ExecuteStrategy(ctx context.Context, req model.ExecuteStrategyRequest) ([]model.Stock, error) {
	var out []model.Stock
	err := c.post(ctx, "/strategies/execute", req, &out)
	return out, err
}

// ParseStrategy turns a natural-language description into screener conditions.
func (c *Client) ParseStrategy(ctx context.Context, description string) (map[string]any, error) {
	var out struct {
		Conditions map[string]any `json:"conditions"`
	}
	if err := c.post(ctx, "/strategies/parse", map[string]string{"description": description}, &out); err != nil {
		return nil, err
	}
	return out.Conditions, nil
}

func (c *Client) Strategies(ctx context.Context) ([]model.Strategy, error) {
	var out []model.Strategy
	err := c.get(ctx, "/strategies", &out)
	return out, err
}

func (c *Client) CreateStrategy(ctx context.Context, s model.Strategy) (*model.Strategy, error) {
	body := struct {
		Name         string         `json:"name"`
		StrategyType string         `json:"strategy_type"`
		Conditions   map[string]any `json:"conditions,omitempty"`
	}{s.Name, s.StrategyType, s.Conditions}
	var out model.Strategy
	if err := c.post(ctx, "/strategies", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteStrategy(ctx context.Context, id int64) error {
	return c.delete(ctx, "/strategies/"+strconv.FormatInt(id, 10), nil)
}
