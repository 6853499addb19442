package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockdash/internal/model"
)

func (c *Client) Sectors(ctx context.Context) ([]model.Sector, error) {
	var out []model.Sector
	err := c.get(ctx, "/market/sectors", &out)
	return out, err
}

func (c *Client) Indices(ctx context.Context) ([]model.MarketIndex, error) {
	var out []model.MarketIndex
	err := c.get(ctx, "/market/indices", &out)
	return out, err
}

// CapitalFlow returns the sector capital flow payload as-is.
func (c *Client) CapitalFlow(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.get(ctx, "/market/capital-flow", &out)
	return out, err
}

// Overview fetches indices, sectors and capital flow. Capital flow is
// optional; its failure is logged and the field left empty.
func (c *Client) Overview(ctx context.Context) (*model.MarketOverview, error) {
	indices, err := c.Indices(ctx)
	if err != nil {
		return nil, fmt.Errorf("overview indices: %w", err)
	}
	sectors, err := c.Sectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("overview sectors: %w", err)
	}
	flow, err := c.CapitalFlow(ctx)
	if err != nil {
		c.logger.Warn("capital flow unavailable", "error", err)
		flow = nil
	}
	return &model.MarketOverview{
		Indices:     indices,
		Sectors:     sectors,
		CapitalFlow: flow,
		UpdatedAt:   time.Now().UnixMilli(),
	}, nil
}
