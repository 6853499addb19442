package model

import "encoding/json"

// MarketIndex is a major market index (e.g. SSE Composite).
type MarketIndex struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	PctChange float64 `json:"pct_change"`
}

// Sector is an industry sector with its daily move, rendered as a heatmap.
type Sector struct {
	Name      string  `json:"name"`
	PctChange float64 `json:"pct_change"`
	Leader    string  `json:"leader,omitempty"`
}

// MarketOverview is the cached bundle served on the market page.
// The capital flow payload shape is backend defined and passed through.
type MarketOverview struct {
	Indices     []MarketIndex   `json:"indices"`
	Sectors     []Sector        `json:"sectors"`
	CapitalFlow json.RawMessage `json:"capital_flow,omitempty"`
	UpdatedAt   int64           `json:"updated_at"`
}
