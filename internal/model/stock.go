package model

// Stock is a row of the stock list / screener result.
type Stock struct {
	Code         string   `json:"stock_code"`
	Name         string   `json:"stock_name"`
	Price        float64  `json:"price"`
	Change       float64  `json:"change"`
	PctChange    float64  `json:"pct_change"`
	PE           *float64 `json:"pe"`
	PB           *float64 `json:"pb"`
	MarketCap    float64  `json:"market_cap"`
	Volume       *float64 `json:"volume,omitempty"`
	TurnoverRate *float64 `json:"turnover_rate,omitempty"`
	ROE          *float64 `json:"roe,omitempty"`
	Score        *float64 `json:"score,omitempty"`
	RiskLevel    *string  `json:"risk_level,omitempty"`
}

// SearchHit is one autocomplete suggestion from /stocks/search.
type SearchHit struct {
	Code      string  `json:"stock_code"`
	Name      string  `json:"stock_name"`
	Price     float64 `json:"price"`
	PctChange float64 `json:"pct_change"`
}

// Quote is the real-time quote of a single stock.
type Quote struct {
	Code      string  `json:"stock_code"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	PctChange float64 `json:"pct_change"`
	Volume    int64   `json:"volume"`
	Amount    float64 `json:"amount"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Open      float64 `json:"open"`
	PreClose  float64 `json:"pre_close"`
}
