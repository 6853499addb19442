package gateway

import (
	"stockdash/internal/indicator"
	"stockdash/internal/model"
	"stockdash/internal/search"
)

// Inbound websocket message types.
const (
	MsgInput  = "INPUT"
	MsgFocus  = "FOCUS"
	MsgSelect = "SELECT"
	MsgPing   = "PING"
)

// Outbound websocket message types.
const (
	MsgSuggestions    = "SUGGESTIONS"
	MsgSessionExpired = "SESSION_EXPIRED"
	MsgError          = "ERROR"
	MsgPong           = "PONG"
)

// ClientMsg is one inbound frame on /ws/search.
type ClientMsg struct {
	Type    string `json:"type"`
	Keyword string `json:"keyword,omitempty"`
	Code    string `json:"code,omitempty"`
	Ping    int64  `json:"ping,omitempty"`
}

// SuggestionsMsg carries one published dropdown update.
type SuggestionsMsg struct {
	Type string `json:"type"`
	search.Suggestions
}

// NoticeMsg is a server-initiated notice such as SESSION_EXPIRED or ERROR.
type NoticeMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PongMsg answers a PING.
type PongMsg struct {
	Type     string `json:"type"`
	Ping     int64  `json:"ping"`
	ServerTS int64  `json:"server_ts"`
}

// IndicatorsResponse is the body of GET /api/indicators/{code}.
type IndicatorsResponse struct {
	Code       string           `json:"code"`
	Period     string           `json:"period"`
	Days       int              `json:"days"`
	Cached     bool             `json:"cached"`
	Bars       []model.PriceBar `json:"bars"`
	Indicators indicator.Result `json:"indicators"`
}

// OverviewResponse is the body of GET /api/market/overview.
type OverviewResponse struct {
	*model.MarketOverview
	Cached    bool   `json:"cached"`
	FetchedAt string `json:"fetched_at,omitempty"`
}

// MarketStatus is the body of GET /api/market/status.
type MarketStatus struct {
	Phase    string `json:"phase"`
	Open     bool   `json:"open"`
	Status   string `json:"status"`
	NextOpen string `json:"next_open"`
	ClosesAt string `json:"closes_at,omitempty"`
}

// HistoryResponse is the body of GET /api/search/history.
type HistoryResponse struct {
	Recent []string `json:"recent"`
}
