package model

import (
	"encoding/json"
	"strconv"
)

// PriceBar is one daily (or weekly/monthly) OHLC bar as returned by the kline endpoint.
// Bars are ordered chronologically ascending and never mutated after fetch.
type PriceBar struct {
	Date   string   `json:"date"`
	Open   float64  `json:"open"`
	Close  float64  `json:"close"`
	High   float64  `json:"high"`
	Low    float64  `json:"low"`
	Volume *float64 `json:"volume,omitempty"`
	Amount *float64 `json:"amount,omitempty"`
}

// Closes returns the closing prices of bars in order.
func Closes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i := range bars {
		out[i] = bars[i].Close
	}
	return out
}

// Dates returns the bar dates in order, used as the chart x-axis.
func Dates(bars []PriceBar) []string {
	out := make([]string, len(bars))
	for i := range bars {
		out[i] = bars[i].Date
	}
	return out
}

// KLineQuery holds the optional kline filters accepted by the backend.
type KLineQuery struct {
	Period    string // "1d", "1w", "1M"
	Days      int
	Adjust    string // "qfq", "hfq" or ""
	StartDate string
	EndDate   string
}

// BarsJSON returns the JSON-encoded bars (ignoring errors, bars are plain data).
func BarsJSON(bars []PriceBar) []byte {
	b, _ := json.Marshal(bars)
	return b
}

// CacheKey identifies the bar series in a BarCache. Only plain period/days
// queries are cacheable; ok is false when a date range or adjustment is set.
func (q KLineQuery) CacheKey() (key string, ok bool) {
	if q.Adjust != "" || q.StartDate != "" || q.EndDate != "" {
		return "", false
	}
	return q.Period + "." + strconv.Itoa(q.Days), true
}
