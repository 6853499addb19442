package apiclient

import (
	"context"
	"net/url"
	"strconv"

	"stockdash/internal/model"
)

// DefaultSearchLimit is the number of suggestions the search box asks for.
const DefaultSearchLimit = 8

func stockPath(code, suffix string) string {
	return "/stocks/" + url.PathEscape(code) + suffix
}

// ListStocks returns the stock list.
func (c *Client) ListStocks(ctx context.Context) ([]model.Stock, error) {
	var out []model.Stock
	err := c.get(ctx, "/stocks", &out)
	return out, err
}

// Quote returns the real-time quote of code.
func (c *Client) Quote(ctx context.Context, code string) (*model.Quote, error) {
	var q model.Quote
	if err := c.get(ctx, stockPath(code, "/quote"), &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// KLine returns price bars for code in chronological order.
func (c *Client) KLine(ctx context.Context, code string, q model.KLineQuery) ([]model.PriceBar, error) {
	v := url.Values{}
	v.Set("period", q.Period)
	if q.Days > 0 {
		v.Set("days", strconv.Itoa(q.Days))
	}
	v.Set("adjust", q.Adjust)
	v.Set("start_date", q.StartDate)
	v.Set("end_date", q.EndDate)

	var bars []model.PriceBar
	err := c.get(ctx, stockPath(code, "/kline"), &bars, WithQuery(v))
	return bars, err
}

// Search returns up to limit stocks matching keyword by code or name.
func (c *Client) Search(ctx context.Context, keyword string, limit int) ([]model.SearchHit, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	v := url.Values{}
	v.Set("q", keyword)
	v.Set("limit", strconv.Itoa(limit))

	var hits []model.SearchHit
	err := c.get(ctx, "/stocks/search", &hits, WithQuery(v))
	return hits, err
}

// Analyze runs the full backend analysis of code. It can take minutes, so it
// uses the analysis timeout.
func (c *Client) Analyze(ctx context.Context, code string) (*model.AnalysisReport, error) {
	var r model.AnalysisReport
	if err := c.post(ctx, stockPath(code, "/analyze"), nil, &r, WithTimeout(c.analysisTimeout)); err != nil {
		return nil, err
	}
	return &r, nil
}

// Report returns the latest stored analysis of code.
func (c *Client) Report(ctx context.Context, code string) (*model.AnalysisReport, error) {
	var r model.AnalysisReport
	if err := c.get(ctx, stockPath(code, "/report"), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
