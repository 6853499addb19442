package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"

	"stockdash/internal/apiclient"
	"stockdash/internal/indicator"
	"stockdash/internal/model"
	"stockdash/internal/prefs"
	"stockdash/internal/search"
	"stockdash/internal/store/memory"
)

type fakeBackend struct {
	analyses atomic.Int32
	lastDays atomic.Value
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/stocks/{code}/kline", func(w http.ResponseWriter, r *http.Request) {
		b.lastDays.Store(r.URL.Query().Get("days"))
		bars := make([]model.PriceBar, 30)
		for i := range bars {
			c := float64(10 + i)
			bars[i] = model.PriceBar{Date: fmt.Sprintf("2026-01-%02d", i+1), Open: c, Close: c, High: c + 1, Low: c - 1}
		}
		json.NewEncoder(w).Encode(bars)
	})
	mux.HandleFunc("POST /api/v1/stocks/{code}/analyze", func(w http.ResponseWriter, r *http.Request) {
		b.analyses.Add(1)
		json.NewEncoder(w).Encode(model.AnalysisReport{
			Code:           r.PathValue("code"),
			Name:           "贵州茅台",
			OverallScore:   8.2,
			RiskLevel:      "low",
			Recommendation: "hold",
			Summary:        "steady cash flow",
		})
	})
	mux.HandleFunc("GET /api/v1/stocks/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"message":"ok","data":[{"stock_code":"600519","stock_name":"贵州茅台","price":1500,"pct_change":1.25}]}`))
	})
	return mux
}

type testApp struct {
	*app
	out     *bytes.Buffer
	backend *fakeBackend
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	b := &fakeBackend{}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	kv := memory.New()
	kv.Set(context.Background(), model.KeyAccessToken, "a1")
	h, err := search.LoadHistory(context.Background(), kv)
	assert.NoError(t, err)

	out := &bytes.Buffer{}
	a := &app{
		client:     apiclient.New(apiclient.Config{BaseURL: srv.URL + "/api/v1"}, kv),
		history:    h,
		disclaimer: prefs.NewDisclaimer(kv),
		specs:      indicator.DefaultSpecs,
		limit:      8,
		out:        out,
		now:        func() time.Time { return time.UnixMilli(1767225600000) },
	}
	return testApp{app: a, out: out, backend: b}
}

func TestAnalyze_RequiresDisclaimer(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	err := ta.run(ctx, []string{"analyze", "600519"})
	assert.True(t, errors.Is(err, errDisclaimer))
	assert.Equal(t, int32(0), ta.backend.analyses.Load())

	assert.NoError(t, ta.run(ctx, []string{"disclaimer", "accept"}))
	assert.NoError(t, ta.run(ctx, []string{"analyze", "600519"}))
	assert.Equal(t, int32(1), ta.backend.analyses.Load())
	assert.True(t, strings.Contains(ta.out.String(), "steady cash flow"))
	assert.Equal(t, []string{"600519"}, ta.history.List())

	ta.out.Reset()
	assert.NoError(t, ta.run(ctx, []string{"disclaimer", "status"}))
	assert.True(t, strings.HasPrefix(ta.out.String(), "risk disclaimer accepted at "))
}

func TestIndicators_PrintsLatestValues(t *testing.T) {
	ta := newTestApp(t)

	assert.NoError(t, ta.run(context.Background(), []string{"indicators", "600519", "-set", "MA_5,RSI_14", "-days", "30"}))
	out := ta.out.String()
	assert.True(t, strings.Contains(out, "600519 2026-01-30 close 39.00 (30 bars)"))
	assert.True(t, strings.Contains(out, "MA_5    37.00"))
	assert.True(t, strings.Contains(out, "RSI_14  99.00"))
	assert.Equal(t, "30", ta.backend.lastDays.Load().(string))
}

func TestIndicators_JSON(t *testing.T) {
	ta := newTestApp(t)

	assert.NoError(t, ta.run(context.Background(), []string{"indicators", "-json", "-set", "MA_5", "600519"}))
	var got struct {
		Lines map[string][]*float64 `json:"lines"`
	}
	assert.NoError(t, json.Unmarshal(ta.out.Bytes(), &got))
	assert.Equal(t, 30, len(got.Lines["MA_5"]))
}

func TestSearch_AndHistory(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	assert.NoError(t, ta.run(ctx, []string{"search", "600"}))
	assert.True(t, strings.Contains(ta.out.String(), "600519"))
	assert.True(t, strings.Contains(ta.out.String(), "+1.25"))

	ta.out.Reset()
	assert.NoError(t, ta.run(ctx, []string{"search"}))
	assert.Equal(t, "no recent searches\n", ta.out.String())

	assert.NoError(t, ta.history.Add(ctx, "000001"))
	ta.out.Reset()
	assert.NoError(t, ta.run(ctx, []string{"history"}))
	assert.Equal(t, "000001\n", ta.out.String())

	assert.NoError(t, ta.run(ctx, []string{"history", "clear"}))
	assert.Equal(t, 0, len(ta.history.List()))
}

func TestRun_Errors(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	assert.Error(t, ta.run(ctx, nil))
	assert.Error(t, ta.run(ctx, []string{"frobnicate"}))
	assert.Error(t, ta.run(ctx, []string{"report"}))
	assert.Error(t, ta.run(ctx, []string{"watchlist", "add"}))
	assert.Error(t, ta.run(ctx, []string{"history", "wipe"}))
	assert.Error(t, ta.run(ctx, []string{"indicators", "600519", "-set", "FOO_1"}))
}

func TestParse_FlagsAfterPositionals(t *testing.T) {
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	days := fs.Int("days", 120, "")
	period := fs.String("period", "1d", "")

	pos, err := parse(fs, []string{"600519", "-days", "30", "extra", "-period", "1w"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"600519", "extra"}, pos)
	assert.Equal(t, 30, *days)
	assert.Equal(t, "1w", *period)
}
