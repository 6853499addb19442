package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"

	"stockdash/internal/markethours"
	"stockdash/internal/model"
)

type fakeSource struct {
	mu        sync.Mutex
	overviews int
	failKLine map[string]bool
	err       error
}

func (f *fakeSource) Overview(ctx context.Context) (*model.MarketOverview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.overviews++
	return &model.MarketOverview{Indices: []model.MarketIndex{{Code: "000001", Name: "SSE Composite", Price: 3300}}}, nil
}

func (f *fakeSource) Watchlist(ctx context.Context) ([]model.WatchlistItem, error) {
	return []model.WatchlistItem{{Code: "600519"}, {Code: "000858"}}, nil
}

func (f *fakeSource) KLine(ctx context.Context, code string, q model.KLineQuery) ([]model.PriceBar, error) {
	if f.failKLine[code] {
		return nil, errors.New("kline unavailable")
	}
	return []model.PriceBar{{Date: "2026-03-02", Close: 10}}, nil
}

type fakeBars struct {
	mu    sync.Mutex
	saved map[string][]model.PriceBar
}

func (b *fakeBars) SaveBars(ctx context.Context, code, period string, bars []model.PriceBar) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved[period+":"+code] = bars
	return nil
}

func (b *fakeBars) LoadBars(ctx context.Context, code, period string) ([]model.PriceBar, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saved[period+":"+code], nil
}

func TestRunNow_WarmsOverviewAndBars(t *testing.T) {
	src := &fakeSource{failKLine: map[string]bool{"000858": true}}
	bars := &fakeBars{saved: map[string][]model.PriceBar{}}
	var warmedAt time.Time
	s := New(context.Background(), src, Options{Bars: bars, OnWarm: func(t time.Time) { warmedAt = t }})

	_, _, ok := s.Overview()
	assert.False(t, ok)

	assert.NoError(t, s.RunNow())
	ov, at, ok := s.Overview()
	assert.True(t, ok)
	assert.Equal(t, "SSE Composite", ov.Indices[0].Name)
	assert.True(t, at.Equal(warmedAt))

	assert.Equal(t, 1, len(bars.saved))
	assert.Equal(t, 1, len(bars.saved["1d.120:600519"]))
}

func TestWarmTask_SkipsOutsideSession(t *testing.T) {
	src := &fakeSource{}
	s := New(context.Background(), src, Options{})

	s.now = func() time.Time { return time.Date(2026, 3, 7, 10, 0, 0, 0, markethours.CST) } // Saturday
	s.warmTask()
	assert.Equal(t, 0, src.overviews)

	s.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, markethours.CST) }
	s.warmTask()
	assert.Equal(t, 1, src.overviews)
}

func TestRunNow_KeepsPreviousOverviewOnError(t *testing.T) {
	src := &fakeSource{}
	s := New(context.Background(), src, Options{})
	assert.NoError(t, s.RunNow())

	src.err = errors.New("backend down")
	assert.Error(t, s.RunNow())
	_, _, ok := s.Overview()
	assert.True(t, ok)
}

func TestRegister(t *testing.T) {
	s := New(context.Background(), &fakeSource{}, Options{})
	assert.NoError(t, s.Register("0 */5 * * * 1-5"))
	assert.Error(t, s.Register("every five minutes"))
	assert.Equal(t, 1, len(s.Cron.Entries()))
}

func TestWarmTask_ReportsFailure(t *testing.T) {
	boom := errors.New("backend down")
	src := &fakeSource{err: boom}
	var got []error
	s := New(context.Background(), src, Options{OnError: func(err error) { got = append(got, err) }})
	s.now = func() time.Time { return time.Date(2026, 3, 2, 14, 0, 0, 0, markethours.CST) }

	s.warmTask()
	assert.Equal(t, 1, len(got))
	assert.True(t, errors.Is(got[0], boom))

	s.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, markethours.CST) } // lunch break
	s.warmTask()
	assert.Equal(t, 1, len(got))
}
