package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stockdash/internal/apiclient"
	"stockdash/internal/indicator"
	"stockdash/internal/logger"
	"stockdash/internal/markethours"
	"stockdash/internal/model"
	"stockdash/internal/search"
)

const (
	defaultPeriod = "1d"
	defaultDays   = 120
	maxDays       = 1000
)

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// writeUpstreamError maps a backend client error onto a gateway response.
func (s *Server) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	var se *apiclient.StatusError
	var ne *apiclient.NetworkError
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.As(err, &se) && se.Status >= 400 && se.Status < 500:
		status = se.Status
	case errors.As(err, &ne) && ne.Timeout():
		status = http.StatusGatewayTimeout
	}
	s.logger.Warn("upstream request failed",
		append(logger.LogWithTrace(r.Context()), "path", r.URL.Path, "status", status, "error", err)...)
	writeError(w, status, err.Error())
}

// parseKLineQuery reads period/days/adjust/start_date/end_date.
func parseKLineQuery(r *http.Request) (model.KLineQuery, error) {
	q := r.URL.Query()
	kq := model.KLineQuery{
		Period:    q.Get("period"),
		Days:      defaultDays,
		Adjust:    q.Get("adjust"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
	if kq.Period == "" {
		kq.Period = defaultPeriod
	}
	if d := q.Get("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n <= 0 || n > maxDays {
			return kq, errors.New("days must be between 1 and " + strconv.Itoa(maxDays))
		}
		kq.Days = n
	}
	return kq, nil
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PathValue("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "stock code is required")
		return
	}
	kq, err := parseKLineQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	specs := s.engine.Specs()
	if set := r.URL.Query().Get("set"); set != "" {
		if specs, err = indicator.ParseSpecs(set); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	bars, cached, err := s.loadBars(r.Context(), code, kq)
	if err != nil {
		s.writeUpstreamError(w, r, err)
		return
	}

	start := time.Now()
	res := s.engine.ComputeSpecs(bars, specs)
	s.computeLatency.Since(start)
	if s.metrics != nil {
		s.metrics.IndicatorsTotal.Add(float64(len(specs)))
	}

	writeJSON(w, http.StatusOK, IndicatorsResponse{
		Code:       code,
		Period:     kq.Period,
		Days:       kq.Days,
		Cached:     cached,
		Bars:       bars,
		Indicators: res,
	})
}

// loadBars serves bars from the cache when the query is cacheable, otherwise
// fetches them and fills the cache.
func (s *Server) loadBars(ctx context.Context, code string, kq model.KLineQuery) ([]model.PriceBar, bool, error) {
	key, cacheable := kq.CacheKey()
	cacheable = cacheable && s.bars != nil

	if cacheable {
		bars, err := s.bars.LoadBars(ctx, code, key)
		switch {
		case err != nil:
			s.logger.Warn("bar cache read failed", "code", code, "period", key, "error", err)
		case bars != nil:
			s.cacheLookup("bars", "hit")
			return bars, true, nil
		}
		s.cacheLookup("bars", "miss")
	}

	start := time.Now()
	bars, err := s.api.KLine(ctx, code, kq)
	s.fetchLatency.Since(start)
	if err != nil {
		return nil, false, err
	}
	if bars == nil {
		bars = []model.PriceBar{}
	}

	if cacheable && len(bars) > 0 {
		if err := s.bars.SaveBars(ctx, code, key, bars); err != nil {
			s.logger.Warn("bar cache write failed", "code", code, "period", key, "error", err)
		}
	}
	return bars, false, nil
}

func (s *Server) cacheLookup(cache, result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(cache, result).Inc()
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))
	if keyword == "" {
		writeJSON(w, http.StatusOK, search.Suggestions{
			Items:       []model.SearchHit{},
			FromHistory: true,
			Recent:      s.recent(),
		})
		return
	}

	limit := s.limit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	hits, err := s.api.Search(r.Context(), keyword, limit)
	if err != nil {
		s.writeUpstreamError(w, r, err)
		return
	}
	if hits == nil {
		hits = []model.SearchHit{}
	}
	writeJSON(w, http.StatusOK, search.Suggestions{Keyword: keyword, Items: hits})
}

func (s *Server) recent() []string {
	if s.history == nil {
		return []string{}
	}
	if list := s.history.List(); list != nil {
		return list
	}
	return []string{}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HistoryResponse{Recent: s.recent()})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if s.history != nil {
		if err := s.history.Clear(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	SetCORS(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if s.overview != nil {
		if ov, at, ok := s.overview.Overview(); ok {
			s.cacheLookup("overview", "hit")
			writeJSON(w, http.StatusOK, OverviewResponse{
				MarketOverview: ov,
				Cached:         true,
				FetchedAt:      at.UTC().Format(time.RFC3339),
			})
			return
		}
		s.cacheLookup("overview", "miss")
	}

	ov, err := s.api.Overview(r.Context())
	if err != nil {
		s.writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OverviewResponse{MarketOverview: ov})
}

func (s *Server) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	st := MarketStatus{
		Phase:    string(markethours.PhaseAt(now)),
		Open:     markethours.IsMarketOpen(now),
		Status:   markethours.StatusString(now),
		NextOpen: markethours.NextOpen(now).Format(time.RFC3339),
	}
	if st.Open {
		st.ClosesAt = markethours.CurrentSessionClose(now).Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collectStats())
}
