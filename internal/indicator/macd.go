package indicator

import "stockdash/internal/model"

// MACD periods used by the chart.
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MACDResult holds the three MACD lines. All are defined from index 0.
type MACDResult struct {
	DIF       []float64 `json:"dif"`
	DEA       []float64 `json:"dea"`
	Histogram []float64 `json:"histogram"`
}

// MACD computes DIF = EMA12-EMA26, DEA = EMA9(DIF) and the histogram
// (DIF-DEA)*2, each rounded to 3 decimals. DEA is smoothed over the rounded DIF.
func MACD(bars []model.PriceBar) MACDResult {
	closes := model.Closes(bars)
	fast := EMA(closes, MACDFast)
	slow := EMA(closes, MACDSlow)

	dif := make([]float64, len(closes))
	for i := range dif {
		dif[i] = round(fast[i]-slow[i], 3)
	}

	dea := EMA(dif, MACDSignal)
	hist := make([]float64, len(closes))
	for i := range dea {
		dea[i] = round(dea[i], 3)
		hist[i] = round((dif[i]-dea[i])*2, 3)
	}

	return MACDResult{DIF: dif, DEA: dea, Histogram: hist}
}
