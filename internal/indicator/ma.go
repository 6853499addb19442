package indicator

import "stockdash/internal/model"

// Moving average presets drawn on the kline chart.
var MAPeriods = []int{5, 10, 20, 60}

// MA returns the simple moving average of close over period bars, rounded to
// 2 decimals. The first period-1 points are null; a non-positive period
// yields an all-null series.
func MA(bars []model.PriceBar, period int) Series {
	out := make(Series, len(bars))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(bars); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += bars[j].Close
		}
		out[i] = Some(round(sum/float64(period), 2))
	}
	return out
}
