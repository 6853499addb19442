package indicator

import (
	"math"

	"stockdash/internal/model"
)

// Bollinger defaults.
const (
	DefaultBollPeriod     = 20
	DefaultBollMultiplier = 2.0
)

// BollingerResult holds the three bands.
type BollingerResult struct {
	Mid   Series `json:"mid"`
	Upper Series `json:"upper"`
	Lower Series `json:"lower"`
}

// Bollinger computes Bollinger Bands: mid is the period mean of close and the
// bands are mid ± multiplier*σ, where σ is the population standard deviation
// (divided by period, not period-1) of the same window. Values are rounded to
// 2 decimals; the first period-1 points are null.
func Bollinger(bars []model.PriceBar, period int, multiplier float64) BollingerResult {
	res := BollingerResult{
		Mid:   make(Series, len(bars)),
		Upper: make(Series, len(bars)),
		Lower: make(Series, len(bars)),
	}
	if period <= 0 {
		return res
	}

	p := float64(period)
	for i := period - 1; i < len(bars); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += bars[j].Close
		}
		mean := sum / p

		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := bars[j].Close - mean
			variance += d * d
		}
		std := math.Sqrt(variance / p)

		res.Mid[i] = Some(round(mean, 2))
		res.Upper[i] = Some(round(mean+multiplier*std, 2))
		res.Lower[i] = Some(round(mean-multiplier*std, 2))
	}
	return res
}
