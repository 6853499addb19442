package indicator

import "stockdash/internal/model"

// DefaultRSIPeriod is the RSI lookback drawn on the chart.
const DefaultRSIPeriod = 14

// RSI calculates a windowed Relative Strength Index rounded to 1 decimal.
//
// Unlike Wilder's RSI there is no smoothing: for every index i >= period the
// gains and losses of the trailing period close-to-close deltas are summed
// from scratch, RS = gains/losses (100 when losses is 0) and
// RSI = 100 - 100/(1+RS). Points before index period are null.
func RSI(bars []model.PriceBar, period int) Series {
	out := make(Series, len(bars))
	if period <= 0 {
		return out
	}
	for i := period; i < len(bars); i++ {
		gains, losses := 0.0, 0.0
		for j := i - period + 1; j <= i; j++ {
			diff := bars[j].Close - bars[j-1].Close
			if diff > 0 {
				gains += diff
			} else {
				losses -= diff
			}
		}
		rs := 100.0
		if losses != 0 {
			rs = gains / losses
		}
		out[i] = Some(round(100-100/(1+rs), 1))
	}
	return out
}
