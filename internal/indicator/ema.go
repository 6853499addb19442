package indicator

// EMA calculates an exponential moving average directly from index 0:
// ema[0] = prices[0], ema[i] = prices[i]*k + ema[i-1]*(1-k), k = 2/(period+1).
// There is no SMA seed and no warm-up, and values are left unrounded; the
// MACD panel depends on this exact recursion.
func EMA(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if len(prices) == 0 {
		return out
	}
	k := 2.0 / float64(period+1)
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = prices[i]*k + out[i-1]*(1-k)
	}
	return out
}
