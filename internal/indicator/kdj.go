package indicator

import (
	"math"

	"stockdash/internal/model"
)

// KDJ defaults.
const (
	DefaultKDJN  = 9
	DefaultKDJM1 = 3
	DefaultKDJM2 = 3
)

// KDJResult holds the K, D and J lines.
type KDJResult struct {
	K Series `json:"k"`
	D Series `json:"d"`
	J Series `json:"j"`
}

// KDJ computes the stochastic K/D/J lines over an n-bar high/low window.
//
// RSV = (close-low_n)/(high_n-low_n)*100, or 50 when the window is flat.
// K and D are smoothed recursively from 50:
//
//	K = (2/m1)*prevK + (1/m1)*RSV
//	D = (2/m2)*prevD + (1/m2)*K
//	J = 3K - 2D
//
// Each line is rounded to 2 decimals and the rounded K/D carry forward.
// The first n-1 points are null.
func KDJ(bars []model.PriceBar, n, m1, m2 int) KDJResult {
	res := KDJResult{
		K: make(Series, len(bars)),
		D: make(Series, len(bars)),
		J: make(Series, len(bars)),
	}
	if n <= 0 || m1 <= 0 || m2 <= 0 {
		return res
	}

	fm1, fm2 := float64(m1), float64(m2)
	prevK, prevD := 50.0, 50.0
	for i := n - 1; i < len(bars); i++ {
		high, low := math.Inf(-1), math.Inf(1)
		for j := i - n + 1; j <= i; j++ {
			if bars[j].High > high {
				high = bars[j].High
			}
			if bars[j].Low < low {
				low = bars[j].Low
			}
		}

		rsv := 50.0
		if high != low {
			rsv = (bars[i].Close - low) / (high - low) * 100
		}

		k := round((2/fm1)*prevK+(1/fm1)*rsv, 2)
		d := round((2/fm2)*prevD+(1/fm2)*k, 2)
		j := round(3*k-2*d, 2)

		res.K[i], res.D[i], res.J[i] = Some(k), Some(d), Some(j)
		prevK, prevD = k, d
	}
	return res
}
