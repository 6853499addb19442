package indicator

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// exactDigits is enough fractional digits to spell out the exact binary
// value of any price-scale float64 before rounding.
const exactDigits = 40

// round rounds x to places decimal places using the chart's fixed-decimal
// rule: the exact binary value of x is rounded half away from zero. Thus
// 1.005 (stored as 1.00499...) rounds to 1.00 while 0.125 rounds to 0.13.
func round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	d, err := decimal.NewFromString(strconv.FormatFloat(x, 'f', exactDigits, 64))
	if err != nil {
		return x
	}
	return d.Round(places).InexactFloat64()
}
