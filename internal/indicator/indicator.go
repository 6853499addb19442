// Package indicator computes technical indicator series over price history
// for charting.
//
// Every function is pure: it takes an ordered []model.PriceBar (or a plain
// price slice) and returns fresh series of the same length. Indices inside
// an indicator's warm-up window are null. Empty input yields empty output.
// Prices are assumed finite; a NaN close propagates as NaN.
package indicator

import (
	"encoding/json"
	"math"
)

// Value is a single point of an indicator series. Valid is false inside
// the warm-up window.
type Value struct {
	Float float64
	Valid bool
}

// Some returns a valid Value.
func Some(f float64) Value { return Value{Float: f, Valid: true} }

// MarshalJSON encodes null for warm-up points. Non-finite values are also
// encoded as null since JSON has no NaN.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid || math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float)
}

// UnmarshalJSON decodes a number or null.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// Series is an indicator output aligned index-for-index with its input bars.
type Series []Value

// Last returns the most recent point, or an invalid Value for an empty series.
func (s Series) Last() Value {
	if len(s) == 0 {
		return Value{}
	}
	return s[len(s)-1]
}
