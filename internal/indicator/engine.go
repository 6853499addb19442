package indicator

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"stockdash/internal/model"
)

// Indicator types understood by the engine.
const (
	TypeMA   = "MA"
	TypeEMA  = "EMA"
	TypeMACD = "MACD"
	TypeRSI  = "RSI"
	TypeKDJ  = "KDJ"
	TypeBOLL = "BOLL"
)

// Spec specifies a single indicator to compute. Period is ignored for MACD
// and KDJ, which always use the chart defaults.
type Spec struct {
	Type   string
	Period int
}

// Name returns the spec name used as the result key, e.g. "MA_20", "MACD".
func (s Spec) Name() string {
	switch s.Type {
	case TypeMACD, TypeKDJ:
		return s.Type
	}
	return s.Type + "_" + strconv.Itoa(s.Period)
}

// DefaultSpecs is the full indicator set rendered on the analysis page.
var DefaultSpecs = []Spec{
	{Type: TypeMA, Period: 5},
	{Type: TypeMA, Period: 10},
	{Type: TypeMA, Period: 20},
	{Type: TypeMA, Period: 60},
	{Type: TypeMACD},
	{Type: TypeRSI, Period: DefaultRSIPeriod},
	{Type: TypeKDJ},
	{Type: TypeBOLL, Period: DefaultBollPeriod},
}

// ParseSpecs parses a comma separated list such as "MA_5,RSI_14,MACD".
// An empty string yields a copy of DefaultSpecs.
func ParseSpecs(s string) ([]Spec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return slices.Clone(DefaultSpecs), nil
	}

	var specs []Spec
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		typ, periodStr, hasPeriod := strings.Cut(part, "_")

		spec := Spec{Type: typ}
		switch typ {
		case TypeMACD, TypeKDJ:
			if hasPeriod {
				return nil, fmt.Errorf("indicator %s takes no period", typ)
			}
		case TypeMA, TypeEMA, TypeRSI, TypeBOLL:
			if !hasPeriod {
				return nil, fmt.Errorf("indicator %s requires a period", typ)
			}
			period, err := strconv.Atoi(periodStr)
			if err != nil || period <= 0 {
				return nil, fmt.Errorf("invalid period %q for %s", periodStr, typ)
			}
			spec.Period = period
		default:
			return nil, fmt.Errorf("unknown indicator type: %s", typ)
		}

		if seen[spec.Name()] {
			continue
		}
		seen[spec.Name()] = true
		specs = append(specs, spec)
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("no indicators in %q", s)
	}
	return specs, nil
}

// Result is the computed chart payload for one price history.
type Result struct {
	Dates []string `json:"dates"`
	// Lines holds single-line indicators keyed by spec name (MA_5, EMA_12, RSI_14).
	Lines     map[string]Series          `json:"lines"`
	MACD      *MACDResult                `json:"macd,omitempty"`
	KDJ       *KDJResult                 `json:"kdj,omitempty"`
	Bollinger map[string]BollingerResult `json:"boll,omitempty"`
}

// Engine computes a configured set of indicators over price histories.
// It holds no per-series state and is safe for concurrent use.
type Engine struct {
	specs []Spec

	// Observe, when set, receives the wall time of each Compute call.
	Observe func(time.Duration)
}

// NewEngine creates an indicator engine for the given specs.
func NewEngine(specs []Spec) *Engine {
	if len(specs) == 0 {
		specs = slices.Clone(DefaultSpecs)
	}
	return &Engine{specs: specs}
}

// Specs returns the configured specs.
func (e *Engine) Specs() []Spec { return e.specs }

// Compute runs every configured indicator over bars.
func (e *Engine) Compute(bars []model.PriceBar) Result {
	return e.ComputeSpecs(bars, e.specs)
}

// ComputeSpecs runs the given specs over bars, ignoring the engine's own set.
func (e *Engine) ComputeSpecs(bars []model.PriceBar, specs []Spec) Result {
	start := time.Now()

	res := Result{
		Dates: model.Dates(bars),
		Lines: make(map[string]Series),
	}
	for _, spec := range specs {
		switch spec.Type {
		case TypeMA:
			res.Lines[spec.Name()] = MA(bars, spec.Period)
		case TypeEMA:
			ema := EMA(model.Closes(bars), spec.Period)
			line := make(Series, len(ema))
			for i, v := range ema {
				line[i] = Some(v)
			}
			res.Lines[spec.Name()] = line
		case TypeRSI:
			res.Lines[spec.Name()] = RSI(bars, spec.Period)
		case TypeMACD:
			macd := MACD(bars)
			res.MACD = &macd
		case TypeKDJ:
			kdj := KDJ(bars, DefaultKDJN, DefaultKDJM1, DefaultKDJM2)
			res.KDJ = &kdj
		case TypeBOLL:
			if res.Bollinger == nil {
				res.Bollinger = make(map[string]BollingerResult)
			}
			res.Bollinger[spec.Name()] = Bollinger(bars, spec.Period, DefaultBollMultiplier)
		}
	}

	if e.Observe != nil {
		e.Observe(time.Since(start))
	}
	return res
}
