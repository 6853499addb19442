package indicator

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestParseSpecs(t *testing.T) {
	specs, err := ParseSpecs("ma_5, RSI_14,MACD,kdj,BOLL_20,MA_5")
	assert.NoError(t, err)
	assert.Equal(t, []Spec{
		{Type: TypeMA, Period: 5},
		{Type: TypeRSI, Period: 14},
		{Type: TypeMACD},
		{Type: TypeKDJ},
		{Type: TypeBOLL, Period: 20},
	}, specs)

	specs, err = ParseSpecs("")
	assert.NoError(t, err)
	assert.Equal(t, len(DefaultSpecs), len(specs))

	for _, bad := range []string{"MA", "MACD_12", "FOO_3", "RSI_x", "EMA_0", " , "} {
		if _, err := ParseSpecs(bad); err == nil {
			t.Errorf("ParseSpecs(%q): expected error", bad)
		}
	}
}

func TestParseSpecs_DefaultsAreACopy(t *testing.T) {
	want := DefaultSpecs[0]

	specs, err := ParseSpecs("")
	assert.NoError(t, err)
	specs[0] = Spec{Type: TypeRSI, Period: 6}
	assert.Equal(t, want, DefaultSpecs[0])

	e := NewEngine(nil)
	e.Specs()[0] = Spec{Type: TypeEMA, Period: 3}
	assert.Equal(t, want, DefaultSpecs[0])
}

func TestSpecName(t *testing.T) {
	assert.Equal(t, "MA_20", Spec{Type: TypeMA, Period: 20}.Name())
	assert.Equal(t, "MACD", Spec{Type: TypeMACD, Period: 12}.Name())
	assert.Equal(t, "BOLL_20", Spec{Type: TypeBOLL, Period: 20}.Name())
}

func TestEngine_DefaultSpecs(t *testing.T) {
	calls := 0
	engine := NewEngine(nil)
	engine.Observe = func(d time.Duration) {
		if d < 0 {
			t.Errorf("negative compute duration %v", d)
		}
		calls++
	}

	bars := wave(70)
	res := engine.Compute(bars)

	assert.Equal(t, 1, calls)
	assert.Equal(t, len(bars), len(res.Dates))
	for _, name := range []string{"MA_5", "MA_10", "MA_20", "MA_60", "RSI_14"} {
		line, ok := res.Lines[name]
		if !ok {
			t.Fatalf("missing line %s", name)
		}
		assert.Equal(t, len(bars), len(line))
	}
	assert.NotNil(t, res.MACD)
	assert.NotNil(t, res.KDJ)
	_, ok := res.Bollinger["BOLL_20"]
	assert.True(t, ok)
}

func TestEngine_EMALineHasNoWarmup(t *testing.T) {
	engine := NewEngine([]Spec{{Type: TypeEMA, Period: 12}})
	res := engine.Compute(wave(5))
	line := res.Lines["EMA_12"]
	assert.Equal(t, 5, len(line))
	for i, v := range line {
		if !v.Valid {
			t.Errorf("EMA_12[%d] unexpectedly null", i)
		}
	}
}

func TestResult_JSONUsesNullForWarmup(t *testing.T) {
	engine := NewEngine([]Spec{{Type: TypeMA, Period: 3}})
	res := engine.Compute(barsOf(1, 2, 3))

	b, err := json.Marshal(res)
	assert.NoError(t, err)
	if !strings.Contains(string(b), `"MA_3":[null,null,2]`) {
		t.Errorf("unexpected JSON: %s", b)
	}

	var back Result
	assert.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, res.Lines["MA_3"], back.Lines["MA_3"])
}
