package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"

	"stockdash/internal/model"
	"stockdash/internal/store/memory"
)

func TestHistory_MostRecentFirstDeduplicated(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	h, err := LoadHistory(ctx, kv)
	assert.NoError(t, err)

	for _, k := range []string{"600519", "000001", "600519", "300750"} {
		assert.NoError(t, h.Add(ctx, k))
	}
	want := []string{"300750", "600519", "000001"}
	if diff := cmp.Diff(want, h.List()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	raw, ok, _ := kv.Get(ctx, model.KeySearchHistory)
	assert.True(t, ok)
	assert.Equal(t, `["300750","600519","000001"]`, raw)

	// Survives a reload.
	reloaded, err := LoadHistory(ctx, kv)
	assert.NoError(t, err)
	assert.Equal(t, want, reloaded.List())
}

func TestHistory_Bounded(t *testing.T) {
	ctx := context.Background()
	h, _ := LoadHistory(ctx, memory.New())
	for i := 0; i < 15; i++ {
		assert.NoError(t, h.Add(ctx, fmt.Sprintf("%06d", i)))
	}
	got := h.List()
	assert.Equal(t, MaxHistory, len(got))
	assert.Equal(t, "000014", got[0])
	assert.Equal(t, "000005", got[MaxHistory-1])
}

func TestHistory_ClearAndCorrupt(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	assert.NoError(t, kv.Set(ctx, model.KeySearchHistory, "not json"))

	h, err := LoadHistory(ctx, kv)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(h.List()))

	assert.NoError(t, h.Add(ctx, "600519"))
	assert.NoError(t, h.Clear(ctx))
	assert.Equal(t, 0, len(h.List()))
	_, ok, _ := kv.Get(ctx, model.KeySearchHistory)
	assert.False(t, ok)
}

func TestHistory_StoreFailureKeepsList(t *testing.T) {
	kv := memory.New()
	ctx := context.Background()
	h, err := LoadHistory(ctx, kv)
	assert.NoError(t, err)
	assert.NoError(t, h.Add(ctx, "600519"))

	boom := errors.New("disk full")
	kv.FailWith = boom
	err = h.Add(ctx, "000001")
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, []string{"600519"}, h.List())

	assert.True(t, errors.Is(h.Clear(ctx), boom))
	assert.Equal(t, []string{"600519"}, h.List())
}
