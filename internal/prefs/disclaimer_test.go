package prefs

import (
	"context"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"

	"stockdash/internal/model"
	"stockdash/internal/store/memory"
)

func TestDisclaimer(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	d := NewDisclaimer(kv)

	ok, _, err := d.Accepted(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)

	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	assert.NoError(t, d.Accept(ctx, now))

	raw, _, _ := kv.Get(ctx, model.KeyDisclaimerAccepted)
	assert.Equal(t, "1772443800000", raw)

	ok, at, err := d.Accepted(ctx)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(now))

	assert.NoError(t, d.Revoke(ctx))
	ok, _, _ = d.Accepted(ctx)
	assert.False(t, ok)
}

func TestDisclaimer_NonNumericStillAccepted(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	kv.Set(ctx, model.KeyDisclaimerAccepted, "true")

	ok, at, err := NewDisclaimer(kv).Accepted(ctx)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.IsZero())
}
