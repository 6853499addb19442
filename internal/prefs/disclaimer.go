// Package prefs holds small user preferences persisted in the durable store.
package prefs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"stockdash/internal/model"
)

// Disclaimer tracks acceptance of the investment risk disclaimer. The value
// is the acceptance time in unix milliseconds.
type Disclaimer struct {
	kv model.KVStore
}

func NewDisclaimer(kv model.KVStore) *Disclaimer {
	return &Disclaimer{kv: kv}
}

// Accepted reports whether the disclaimer has been accepted and when.
// Any non-empty value counts as accepted.
func (d *Disclaimer) Accepted(ctx context.Context) (bool, time.Time, error) {
	v, ok, err := d.kv.Get(ctx, model.KeyDisclaimerAccepted)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("read disclaimer: %w", err)
	}
	if !ok || v == "" {
		return false, time.Time{}, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return true, time.Time{}, nil
	}
	return true, time.UnixMilli(ms), nil
}

// Accept records acceptance at now.
func (d *Disclaimer) Accept(ctx context.Context, now time.Time) error {
	if err := d.kv.Set(ctx, model.KeyDisclaimerAccepted, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("accept disclaimer: %w", err)
	}
	return nil
}

// Revoke forgets a previous acceptance.
func (d *Disclaimer) Revoke(ctx context.Context) error {
	return d.kv.Delete(ctx, model.KeyDisclaimerAccepted)
}
