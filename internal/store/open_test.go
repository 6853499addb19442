package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/peterldowns/testy/assert"

	"stockdash/config"
)

func TestOpen_Kinds(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		kind     string
		path     string
		wantBars bool
		wantPing bool
	}{
		{"memory", "", false, false},
		{"file", filepath.Join(dir, "state.json"), false, false},
		{"sqlite", filepath.Join(dir, "stockdash.db"), true, true},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Store.Kind = tc.kind
			cfg.Store.Path = tc.path

			be, err := Open(cfg, nil, nil)
			assert.NoError(t, err)
			defer be.KV.Close()

			assert.Equal(t, tc.kind, be.Kind)
			assert.Equal(t, tc.wantBars, be.Bars != nil)
			assert.Equal(t, tc.wantPing, be.Ping != nil)

			ctx := context.Background()
			assert.NoError(t, be.KV.Set(ctx, "token", "abc"))
			v, ok, err := be.KV.Get(ctx, "token")
			assert.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "abc", v)
			if be.Ping != nil {
				assert.NoError(t, be.Ping(ctx))
			}
		})
	}
}

func TestOpen_UnknownKind(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Kind = "etcd"
	_, err := Open(cfg, nil, nil)
	assert.Error(t, err)
}
