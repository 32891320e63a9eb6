package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lojaops/gerencial-vendas/internal/store"
)

// initStore opens the configured store and brings its schema up to date.
func initStore(ctx context.Context) (store.Persister, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, zap.L())
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.EnsureSchema(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "ensure schema")
	}
	return st, nil
}
