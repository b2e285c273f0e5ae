package store

import (
	"context"

	"github.com/brizzai/mobsq/internal/config"
	"go.uber.org/fx"
)

func newLifecycleStore(lc fx.Lifecycle, cfg *config.StoreConfig) (Store, error) {
	s, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return s.Close()
		},
	})
	return s, nil
}

// Module provides the profile store and closes it on shutdown
var Module = fx.Module("store",
	fx.Provide(newLifecycleStore),
)
