package storage

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the ConnectionResolver over the "storage_providers" group and closes
// all storage connections on stop.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewConnectionResolver,
		fx.As(new(StorageConnectionResolver)),
		fx.As(fx.Self()),
	)),
	fx.Invoke(func(lc fx.Lifecycle, r *ConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return r.CloseAll()
			},
		})
	}),
)
