package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/storemap/pkg/batch/adapter/database"
)

// Module provides the connection resolver over every DBProvider in the "db_providers" group.
// Concrete providers come from the dialect packages. Open connections are closed on stop.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGormDBConnectionResolver,
		fx.As(new(database.DBConnectionResolver)),
		fx.As(fx.Self()),
	)),
	fx.Invoke(func(lc fx.Lifecycle, r *GormDBConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return r.CloseAll()
			},
		})
	}),
)
