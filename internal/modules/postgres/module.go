package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/Anhbaza/Bot-Binance/internal/modules/config"
	"github.com/Anhbaza/Bot-Binance/pkg/db"
)

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				pool, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create pool: %w", err)
				}

				if err := pool.Ping(ctx); err != nil {
					return nil, err
				}

				return db.NewPgTxManager(pool), nil
			},
			func(m *db.PgTxManager) db.TxManager { return m },
		),
	)
}
