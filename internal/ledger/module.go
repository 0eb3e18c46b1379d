package ledger

import (
	"go.uber.org/fx"

	"github.com/Anhbaza/Bot-Binance/internal/modules/config"
)

func Module() fx.Option {
	return fx.Module("ledger",
		fx.Provide(func(cfg *config.Config) *Ledger {
			return New(cfg.RiskFreeRate)
		}),
	)
}
