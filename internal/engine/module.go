package engine

import (
	"context"

	"go.uber.org/fx"

	"github.com/Anhbaza/Bot-Binance/internal/analyzer"
	"github.com/Anhbaza/Bot-Binance/internal/exchange"
	"github.com/Anhbaza/Bot-Binance/internal/ledger"
	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/Anhbaza/Bot-Binance/internal/modules/config"
	"github.com/Anhbaza/Bot-Binance/internal/modules/metrics"
	"github.com/Anhbaza/Bot-Binance/internal/notify"
	"github.com/Anhbaza/Bot-Binance/internal/store"
)

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			func(cfg *config.Config) *Queue { return NewQueue(cfg.CommandQueueMax) },
			func(cfg *config.Config) *analyzer.Gate {
				return analyzer.NewGate(cfg.MinConfidence, cfg.MinRiskReward)
			},
			func(
				cfg *config.Config,
				gate *analyzer.Gate,
				gateway exchange.OrderGateway,
				market exchange.MarketData,
				feed *exchange.PriceFeed,
				ldg *ledger.Ledger,
				st *store.Store,
				notifier notify.Notifier,
				m *metrics.Metrics,
				queue *Queue,
			) *Engine {
				return New(SettingsFromConfig(cfg), gate, gateway, market, feed, ldg, st, notifier, m, queue)
			},
		),
		fx.Invoke(run),
	)
}

func run(lc fx.Lifecycle, e *Engine) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			if err := e.Reconcile(startCtx); err != nil {
				return err
			}
			go e.Run(ctx)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			e.CloseAll(stopCtx, models.CloseShutdown)
			return nil
		},
	})
}
