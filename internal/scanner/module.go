package scanner

import (
	"context"

	"go.uber.org/fx"

	"github.com/Anhbaza/Bot-Binance/internal/analyzer"
	"github.com/Anhbaza/Bot-Binance/internal/engine"
	"github.com/Anhbaza/Bot-Binance/internal/exchange"
	"github.com/Anhbaza/Bot-Binance/internal/modules/config"
	"github.com/Anhbaza/Bot-Binance/internal/modules/metrics"
	"github.com/Anhbaza/Bot-Binance/internal/notify"
)

func Module() fx.Option {
	return fx.Module("scanner",
		fx.Provide(
			func(cfg *config.Config) *analyzer.Analyzer {
				return analyzer.New(analyzer.SettingsFromConfig(cfg))
			},
			func(
				cfg *config.Config,
				market exchange.MarketData,
				an *analyzer.Analyzer,
				queue *engine.Queue,
				notifier notify.Notifier,
				m *metrics.Metrics,
			) *Scanner {
				return New(SettingsFromConfig(cfg), market, an, queue, notifier, m)
			},
		),
		fx.Invoke(run),
	)
}

func run(lc fx.Lifecycle, s *Scanner) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
