package exchange

import (
	"context"

	"go.uber.org/fx"

	"github.com/Anhbaza/Bot-Binance/internal/modules/config"
)

func Module() fx.Option {
	return fx.Module("exchange",
		fx.Provide(
			newClientFromConfig,
			func(c *Client) MarketData { return c },
			func(c *Client) OrderGateway { return c },
			NewPriceFeed,
		),
		fx.Invoke(runPriceFeed),
	)
}

func newClientFromConfig(cfg *config.Config) *Client {
	return NewClient(
		cfg.Binance.APIKey,
		cfg.Binance.APISecret,
		cfg.Binance.Testnet,
		cfg.ProviderTimeout,
	)
}

func runPriceFeed(lc fx.Lifecycle, feed *PriceFeed) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go feed.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
