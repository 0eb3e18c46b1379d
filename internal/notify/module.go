package notify

import (
	"context"

	"go.uber.org/fx"

	"github.com/Anhbaza/Bot-Binance/internal/modules/config"
	"github.com/Anhbaza/Bot-Binance/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(newNotifier),
		fx.Invoke(startTelegram),
	)
}

// Без токена работаем со stdout-заглушкой.
func newNotifier(cfg *config.Config, sink CommandSink, view TradeView) (Notifier, error) {
	if cfg.Telegram.Token == "" {
		logger.Info("[NOTIFY] telegram token не задан, уведомления в stdout")
		return NewStdout(), nil
	}
	return NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, sink, view)
}

func startTelegram(lc fx.Lifecycle, n Notifier) {
	tg, ok := n.(*Telegram)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return tg.Start(ctx)
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
