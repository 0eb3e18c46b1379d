package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"github.com/Anhbaza/Bot-Binance/internal/engine"
	"github.com/Anhbaza/Bot-Binance/internal/exchange"
	"github.com/Anhbaza/Bot-Binance/internal/ledger"
	"github.com/Anhbaza/Bot-Binance/internal/modules/config"
	"github.com/Anhbaza/Bot-Binance/internal/modules/metrics"
	"github.com/Anhbaza/Bot-Binance/internal/modules/postgres"
	"github.com/Anhbaza/Bot-Binance/internal/notify"
	"github.com/Anhbaza/Bot-Binance/internal/scanner"
	"github.com/Anhbaza/Bot-Binance/internal/store"
	"github.com/Anhbaza/Bot-Binance/pkg/logger"
	"github.com/Anhbaza/Bot-Binance/pkg/tracing"
)

const serviceName = "bot-binance"

func main() {
	logger.SetServiceName(serviceName)
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	tracing.SetServiceName(serviceName)

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			// связки для нотифайера, чтобы не тянуть движок в notify
			func(q *engine.Queue) notify.CommandSink { return q },
			func(l *ledger.Ledger) notify.TradeView { return l },
		),
		fx.Invoke(initTracer),
		config.Module(),
		postgres.Module(),
		metrics.Module(),
		exchange.Module(),
		ledger.Module(),
		store.Module(),
		notify.Module(),
		engine.Module(),
		scanner.Module(),
	)
	app.Run()
}

func initTracer(lc fx.Lifecycle, cfg *config.Config) {
	if cfg.Jaeger.Host == "" {
		return
	}
	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Jaeger.Host,
		Port: cfg.Jaeger.Port,
	})
	if err != nil {
		logger.Error("[TRACING] init: %v", err)
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			return nil
		},
	})
}
