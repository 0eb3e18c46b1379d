package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/Anhbaza/Bot-Binance/internal/modules/config"
	"github.com/Anhbaza/Bot-Binance/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(func() *Metrics {
			return New(prometheus.DefaultRegisterer)
		}),
		fx.Invoke(serve),
	)
}

func serve(lc fx.Lifecycle, cfg *config.Config, _ *Metrics) {
	if cfg.Metrics.Addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Info("[METRICS] listen %s", cfg.Metrics.Addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("[METRICS] serve: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
