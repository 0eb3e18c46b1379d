package exchange

import (
	"context"

	"github.com/Anhbaza/Bot-Binance/internal/models"
)

// MarketData — то, что ядру нужно от провайдера рыночных данных.
type MarketData interface {
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
	Ticker(ctx context.Context, symbol string) (models.Ticker, error)
	// Tickers — суточная статистика по всем парам одним запросом.
	Tickers(ctx context.Context) ([]models.Ticker, error)
	Instruments(ctx context.Context) ([]models.Instrument, error)
}

// OrderGateway — то, что ядру нужно от биржевого гейтвея ордеров.
type OrderGateway interface {
	PlaceOrder(ctx context.Context, symbol string, side models.OrderSide, typ models.OrderType, qty, price float64) (models.Order, error)
	// PlaceBracket ставит OCO-выход: лимитный тейк + стоп, взаимоотменяемые.
	PlaceBracket(ctx context.Context, symbol string, side models.OrderSide, qty, takeProfit, stopPrice float64) (models.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	CancelAll(ctx context.Context, symbol string) error
	OrderStatus(ctx context.Context, symbol, orderID string) (models.Order, error)
	Balance(ctx context.Context, asset string) (float64, error)
}
