package models

import "time"

type TradeStatus string

const (
	TradeOpen      TradeStatus = "OPEN"
	TradeClosed    TradeStatus = "CLOSED"
	TradeCancelled TradeStatus = "CANCELLED"
)

type CloseReason string

const (
	CloseTakeProfit CloseReason = "TAKE_PROFIT"
	CloseStopLoss   CloseReason = "STOP_LOSS"
	CloseManual     CloseReason = "MANUAL"
	CloseShutdown   CloseReason = "SHUTDOWN"
	CloseError      CloseReason = "ERROR"
)

// Trade — позиция, открытая по сигналу. Мутируется только движком:
// на тиках (UnrealizedPnL) и при закрытии.
type Trade struct {
	ID        string
	Symbol    string
	Direction Direction

	EntryPrice float64
	Quantity   float64
	StopLoss   float64
	TakeProfit float64

	Status TradeStatus

	// ссылки на ордера гейтвея, сами ордера трейд не хранит
	OrderID   string
	BracketID string

	OpenedAt time.Time
	ClosedAt time.Time

	ExitPrice     float64
	RealizedPnL   float64
	UnrealizedPnL float64
	CloseReason   CloseReason
}

// PnL считает реализованный результат по цене выхода.
func (t Trade) PnL(exit float64) float64 {
	sign := 1.0
	if t.Direction == DirectionShort {
		sign = -1.0
	}
	return (exit - t.EntryPrice) * t.Quantity * sign
}

// ReturnPct — результат сделки в процентах от вложенного ноционала.
func (t Trade) ReturnPct() float64 {
	notional := t.EntryPrice * t.Quantity
	if notional <= 0 {
		return 0
	}
	return t.RealizedPnL / notional * 100
}
