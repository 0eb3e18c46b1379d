package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/models"
)

func openTrade(id, symbol string, dir models.Direction, entry, qty float64) models.Trade {
	return models.Trade{
		ID:         id,
		Symbol:     symbol,
		Direction:  dir,
		EntryPrice: entry,
		Quantity:   qty,
		Status:     models.TradeOpen,
		OpenedAt:   time.Now(),
	}
}

func TestLedger_AddCloseLifecycle(t *testing.T) {
	l := New(0)
	l.Add(openTrade("t1", "BTCUSDT", models.DirectionLong, 100, 10))

	if got := l.ActiveCount(); got != 1 {
		t.Fatalf("ActiveCount = %d, want 1", got)
	}
	if _, ok := l.ActiveBySymbol("BTCUSDT"); !ok {
		t.Fatal("ActiveBySymbol: trade not found")
	}

	closed, ok := l.Close("t1", 102, models.CloseTakeProfit, time.Now())
	if !ok {
		t.Fatal("Close returned false")
	}
	if closed.RealizedPnL != 20 {
		t.Errorf("RealizedPnL = %v, want 20", closed.RealizedPnL)
	}
	if closed.Status != models.TradeClosed {
		t.Errorf("Status = %v, want CLOSED", closed.Status)
	}
	if closed.CloseReason != models.CloseTakeProfit {
		t.Errorf("CloseReason = %v, want TAKE_PROFIT", closed.CloseReason)
	}
	if got := l.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after close = %d, want 0", got)
	}

	// повторное закрытие — no-op
	if _, ok := l.Close("t1", 102, models.CloseManual, time.Now()); ok {
		t.Error("second Close returned true, want false")
	}
	if got := len(l.Closed()); got != 1 {
		t.Errorf("len(Closed) = %d, want 1", got)
	}
}

func TestLedger_MarkPrice(t *testing.T) {
	l := New(0)
	l.Add(openTrade("t1", "ETHUSDT", models.DirectionShort, 2000, 0.5))

	l.MarkPrice("t1", 1980)
	tr, ok := l.Get("t1")
	if !ok {
		t.Fatal("Get: trade not found")
	}
	// шорт: падение цены даёт прибыль
	if tr.UnrealizedPnL != 10 {
		t.Errorf("UnrealizedPnL = %v, want 10", tr.UnrealizedPnL)
	}
}

func TestLedger_Stats(t *testing.T) {
	l := New(0)
	now := time.Now()

	// +20, -10, +30
	l.Add(openTrade("t1", "AUSDT", models.DirectionLong, 100, 10))
	l.Close("t1", 102, models.CloseTakeProfit, now)
	l.Add(openTrade("t2", "BUSDT", models.DirectionLong, 100, 10))
	l.Close("t2", 99, models.CloseStopLoss, now)
	l.Add(openTrade("t3", "CUSDT", models.DirectionShort, 100, 10))
	l.Close("t3", 97, models.CloseTakeProfit, now)

	s := l.Stats()
	if s.TotalTrades != 3 {
		t.Fatalf("TotalTrades = %d, want 3", s.TotalTrades)
	}
	if s.Wins != 2 || s.Losses != 1 {
		t.Errorf("Wins/Losses = %d/%d, want 2/1", s.Wins, s.Losses)
	}
	if math.Abs(s.WinRate-66.6666) > 0.01 {
		t.Errorf("WinRate = %v, want ~66.67", s.WinRate)
	}
	if s.TotalPnL != 40 {
		t.Errorf("TotalPnL = %v, want 40", s.TotalPnL)
	}
	if s.AvgWin != 25 {
		t.Errorf("AvgWin = %v, want 25", s.AvgWin)
	}
	if s.AvgLoss != 10 {
		t.Errorf("AvgLoss = %v, want 10", s.AvgLoss)
	}
	if s.ProfitFactor != 5 {
		t.Errorf("ProfitFactor = %v, want 5", s.ProfitFactor)
	}
	// пик после t1 = 20, после t2 просадка до 10
	if s.MaxDrawdown != 10 {
		t.Errorf("MaxDrawdown = %v, want 10", s.MaxDrawdown)
	}
}

func TestLedger_StatsEmpty(t *testing.T) {
	s := New(0).Stats()
	if s.TotalTrades != 0 || s.TotalPnL != 0 || s.Sharpe != 0 {
		t.Errorf("empty stats not zero: %+v", s)
	}
}

func TestLedger_StatsAllWins(t *testing.T) {
	l := New(0)
	now := time.Now()
	l.Add(openTrade("t1", "AUSDT", models.DirectionLong, 100, 1))
	l.Close("t1", 110, models.CloseTakeProfit, now)
	l.Add(openTrade("t2", "BUSDT", models.DirectionLong, 100, 1))
	l.Close("t2", 105, models.CloseTakeProfit, now)

	s := l.Stats()
	if !math.IsInf(s.ProfitFactor, 1) {
		t.Errorf("ProfitFactor = %v, want +Inf", s.ProfitFactor)
	}
	if s.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v, want 0", s.MaxDrawdown)
	}
	// доходности 10% и 5%: mean 7.5, std 2.5
	if math.Abs(s.Sharpe-3) > 1e-9 {
		t.Errorf("Sharpe = %v, want 3", s.Sharpe)
	}
}
