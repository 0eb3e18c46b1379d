package engine

import (
	"context"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/Anhbaza/Bot-Binance/pkg/logger"
)

// monitor следит за открытыми позициями. Биржевой OCO — первая линия
// защиты, локальная проверка уровней дублирует её на случай, когда
// ноги сняты или не исполнились.
func (e *Engine) monitor(ctx context.Context) {
	ticker := time.NewTicker(e.set.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.checkEntries(ctx)
			e.checkPositions(ctx)
		}
	}
}

// checkEntries опрашивает статусы неисполненных входов. Исполненный
// вход переходит под наблюдение по уровням; мёртвый или просроченный
// снимается вместе с OCO.
func (e *Engine) checkEntries(ctx context.Context) {
	now := time.Now()
	for id, deadline := range e.pendingSnapshot() {
		t, ok := e.ledger.Get(id)
		if !ok {
			e.clearPending(id)
			continue
		}

		ord, err := e.gateway.OrderStatus(ctx, t.Symbol, t.OrderID)
		if err != nil {
			logger.Error("[MONITOR] %s: статус входа %s: %v", t.Symbol, t.OrderID, err)
			continue
		}

		switch {
		case entryFilled(ord.Status):
			e.clearPending(id)
			logger.Info("[MONITOR] %s вход %s исполнен", t.Symbol, t.OrderID)
		case entryDead(ord.Status):
			logger.Info("[MONITOR] %s вход %s в статусе %s", t.Symbol, t.OrderID, ord.Status)
			e.cancelUnfilled(ctx, id)
		case now.After(deadline):
			logger.Info("[MONITOR] %s вход %s не исполнен за отведённое время", t.Symbol, t.OrderID)
			e.cancelUnfilled(ctx, id)
		}
	}
}

func (e *Engine) checkPositions(ctx context.Context) {
	for _, t := range e.ledger.Active() {
		// пока вход не исполнен, позиции нет — уровни не проверяем
		if e.entryPending(t.ID) {
			continue
		}

		price, err := e.currentPrice(ctx, t.Symbol)
		if err != nil {
			logger.Error("[MONITOR] %s: цена недоступна: %v", t.Symbol, err)
			continue
		}

		e.ledger.MarkPrice(t.ID, price)

		if reason, hit := levelHit(t, price); hit {
			logger.Info("[MONITOR] %s пробит уровень %s @ %.8g", t.Symbol, reason, price)
			e.closeTrade(ctx, t.ID, exitLevel(t, reason), reason)
		}
	}
}

// levelHit проверяет пересечение стопа и тейка по последней цене.
// Стоп проверяется первым: при пробое обоих уровней одним баром
// консервативно считаем стоп.
func levelHit(t models.Trade, price float64) (models.CloseReason, bool) {
	switch t.Direction {
	case models.DirectionLong:
		if price <= t.StopLoss {
			return models.CloseStopLoss, true
		}
		if price >= t.TakeProfit {
			return models.CloseTakeProfit, true
		}
	case models.DirectionShort:
		if price >= t.StopLoss {
			return models.CloseStopLoss, true
		}
		if price <= t.TakeProfit {
			return models.CloseTakeProfit, true
		}
	}
	return "", false
}

// Выход фиксируем по цене уровня: биржевой OCO исполняет ноги по
// лимитным ценам, локальная цена может проскочить дальше.
func exitLevel(t models.Trade, reason models.CloseReason) float64 {
	if reason == models.CloseStopLoss {
		return t.StopLoss
	}
	return t.TakeProfit
}
