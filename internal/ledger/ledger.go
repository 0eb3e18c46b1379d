package ledger

import (
	"math"
	"sync"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/models"
)

// Ledger — журнал сделок в памяти: открытые позиции и история закрытых.
// Все методы потокобезопасны, сканер и монитор ходят сюда параллельно.
type Ledger struct {
	mu     sync.RWMutex
	active map[string]*models.Trade // по ID сделки
	closed []models.Trade

	riskFreeRate float64 // на сделку, для Шарпа
}

func New(riskFreeRate float64) *Ledger {
	return &Ledger{
		active:       make(map[string]*models.Trade),
		riskFreeRate: riskFreeRate,
	}
}

func (l *Ledger) Add(t models.Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := t
	l.active[t.ID] = &cp
}

func (l *Ledger) Get(id string) (models.Trade, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.active[id]
	if !ok {
		return models.Trade{}, false
	}
	return *t, true
}

// ActiveBySymbol возвращает открытую сделку по паре, если есть.
func (l *Ledger) ActiveBySymbol(symbol string) (models.Trade, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.active {
		if t.Symbol == symbol {
			return *t, true
		}
	}
	return models.Trade{}, false
}

func (l *Ledger) Active() []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Trade, 0, len(l.active))
	for _, t := range l.active {
		out = append(out, *t)
	}
	return out
}

func (l *Ledger) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.active)
}

// MarkPrice обновляет нереализованный PnL по текущей цене.
func (l *Ledger) MarkPrice(id string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.active[id]; ok {
		t.UnrealizedPnL = t.PnL(price)
	}
}

// Close переносит сделку в историю. Повторный вызов по тому же ID
// ничего не делает и возвращает false.
func (l *Ledger) Close(id string, exitPrice float64, reason models.CloseReason, at time.Time) (models.Trade, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.active[id]
	if !ok {
		return models.Trade{}, false
	}
	delete(l.active, id)

	t.Status = models.TradeClosed
	t.ExitPrice = exitPrice
	t.RealizedPnL = t.PnL(exitPrice)
	t.UnrealizedPnL = 0
	t.CloseReason = reason
	t.ClosedAt = at

	l.closed = append(l.closed, *t)
	return *t, true
}

// Cancel убирает сделку без записи результата (вход не состоялся).
func (l *Ledger) Cancel(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, id)
}

func (l *Ledger) Closed() []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Trade(nil), l.closed...)
}

// Stats считает агрегаты по закрытым сделкам в хронологическом порядке.
func (l *Ledger) Stats() models.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var s models.Stats
	s.TotalTrades = len(l.closed)
	if s.TotalTrades == 0 {
		return s
	}

	var sumWin, sumLoss float64
	returns := make([]float64, 0, len(l.closed))
	for _, t := range l.closed {
		pnl := t.RealizedPnL
		s.TotalPnL += pnl
		returns = append(returns, t.ReturnPct())
		if pnl > 0 {
			s.Wins++
			sumWin += pnl
		} else if pnl < 0 {
			s.Losses++
			sumLoss += -pnl
		}
	}

	s.WinRate = float64(s.Wins) / float64(s.TotalTrades) * 100
	if s.Wins > 0 {
		s.AvgWin = sumWin / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = sumLoss / float64(s.Losses)
	}
	if sumLoss > 0 {
		s.ProfitFactor = sumWin / sumLoss
	} else if sumWin > 0 {
		s.ProfitFactor = math.Inf(1)
	}
	s.MaxDrawdown = maxDrawdown(l.closed)
	s.Sharpe = sharpe(returns, l.riskFreeRate)
	return s
}

// maxDrawdown — максимальная просадка кривой накопленного PnL от пика.
func maxDrawdown(closed []models.Trade) float64 {
	var equity, peak, maxDD float64
	for _, t := range closed {
		equity += t.RealizedPnL
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// sharpe по доходностям на сделку; без годовой нормировки.
func sharpe(returns []float64, riskFree float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return (mean - riskFree) / std
}
