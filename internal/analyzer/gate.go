package analyzer

import (
	"github.com/pkg/errors"

	"github.com/Anhbaza/Bot-Binance/internal/models"
)

// ErrInvalidSignal — сигнал не прошёл структурную проверку. Это баг
// выше по пайплайну, чинить молча нельзя — только отклонить и показать.
var ErrInvalidSignal = errors.New("invalid signal")

// Gate — последняя проверка сигнала перед движком.
type Gate struct {
	minConfidence float64
	minRiskReward float64
}

func NewGate(minConfidence, minRiskReward float64) *Gate {
	if minRiskReward <= 0 {
		minRiskReward = 2.0
	}
	return &Gate{minConfidence: minConfidence, minRiskReward: minRiskReward}
}

// Validate возвращает ErrInvalidSignal с причиной. Сигнал никогда
// не «ремонтируется».
func (g *Gate) Validate(sig models.Signal) error {
	if sig.Symbol == "" {
		return errors.Wrap(ErrInvalidSignal, "empty symbol")
	}
	if sig.Direction != models.DirectionLong && sig.Direction != models.DirectionShort {
		return errors.Wrapf(ErrInvalidSignal, "unknown direction %q", sig.Direction)
	}
	if sig.EntryPrice <= 0 {
		return errors.Wrapf(ErrInvalidSignal, "entry price %.8f <= 0", sig.EntryPrice)
	}
	if sig.Confidence < g.minConfidence {
		return errors.Wrapf(ErrInvalidSignal, "confidence %.2f below %.2f", sig.Confidence, g.minConfidence)
	}

	switch sig.Direction {
	case models.DirectionLong:
		if !(sig.StopLoss < sig.EntryPrice && sig.EntryPrice < sig.TakeProfit) {
			return errors.Wrapf(ErrInvalidSignal,
				"long levels out of order: sl=%.8f entry=%.8f tp=%.8f",
				sig.StopLoss, sig.EntryPrice, sig.TakeProfit)
		}
	case models.DirectionShort:
		if !(sig.TakeProfit < sig.EntryPrice && sig.EntryPrice < sig.StopLoss) {
			return errors.Wrapf(ErrInvalidSignal,
				"short levels out of order: tp=%.8f entry=%.8f sl=%.8f",
				sig.TakeProfit, sig.EntryPrice, sig.StopLoss)
		}
	}

	if rr := sig.RiskReward(); rr < g.minRiskReward {
		return errors.Wrapf(ErrInvalidSignal, "risk/reward %.2f below %.2f", rr, g.minRiskReward)
	}

	return nil
}
