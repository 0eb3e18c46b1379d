package models

import "time"

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Signal — кандидат на сделку от анализатора. Создаётся один раз,
// дальше по пайплайну не мутируется.
type Signal struct {
	Symbol      string
	Timeframe   string
	Direction   Direction
	EntryPrice  float64
	TakeProfit  float64
	StopLoss    float64
	Confidence  float64 // 0..100
	RSI         float64
	VolumeRatio float64
	GeneratedAt time.Time
}

// RiskReward возвращает отношение потенциальной прибыли к риску.
// 0 если риск некорректен (нулевая/отрицательная дистанция до стопа).
func (s Signal) RiskReward() float64 {
	var risk, reward float64
	switch s.Direction {
	case DirectionLong:
		risk = s.EntryPrice - s.StopLoss
		reward = s.TakeProfit - s.EntryPrice
	case DirectionShort:
		risk = s.StopLoss - s.EntryPrice
		reward = s.EntryPrice - s.TakeProfit
	}
	if risk <= 0 || reward <= 0 {
		return 0
	}
	return reward / risk
}
