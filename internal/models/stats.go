package models

// Stats — агрегаты по закрытым сделкам. Всегда пересчитываются
// из леджера, отдельно не мутируются.
type Stats struct {
	TotalTrades  int
	Wins         int
	Losses       int
	WinRate      float64 // проценты
	TotalPnL     float64
	AvgWin       float64
	AvgLoss      float64
	MaxDrawdown  float64 // пик-впадина по кумулятивному PnL, >= 0
	Sharpe       float64
	ProfitFactor float64
}
