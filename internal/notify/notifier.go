package notify

import (
	"fmt"
	"log"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/models"
)

// Notifier — пассивный канал событий пайплайна наружу.
// Реализации не должны блокировать вызывающего надолго.
type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)

	SignalFound(sig models.Signal)
	TradeOpened(t models.Trade)
	TradeClosed(t models.Trade)
	ScanSummary(pairs, signals int, took time.Duration)
	Error(context string, err error)
}

func signalText(sig models.Signal) string {
	emoji := "🟢"
	if sig.Direction == models.DirectionShort {
		emoji = "🔴"
	}
	return fmt.Sprintf(
		"%s Сигнал %s %s [%s]\nВход: %.8g\nТейк: %.8g\nСтоп: %.8g\nR:R %.2f | conf %.0f%% | RSI %.1f | vol x%.2f",
		emoji, sig.Direction, sig.Symbol, sig.Timeframe,
		sig.EntryPrice, sig.TakeProfit, sig.StopLoss,
		sig.RiskReward(), sig.Confidence, sig.RSI, sig.VolumeRatio,
	)
}

func openedText(t models.Trade) string {
	return fmt.Sprintf(
		"📈 Открыта %s %s\nВход: %.8g x %.8g\nТейк: %.8g | Стоп: %.8g",
		t.Direction, t.Symbol, t.EntryPrice, t.Quantity, t.TakeProfit, t.StopLoss,
	)
}

func closedText(t models.Trade) string {
	emoji := "✅"
	if t.RealizedPnL < 0 {
		emoji = "❌"
	}
	return fmt.Sprintf(
		"%s Закрыта %s %s (%s)\nВыход: %.8g\nPnL: %.4f USDT (%.2f%%)",
		emoji, t.Direction, t.Symbol, t.CloseReason, t.ExitPrice, t.RealizedPnL, t.ReturnPct(),
	)
}

// Stdout — заглушка для запуска без Telegram, всё в лог.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Send(msg string)                  { log.Println(msg) }
func (s *Stdout) Sendf(format string, args ...any) { log.Printf(format, args...) }

func (s *Stdout) SignalFound(sig models.Signal) { s.Send(signalText(sig)) }
func (s *Stdout) TradeOpened(t models.Trade)    { s.Send(openedText(t)) }
func (s *Stdout) TradeClosed(t models.Trade)    { s.Send(closedText(t)) }

func (s *Stdout) ScanSummary(pairs, signals int, took time.Duration) {
	s.Sendf("скан: %d пар, %d сигналов за %s", pairs, signals, took)
}

func (s *Stdout) Error(context string, err error) {
	s.Sendf("ошибка %s: %v", context, err)
}
