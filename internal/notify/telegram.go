package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/Anhbaza/Bot-Binance/pkg/logger"
)

// CommandSink принимает команды от пользователя; реализуется движком.
type CommandSink interface {
	Enqueue(cmd models.Command) bool
}

// TradeView — чтение состояния для команд /positions и /stats.
type TradeView interface {
	Active() []models.Trade
	Stats() models.Stats
}

// Telegram — нотифайер + обработка команд управления ботом.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64

	sink  CommandSink
	view  TradeView
	queue chan string
}

func NewTelegram(token string, chatID int64, sink CommandSink, view TradeView) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
		sink:   sink,
		view:   view,
		queue:  make(chan string, 64),
	}, nil
}

// Send кладёт в очередь; отправкой занимается Start, чтобы медленный
// Telegram не тормозил пайплайн.
func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	select {
	case t.queue <- msg:
	default:
		logger.Error("[NOTIFY] очередь переполнена, сообщение потеряно")
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

func (t *Telegram) SignalFound(sig models.Signal) { t.Send(signalText(sig)) }
func (t *Telegram) TradeOpened(tr models.Trade)   { t.Send(openedText(tr)) }
func (t *Telegram) TradeClosed(tr models.Trade)   { t.Send(closedText(tr)) }

func (t *Telegram) ScanSummary(pairs, signals int, took time.Duration) {
	// без сигналов не шумим в чат
	if signals > 0 {
		t.Sendf("🔎 Скан: %d пар, %d сигналов за %s", pairs, signals, took.Round(time.Second))
	}
}

func (t *Telegram) Error(context string, err error) {
	t.Sendf("❗️ Ошибка %s: %v", context, err)
}

// Start: long-polling команд + отправка очереди.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-t.queue:
				_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				t.handleCommand(upd.Message)
			}
		}
	}()
	return nil
}

func (t *Telegram) handleCommand(msg *tgbot.Message) {
	switch msg.Command() {
	case "positions":
		t.sendPositions()
	case "stats":
		t.sendStats()
	case "close":
		symbol := strings.ToUpper(strings.TrimSpace(msg.CommandArguments()))
		if symbol == "" {
			t.Send("Использование: /close SYMBOL")
			return
		}
		if !t.sink.Enqueue(models.CloseTrade{Symbol: symbol, Reason: models.CloseManual}) {
			t.Send("⚠️ Очередь команд переполнена, попробуйте позже")
		}
	case "closeall":
		if !t.sink.Enqueue(models.CloseAll{Reason: models.CloseManual}) {
			t.Send("⚠️ Очередь команд переполнена, попробуйте позже")
		}
	case "cancelorders":
		symbol := strings.ToUpper(strings.TrimSpace(msg.CommandArguments()))
		if !t.sink.Enqueue(models.CancelAllOrders{Symbol: symbol}) {
			t.Send("⚠️ Очередь команд переполнена, попробуйте позже")
		}
	}
}

func (t *Telegram) sendPositions() {
	active := t.view.Active()
	if len(active) == 0 {
		t.Send("📭 Открытых позиций нет")
		return
	}

	var b strings.Builder
	b.WriteString("📊 Открытые позиции:\n")
	for _, tr := range active {
		fmt.Fprintf(&b, "- %s [%s] %.8g @ %.8g uPnL=%.4f\n",
			tr.Symbol, tr.Direction, tr.Quantity, tr.EntryPrice, tr.UnrealizedPnL)
	}
	t.Send(b.String())
}

func (t *Telegram) sendStats() {
	s := t.view.Stats()
	if s.TotalTrades == 0 {
		t.Send("📭 Закрытых сделок пока нет")
		return
	}
	t.Sendf(
		"📈 Статистика\nСделок: %d (W %d / L %d, %.1f%%)\nPnL: %.4f USDT\nAvg win/loss: %.4f / %.4f\nMax DD: %.4f\nSharpe: %.2f | PF: %.2f",
		s.TotalTrades, s.Wins, s.Losses, s.WinRate,
		s.TotalPnL, s.AvgWin, s.AvgLoss, s.MaxDrawdown, s.Sharpe, s.ProfitFactor,
	)
}
