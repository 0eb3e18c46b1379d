package exchange

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/Anhbaza/Bot-Binance/pkg/logger"
)

const (
	wsBaseURL   = "wss://stream.binance.com:9443/stream?streams="
	reconnectIn = 5 * time.Second
)

// PriceFeed держит последние цены по подписанным парам через
// combined miniTicker стрим. Монитор позиций читает снапшоты,
// при отсутствии свежей цены движок падает обратно на REST-тикер.
type PriceFeed struct {
	mu      sync.RWMutex
	prices  map[string]float64
	updated map[string]time.Time
	symbols []string

	// сигнал смены набора пар: текущее соединение закрывается
	// и переподписывается с новым списком стримов
	resub chan struct{}
}

func NewPriceFeed() *PriceFeed {
	return &PriceFeed{
		prices:  make(map[string]float64),
		updated: make(map[string]time.Time),
		resub:   make(chan struct{}, 1),
	}
}

// Watch задаёт список пар. При изменении набора рвём текущий стрим,
// чтобы подписка применилась сразу, а не при случайном реконнекте.
func (f *PriceFeed) Watch(symbols []string) {
	f.mu.Lock()
	changed := !sameSymbols(f.symbols, symbols)
	f.symbols = append([]string(nil), symbols...)
	f.mu.Unlock()

	if changed {
		select {
		case f.resub <- struct{}{}:
		default:
		}
	}
}

func sameSymbols(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if !set[s] {
			return false
		}
	}
	return true
}

// Latest возвращает последнюю цену и её свежесть.
func (f *PriceFeed) Latest(symbol string) (price float64, at time.Time, ok bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	price, ok = f.prices[symbol]
	return price, f.updated[symbol], ok
}

// Run крутит подключение до отмены контекста. Ошибки стрима не фатальны:
// лог и реконнект.
func (f *PriceFeed) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := f.streamOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Error("price feed: %v, reconnect in %s", err, reconnectIn)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectIn):
		}
	}
}

func (f *PriceFeed) streamOnce(ctx context.Context) error {
	// просроченный сигнал от подписки, которую мы сейчас и так прочитаем
	select {
	case <-f.resub:
	default:
	}

	f.mu.RLock()
	symbols := f.symbols
	f.mu.RUnlock()
	if len(symbols) == 0 {
		// ждём появления пар, не дёргая провайдера
		select {
		case <-ctx.Done():
		case <-f.resub:
		}
		return nil
	}

	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		streams = append(streams, strings.ToLower(s)+"@miniTicker")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsBaseURL+strings.Join(streams, "/"), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-f.resub:
		case <-done:
			return
		}
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg struct {
			Data struct {
				Symbol string `json:"s"`
				Close  string `json:"c"`
			} `json:"data"`
		}
		if err := sonic.Unmarshal(data, &msg); err != nil {
			continue
		}
		px, err := parseF("miniTicker close", msg.Data.Close)
		if err != nil || px <= 0 {
			continue
		}

		f.mu.Lock()
		f.prices[msg.Data.Symbol] = px
		f.updated[msg.Data.Symbol] = time.Now()
		f.mu.Unlock()
	}
}
