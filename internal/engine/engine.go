package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Anhbaza/Bot-Binance/internal/analyzer"
	"github.com/Anhbaza/Bot-Binance/internal/exchange"
	"github.com/Anhbaza/Bot-Binance/internal/helper"
	"github.com/Anhbaza/Bot-Binance/internal/ledger"
	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/Anhbaza/Bot-Binance/internal/modules/config"
	"github.com/Anhbaza/Bot-Binance/internal/modules/metrics"
	"github.com/Anhbaza/Bot-Binance/internal/notify"
	"github.com/Anhbaza/Bot-Binance/pkg/logger"
	"github.com/Anhbaza/Bot-Binance/pkg/tracing"
)

// свежесть цены из стрима, дальше падаем на REST-тикер
const priceFreshFor = 10 * time.Second

type Settings struct {
	MaxTrades        int
	OrderNotional    float64
	MonitorInterval  time.Duration
	EntryFillTimeout time.Duration
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		MaxTrades:        cfg.MaxTrades,
		OrderNotional:    cfg.OrderNotional,
		MonitorInterval:  cfg.MonitorInterval,
		EntryFillTimeout: cfg.EntryFillTimeout,
	}
}

// TradeStore — то, что движку нужно от персистентности.
// В тестах подменяется заглушкой.
type TradeStore interface {
	SaveSignal(ctx context.Context, sig models.Signal) error
	SaveTrade(ctx context.Context, t models.Trade) error
	UpdateTrade(ctx context.Context, t models.Trade) error
	LoadOpenTrades(ctx context.Context) ([]models.Trade, error)
	SaveStatistics(ctx context.Context, st models.Stats) error
}

// PriceSource — последняя цена из стрима; пустое время = цены нет.
type PriceSource interface {
	Latest(symbol string) (price float64, at time.Time, ok bool)
	Watch(symbols []string)
}

// Engine исполняет сигналы и ведёт открытые позиции до закрытия.
type Engine struct {
	set      Settings
	gate     *analyzer.Gate
	gateway  exchange.OrderGateway
	market   exchange.MarketData
	feed     PriceSource
	ledger   *ledger.Ledger
	store    TradeStore
	notifier notify.Notifier
	metrics  *metrics.Metrics
	queue    *Queue

	// резервирование пары на время выставления ордеров,
	// чтобы два сигнала по одной паре не открыли две позиции
	mu       sync.Mutex
	inflight map[string]bool

	// входы, по которым ещё не подтверждено исполнение:
	// ID сделки -> дедлайн ожидания
	pendMu       sync.Mutex
	pendingEntry map[string]time.Time

	instMu      sync.RWMutex
	instruments map[string]models.Instrument
}

func New(
	set Settings,
	gate *analyzer.Gate,
	gateway exchange.OrderGateway,
	market exchange.MarketData,
	feed PriceSource,
	ldg *ledger.Ledger,
	st TradeStore,
	notifier notify.Notifier,
	m *metrics.Metrics,
	queue *Queue,
) *Engine {
	if set.MaxTrades <= 0 {
		set.MaxTrades = 5
	}
	if set.MonitorInterval <= 0 {
		set.MonitorInterval = time.Second
	}
	if set.EntryFillTimeout <= 0 {
		set.EntryFillTimeout = 2 * time.Minute
	}
	return &Engine{
		set:          set,
		gate:         gate,
		gateway:      gateway,
		market:       market,
		feed:         feed,
		ledger:       ldg,
		store:        st,
		notifier:     notifier,
		metrics:      m,
		queue:        queue,
		inflight:     make(map[string]bool),
		pendingEntry: make(map[string]time.Time),
		instruments:  make(map[string]models.Instrument),
	}
}

// Reconcile поднимает открытые позиции из базы после рестарта.
func (e *Engine) Reconcile(ctx context.Context) error {
	open, err := e.store.LoadOpenTrades(ctx)
	if err != nil {
		return errors.Wrap(err, "load open trades")
	}
	for _, t := range open {
		e.ledger.Add(t)
		// вход мог не исполниться до рестарта — проверяем и ставим
		// под наблюдение филл-поллера
		if t.OrderID != "" {
			if ord, sErr := e.gateway.OrderStatus(ctx, t.Symbol, t.OrderID); sErr == nil && !entryFilled(ord.Status) {
				e.markPending(t.ID, time.Now().Add(e.set.EntryFillTimeout))
			}
		}
		logger.Info("[ENGINE] восстановлена позиция %s %s @ %.8g", t.Direction, t.Symbol, t.EntryPrice)
	}
	e.metrics.OpenTrades.Set(float64(e.ledger.ActiveCount()))
	e.refreshWatch()
	return nil
}

// Run — командный цикл и монитор позиций, до отмены контекста.
func (e *Engine) Run(ctx context.Context) {
	go e.monitor(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-e.queue.C():
			e.dispatch(ctx, cmd)
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, cmd models.Command) {
	switch c := cmd.(type) {
	case models.AcceptSignal:
		if err := e.handleSignal(ctx, c.Signal); err != nil {
			logger.Error("[ENGINE] сигнал %s: %v", c.Signal.Symbol, err)
		}
	case models.CloseTrade:
		t, ok := e.ledger.ActiveBySymbol(c.Symbol)
		if !ok {
			logger.Info("[ENGINE] close %s: открытой позиции нет", c.Symbol)
			return
		}
		price, err := e.currentPrice(ctx, c.Symbol)
		if err != nil {
			logger.Error("[ENGINE] close %s: цена недоступна: %v", c.Symbol, err)
			return
		}
		e.closeTrade(ctx, t.ID, price, c.Reason)
	case models.CloseAll:
		e.CloseAll(ctx, c.Reason)
	case models.CancelAllOrders:
		if err := e.gateway.CancelAll(ctx, c.Symbol); err != nil {
			e.metrics.OrderErrors.Inc()
			logger.Error("[ENGINE] cancel all %q: %v", c.Symbol, err)
		}
	}
}

// handleSignal: гейт -> резервирование -> сайзинг -> вход LIMIT ->
// защитный OCO. Падение на OCO компенсируется снятием входа.
func (e *Engine) handleSignal(ctx context.Context, sig models.Signal) error {
	span, ctx := tracing.StartSpan(ctx, "engine.handleSignal")
	defer span.Finish()

	if err := e.gate.Validate(sig); err != nil {
		e.metrics.SignalsRejected.WithLabelValues("gate").Inc()
		return err
	}
	if maxAge := signalMaxAge(sig.Timeframe); time.Since(sig.GeneratedAt) > maxAge {
		e.metrics.SignalsRejected.WithLabelValues("stale").Inc()
		return errors.Errorf("сигнал устарел: %s", time.Since(sig.GeneratedAt).Round(time.Second))
	}

	if err := e.store.SaveSignal(ctx, sig); err != nil {
		logger.Error("[ENGINE] save signal: %v", err)
	}
	e.notifier.SignalFound(sig)

	if !e.reserve(sig.Symbol) {
		e.metrics.SignalsRejected.WithLabelValues("capacity").Inc()
		return errors.Errorf("нет слота под %s (лимит %d или позиция уже есть)", sig.Symbol, e.set.MaxTrades)
	}
	defer e.release(sig.Symbol)

	inst, err := e.instrument(ctx, sig.Symbol)
	if err != nil {
		return err
	}

	qty := helper.RoundDownToStep(e.set.OrderNotional/sig.EntryPrice, inst.StepSize)
	if qty < inst.MinQty || qty <= 0 {
		e.metrics.SignalsRejected.WithLabelValues("sizing").Inc()
		return errors.Errorf("объём %.8g ниже минимального лота %.8g", qty, inst.MinQty)
	}
	if qty*sig.EntryPrice < inst.MinNotional {
		e.metrics.SignalsRejected.WithLabelValues("sizing").Inc()
		return errors.Errorf("ноционал %.4f ниже минимума %.4f", qty*sig.EntryPrice, inst.MinNotional)
	}

	// при недоступном балансе не блокируем вход, лимитку отклонит биржа
	if free, err := e.gateway.Balance(ctx, "USDT"); err != nil {
		logger.Warn("[ENGINE] баланс недоступен: %v", err)
	} else if free < qty*sig.EntryPrice {
		e.metrics.SignalsRejected.WithLabelValues("balance").Inc()
		return errors.Errorf("недостаточно средств: %.2f < %.2f USDT", free, qty*sig.EntryPrice)
	}

	// округление к тику не должно ухудшать проверенный гейтом R:R:
	// лонгу тейк и стоп вверх, шорту вниз, вход — в свою пользу
	var entryPx, tp, sl float64
	if sig.Direction == models.DirectionLong {
		entryPx = helper.RoundDownToTick(sig.EntryPrice, inst.TickSize)
		tp = helper.RoundUpToTick(sig.TakeProfit, inst.TickSize)
		sl = helper.RoundUpToTick(sig.StopLoss, inst.TickSize)
	} else {
		entryPx = helper.RoundUpToTick(sig.EntryPrice, inst.TickSize)
		tp = helper.RoundDownToTick(sig.TakeProfit, inst.TickSize)
		sl = helper.RoundDownToTick(sig.StopLoss, inst.TickSize)
	}

	entry, err := e.gateway.PlaceOrder(ctx, sig.Symbol, models.EntrySide(sig.Direction), models.OrderLimit, qty, entryPx)
	if err != nil {
		e.metrics.OrderErrors.Inc()
		return errors.Wrap(err, "вход")
	}
	logger.Info("[ORDER] %s %s LIMIT %.8g @ %.8g id=%s", models.EntrySide(sig.Direction), sig.Symbol, qty, entryPx, entry.OrderID)

	bracket, err := e.gateway.PlaceBracket(ctx, sig.Symbol, models.ExitSide(sig.Direction), qty, tp, sl)
	if err != nil {
		e.metrics.OrderErrors.Inc()
		// компенсация: без защитного выхода позицию не держим
		if cErr := e.gateway.CancelOrder(ctx, sig.Symbol, entry.OrderID); cErr != nil {
			logger.Error("[ENGINE] компенсация %s не удалась: %v", entry.OrderID, cErr)
		}
		return errors.Wrap(err, "защитный OCO")
	}

	trade := models.Trade{
		ID:         uuid.NewString(),
		Symbol:     sig.Symbol,
		Direction:  sig.Direction,
		EntryPrice: entryPx,
		Quantity:   qty,
		StopLoss:   sl,
		TakeProfit: tp,
		Status:     models.TradeOpen,
		OrderID:    entry.OrderID,
		BracketID:  bracket.OrderID,
		OpenedAt:   time.Now().UTC(),
	}

	if err := e.store.SaveTrade(ctx, trade); err != nil {
		logger.Error("[ENGINE] save trade %s: %v", trade.ID, err)
	}
	e.ledger.Add(trade)
	e.markPending(trade.ID, time.Now().Add(e.set.EntryFillTimeout))
	e.refreshWatch()

	e.metrics.TradesOpened.Inc()
	e.metrics.OpenTrades.Set(float64(e.ledger.ActiveCount()))
	e.notifier.TradeOpened(trade)
	logger.Info("[TRADE] открыта %s %s @ %.8g tp=%.8g sl=%.8g", trade.Direction, trade.Symbol, entryPx, tp, sl)
	return nil
}

// closeTrade идемпотентен: повторный вызов по закрытой сделке — no-op.
// Неисполненный вход не закрываем, а снимаем: рыночный выход без
// позиции открыл бы противоположную.
func (e *Engine) closeTrade(ctx context.Context, id string, exitPrice float64, reason models.CloseReason) {
	if e.entryPending(id) {
		e.cancelUnfilled(ctx, id)
		return
	}

	closed, ok := e.ledger.Close(id, exitPrice, reason, time.Now().UTC())
	if !ok {
		return
	}

	// сперва снимаем ноги OCO, потом выравниваем позицию рыночным
	// ордером: исполнение ноги после флэттена продало бы в минус
	if err := e.gateway.CancelAll(ctx, closed.Symbol); err != nil {
		e.metrics.OrderErrors.Inc()
		logger.Error("[ENGINE] снятие ордеров %s: %v", closed.Symbol, err)
	}
	if _, err := e.gateway.PlaceOrder(ctx, closed.Symbol, models.ExitSide(closed.Direction), models.OrderMarket, closed.Quantity, 0); err != nil {
		e.metrics.OrderErrors.Inc()
		logger.Error("[ENGINE] рыночное закрытие %s: %v", closed.Symbol, err)
		e.notifier.Error("закрытие позиции", err)
	}

	if err := e.store.UpdateTrade(ctx, closed); err != nil {
		logger.Error("[ENGINE] update trade %s: %v", closed.ID, err)
	}

	stats := e.ledger.Stats()
	if err := e.store.SaveStatistics(ctx, stats); err != nil {
		logger.Error("[ENGINE] save statistics: %v", err)
	}

	e.metrics.TradesClosed.WithLabelValues(string(reason)).Inc()
	e.metrics.OpenTrades.Set(float64(e.ledger.ActiveCount()))
	e.metrics.TotalPnL.Set(stats.TotalPnL)
	e.refreshWatch()

	e.notifier.TradeClosed(closed)
	logger.Info("[TRADE] закрыта %s %s @ %.8g pnl=%.4f (%s)", closed.Direction, closed.Symbol, exitPrice, closed.RealizedPnL, reason)
}

// CloseAll закрывает все позиции. Рыночный флэттен уходит в любом
// случае; недоступная цена влияет только на зафиксированный в журнале
// результат — тогда пишем по цене входа.
func (e *Engine) CloseAll(ctx context.Context, reason models.CloseReason) {
	for _, t := range e.ledger.Active() {
		price, err := e.currentPrice(ctx, t.Symbol)
		if err != nil {
			logger.Error("[ENGINE] close all %s: цена недоступна, фиксируем по входу: %v", t.Symbol, err)
			price = t.EntryPrice
		}
		e.closeTrade(ctx, t.ID, price, reason)
	}
}

// cancelUnfilled снимает неисполненный вход вместе с OCO и помечает
// сделку отменённой. В статистику она не попадает.
func (e *Engine) cancelUnfilled(ctx context.Context, id string) {
	t, ok := e.ledger.Get(id)
	if !ok {
		e.clearPending(id)
		return
	}

	if err := e.gateway.CancelAll(ctx, t.Symbol); err != nil {
		e.metrics.OrderErrors.Inc()
		logger.Error("[ENGINE] снятие неисполненного входа %s: %v", t.Symbol, err)
	}

	e.ledger.Cancel(id)
	e.clearPending(id)

	t.Status = models.TradeCancelled
	t.CloseReason = models.CloseError
	t.ClosedAt = time.Now().UTC()
	if err := e.store.UpdateTrade(ctx, t); err != nil {
		logger.Error("[ENGINE] update trade %s: %v", t.ID, err)
	}

	e.metrics.TradesClosed.WithLabelValues(string(models.CloseError)).Inc()
	e.metrics.OpenTrades.Set(float64(e.ledger.ActiveCount()))
	e.refreshWatch()

	e.notifier.Sendf("⚠️ Вход %s не исполнен, ордера сняты", t.Symbol)
	logger.Info("[TRADE] отменена %s %s: вход не исполнен", t.Direction, t.Symbol)
}

func (e *Engine) markPending(id string, deadline time.Time) {
	e.pendMu.Lock()
	e.pendingEntry[id] = deadline
	e.pendMu.Unlock()
}

func (e *Engine) clearPending(id string) {
	e.pendMu.Lock()
	delete(e.pendingEntry, id)
	e.pendMu.Unlock()
}

func (e *Engine) entryPending(id string) bool {
	e.pendMu.Lock()
	defer e.pendMu.Unlock()
	_, ok := e.pendingEntry[id]
	return ok
}

func (e *Engine) pendingSnapshot() map[string]time.Time {
	e.pendMu.Lock()
	defer e.pendMu.Unlock()
	out := make(map[string]time.Time, len(e.pendingEntry))
	for id, dl := range e.pendingEntry {
		out[id] = dl
	}
	return out
}

func entryFilled(st models.OrderStatus) bool {
	return st == models.OrderFilled
}

func entryDead(st models.OrderStatus) bool {
	switch st {
	case models.OrderCanceled, models.OrderRejected, models.OrderExpired:
		return true
	}
	return false
}

func (e *Engine) reserve(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight[symbol] {
		return false
	}
	if _, ok := e.ledger.ActiveBySymbol(symbol); ok {
		return false
	}
	if e.ledger.ActiveCount()+len(e.inflight) >= e.set.MaxTrades {
		return false
	}
	e.inflight[symbol] = true
	return true
}

func (e *Engine) release(symbol string) {
	e.mu.Lock()
	delete(e.inflight, symbol)
	e.mu.Unlock()
}

func (e *Engine) refreshWatch() {
	active := e.ledger.Active()
	symbols := make([]string, 0, len(active))
	for _, t := range active {
		symbols = append(symbols, t.Symbol)
	}
	e.feed.Watch(symbols)
}

func (e *Engine) currentPrice(ctx context.Context, symbol string) (float64, error) {
	if px, at, ok := e.feed.Latest(symbol); ok && time.Since(at) < priceFreshFor {
		return px, nil
	}
	tick, err := e.market.Ticker(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return tick.Price, nil
}

// instrument отдаёт фильтры пары, при промахе перечитывает справочник.
func (e *Engine) instrument(ctx context.Context, symbol string) (models.Instrument, error) {
	e.instMu.RLock()
	inst, ok := e.instruments[symbol]
	e.instMu.RUnlock()
	if ok {
		return inst, nil
	}

	all, err := e.market.Instruments(ctx)
	if err != nil {
		return models.Instrument{}, errors.Wrap(err, "instruments")
	}

	e.instMu.Lock()
	for _, i := range all {
		e.instruments[i.Symbol] = i
	}
	inst, ok = e.instruments[symbol]
	e.instMu.Unlock()

	if !ok {
		return models.Instrument{}, errors.Errorf("пара %s не найдена в справочнике", symbol)
	}
	return inst, nil
}

// макс. возраст сигнала — один бар его таймфрейма
func signalMaxAge(timeframe string) time.Duration {
	if d := helper.TFDuration(timeframe); d > 0 {
		return d
	}
	return 5 * time.Minute
}
