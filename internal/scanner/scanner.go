package scanner

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/Anhbaza/Bot-Binance/internal/analyzer"
	"github.com/Anhbaza/Bot-Binance/internal/engine"
	"github.com/Anhbaza/Bot-Binance/internal/exchange"
	"github.com/Anhbaza/Bot-Binance/internal/helper"
	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/Anhbaza/Bot-Binance/internal/modules/config"
	"github.com/Anhbaza/Bot-Binance/internal/modules/metrics"
	"github.com/Anhbaza/Bot-Binance/internal/notify"
	"github.com/Anhbaza/Bot-Binance/pkg/logger"
)

const (
	quoteAsset = "USDT"
	cyclePause = 5 * time.Second
)

type Settings struct {
	Timeframes          []string
	CandleLimit         int
	MinQuoteVolume      float64
	PairRefreshInterval time.Duration
	ScanRPS             float64
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Timeframes:          cfg.Timeframes,
		CandleLimit:         cfg.CandleLimit,
		MinQuoteVolume:      cfg.MinQuoteVolume,
		PairRefreshInterval: cfg.PairRefreshInterval,
		ScanRPS:             cfg.ScanRPS,
	}
}

// Scanner обходит юниверс пар по всем таймфреймам и шлёт найденные
// сигналы в очередь движка. Ошибки по одной паре не валят цикл.
type Scanner struct {
	set      Settings
	market   exchange.MarketData
	analyzer *analyzer.Analyzer
	queue    *engine.Queue
	notifier notify.Notifier
	metrics  *metrics.Metrics
	limiter  *rate.Limiter

	mu    sync.RWMutex
	pairs []string

	// пара|таймфрейм -> время последнего скана; чаще одного бара
	// таймфрейма пару не сканируем
	lastScan map[string]time.Time
}

func New(
	set Settings,
	market exchange.MarketData,
	an *analyzer.Analyzer,
	queue *engine.Queue,
	notifier notify.Notifier,
	m *metrics.Metrics,
) *Scanner {
	if set.CandleLimit <= 0 {
		set.CandleLimit = 100
	}
	if set.ScanRPS <= 0 {
		set.ScanRPS = 1
	}
	if set.PairRefreshInterval <= 0 {
		set.PairRefreshInterval = 30 * time.Minute
	}
	if len(set.Timeframes) == 0 {
		set.Timeframes = []string{"1m", "5m", "15m", "1h", "4h"}
	}
	return &Scanner{
		set:      set,
		market:   market,
		analyzer: an,
		queue:    queue,
		notifier: notifier,
		metrics:  m,
		limiter:  rate.NewLimiter(rate.Limit(set.ScanRPS), 1),
		lastScan: make(map[string]time.Time),
	}
}

// Run — циклы сканирования до отмены контекста.
func (s *Scanner) Run(ctx context.Context) {
	if err := s.refreshUniverse(ctx); err != nil {
		logger.Error("[SCANNER] стартовый отбор пар: %v", err)
		s.notifier.Error("отбор пар", err)
	}

	refresh := time.NewTicker(s.set.PairRefreshInterval)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
			if err := s.refreshUniverse(ctx); err != nil {
				logger.Error("[SCANNER] обновление пар: %v", err)
			}
		default:
		}

		s.cycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(cyclePause):
		}
	}
}

// refreshUniverse отбирает активные пары к USDT с достаточным
// суточным оборотом и логирует диф со старым списком.
func (s *Scanner) refreshUniverse(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	instruments, err := s.market.Instruments(ctx)
	if err != nil {
		return err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	tickers, err := s.market.Tickers(ctx)
	if err != nil {
		return err
	}

	volume := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		volume[t.Symbol] = t.QuoteVolume24h
	}

	fresh := make([]string, 0, 64)
	for _, inst := range instruments {
		if !inst.Active || inst.QuoteAsset != quoteAsset {
			continue
		}
		if volume[inst.Symbol] < s.set.MinQuoteVolume {
			continue
		}
		fresh = append(fresh, inst.Symbol)
	}

	s.mu.Lock()
	old := s.pairs
	s.pairs = fresh
	s.mu.Unlock()

	added, removed := diff(old, fresh)
	if len(added) > 0 {
		logger.Info("[SCANNER] добавлены пары: %s", strings.Join(added, ", "))
	}
	if len(removed) > 0 {
		logger.Info("[SCANNER] убраны пары: %s", strings.Join(removed, ", "))
	}
	logger.Info("[SCANNER] в юниверсе %d пар", len(fresh))
	s.metrics.PairsWatched.Set(float64(len(fresh)))
	return nil
}

// cycle сканирует все пары по таймфреймам, которые успели «дозреть».
func (s *Scanner) cycle(ctx context.Context) {
	s.mu.RLock()
	pairs := s.pairs
	s.mu.RUnlock()
	if len(pairs) == 0 {
		return
	}

	started := time.Now()
	signals := 0

	for _, symbol := range pairs {
		for _, tf := range s.set.Timeframes {
			if ctx.Err() != nil {
				return
			}
			if !s.due(symbol, tf) {
				continue
			}
			if s.scanOne(ctx, symbol, tf) {
				signals++
			}
		}
	}

	took := time.Since(started)
	s.metrics.ScanCycles.Inc()
	s.metrics.ScanDuration.Observe(took.Seconds())
	if signals > 0 {
		logger.Info("[SCANNER] цикл: %d пар, %d сигналов за %s", len(pairs), signals, took.Round(time.Millisecond))
	}
	s.notifier.ScanSummary(len(pairs), signals, took)
}

// scanOne тянет свечи с ретраями и прогоняет анализатор.
// Возвращает true, если сигнал ушёл в очередь.
func (s *Scanner) scanOne(ctx context.Context, symbol, tf string) bool {
	if err := s.limiter.Wait(ctx); err != nil {
		return false
	}

	var candles []models.Candle
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		candles, err = s.market.Candles(ctx, symbol, tf, s.set.CandleLimit)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		logger.Error("[SCANNER] %s %s: свечи: %v", symbol, tf, err)
		return false
	}

	s.markScanned(symbol, tf)

	sig, ok := s.analyzer.Analyze(symbol, tf, candles)
	if !ok {
		return false
	}

	logger.Info("[SIGNAL] %s %s %s @ %.8g conf=%.0f", sig.Direction, symbol, tf, sig.EntryPrice, sig.Confidence)
	s.metrics.SignalsFound.Inc()

	if !s.queue.Enqueue(models.AcceptSignal{Signal: sig}) {
		s.metrics.SignalsRejected.WithLabelValues("queue_full").Inc()
		logger.Error("[SCANNER] очередь команд переполнена, сигнал %s %s отброшен", symbol, tf)
		return false
	}
	return true
}

func (s *Scanner) due(symbol, tf string) bool {
	interval := helper.TFDuration(tf)
	if interval <= 0 {
		return false
	}
	s.mu.RLock()
	last := s.lastScan[symbol+"|"+tf]
	s.mu.RUnlock()
	return time.Since(last) >= interval
}

func (s *Scanner) markScanned(symbol, tf string) {
	s.mu.Lock()
	s.lastScan[symbol+"|"+tf] = time.Now()
	s.mu.Unlock()
}

func diff(old, fresh []string) (added, removed []string) {
	oldSet := make(map[string]bool, len(old))
	for _, s := range old {
		oldSet[s] = true
	}
	freshSet := make(map[string]bool, len(fresh))
	for _, s := range fresh {
		freshSet[s] = true
		if !oldSet[s] {
			added = append(added, s)
		}
	}
	for _, s := range old {
		if !freshSet[s] {
			removed = append(removed, s)
		}
	}
	return added, removed
}
