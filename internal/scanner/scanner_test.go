package scanner

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Anhbaza/Bot-Binance/internal/analyzer"
	"github.com/Anhbaza/Bot-Binance/internal/engine"
	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/Anhbaza/Bot-Binance/internal/modules/metrics"
	"github.com/Anhbaza/Bot-Binance/internal/notify"
)

type scriptedMarket struct {
	instruments []models.Instrument
	tickers     []models.Ticker
	candles     map[string][]models.Candle // ключ symbol|tf
	candleErr   error
}

func (m *scriptedMarket) Candles(_ context.Context, symbol, tf string, _ int) ([]models.Candle, error) {
	if m.candleErr != nil {
		return nil, m.candleErr
	}
	return m.candles[symbol+"|"+tf], nil
}

func (m *scriptedMarket) Ticker(_ context.Context, symbol string) (models.Ticker, error) {
	for _, t := range m.tickers {
		if t.Symbol == symbol {
			return t, nil
		}
	}
	return models.Ticker{}, errors.New("unknown symbol")
}

func (m *scriptedMarket) Tickers(context.Context) ([]models.Ticker, error) {
	return m.tickers, nil
}

func (m *scriptedMarket) Instruments(context.Context) ([]models.Instrument, error) {
	return m.instruments, nil
}

func testSettings() Settings {
	return Settings{
		Timeframes:          []string{"1h"},
		CandleLimit:         100,
		MinQuoteVolume:      1_000_000,
		PairRefreshInterval: time.Hour,
		ScanRPS:             1000, // в тестах лимитер не должен тормозить
	}
}

func analyzerSettings() analyzer.Settings {
	return analyzer.Settings{
		RSIPeriod:     14,
		FastMA:        12,
		SlowMA:        26,
		VolumePeriod:  20,
		BollPeriod:    20,
		BollStd:       2,
		RSIOverbought: 70,
		RSIOversold:   30,

		MinConfidence:  70,
		VolumeRatioMin: 1.5,
		MinRiskReward:  2.0,
	}
}

// разворот вниз-вверх с всплеском объёма — серия, дающая LONG-сигнал
func signalCandles() []models.Candle {
	closes := make([]float64, 0, 65)
	for i := 0; i <= 40; i++ {
		closes = append(closes, 100-float64(i))
	}
	for j := 1; j <= 24; j++ {
		closes = append(closes, 60+0.4*float64(j))
	}

	volumes := make([]float64, len(closes))
	for i := range volumes {
		volumes[i] = 10
	}
	volumes[len(volumes)-4] = 10.5
	volumes[len(volumes)-3] = 11
	volumes[len(volumes)-2] = 12
	volumes[len(volumes)-1] = 20.4

	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i := range closes {
		out[i] = models.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     closes[i],
			High:     closes[i],
			Low:      closes[i],
			Close:    closes[i],
			Volume:   volumes[i],
		}
	}
	return out
}

func flatCandles(n int) []models.Candle {
	out := make([]models.Candle, n)
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.Candle{OpenTime: start.Add(time.Duration(i) * time.Hour), Open: 50, High: 50, Low: 50, Close: 50, Volume: 10}
	}
	return out
}

func newScanner(set Settings, market *scriptedMarket, queue *engine.Queue) *Scanner {
	return New(
		set,
		market,
		analyzer.New(analyzerSettings()),
		queue,
		notify.NewStdout(),
		metrics.New(prometheus.NewRegistry()),
	)
}

func TestRefreshUniverse_Filters(t *testing.T) {
	market := &scriptedMarket{
		instruments: []models.Instrument{
			{Symbol: "BTCUSDT", QuoteAsset: "USDT", Active: true},
			{Symbol: "ETHUSDT", QuoteAsset: "USDT", Active: true},
			{Symbol: "DEADUSDT", QuoteAsset: "USDT", Active: false},  // не торгуется
			{Symbol: "ETHBTC", QuoteAsset: "BTC", Active: true},      // не USDT
			{Symbol: "THINUSDT", QuoteAsset: "USDT", Active: true},   // мало оборота
		},
		tickers: []models.Ticker{
			{Symbol: "BTCUSDT", QuoteVolume24h: 50_000_000},
			{Symbol: "ETHUSDT", QuoteVolume24h: 2_000_000},
			{Symbol: "DEADUSDT", QuoteVolume24h: 9_000_000},
			{Symbol: "ETHBTC", QuoteVolume24h: 9_000_000},
			{Symbol: "THINUSDT", QuoteVolume24h: 500_000},
		},
	}

	s := newScanner(testSettings(), market, engine.NewQueue(8))
	if err := s.refreshUniverse(context.Background()); err != nil {
		t.Fatalf("refreshUniverse: %v", err)
	}

	s.mu.RLock()
	got := append([]string(nil), s.pairs...)
	s.mu.RUnlock()
	sort.Strings(got)

	want := []string{"BTCUSDT", "ETHUSDT"}
	if len(got) != len(want) {
		t.Fatalf("pairs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pairs = %v, want %v", got, want)
		}
	}
}

func TestCycle_EnqueuesSignal(t *testing.T) {
	market := &scriptedMarket{
		instruments: []models.Instrument{{Symbol: "BTCUSDT", QuoteAsset: "USDT", Active: true}},
		tickers:     []models.Ticker{{Symbol: "BTCUSDT", QuoteVolume24h: 50_000_000}},
		candles:     map[string][]models.Candle{"BTCUSDT|1h": signalCandles()},
	}
	queue := engine.NewQueue(8)

	s := newScanner(testSettings(), market, queue)
	if err := s.refreshUniverse(context.Background()); err != nil {
		t.Fatalf("refreshUniverse: %v", err)
	}

	s.cycle(context.Background())

	select {
	case cmd := <-queue.C():
		acc, ok := cmd.(models.AcceptSignal)
		if !ok {
			t.Fatalf("command = %T, want AcceptSignal", cmd)
		}
		if acc.Signal.Symbol != "BTCUSDT" || acc.Signal.Direction != models.DirectionLong {
			t.Errorf("signal = %s %s, want LONG BTCUSDT", acc.Signal.Direction, acc.Signal.Symbol)
		}
	default:
		t.Fatal("no command in queue")
	}
}

func TestCycle_NoSignalOnFlatMarket(t *testing.T) {
	market := &scriptedMarket{
		instruments: []models.Instrument{{Symbol: "BTCUSDT", QuoteAsset: "USDT", Active: true}},
		tickers:     []models.Ticker{{Symbol: "BTCUSDT", QuoteVolume24h: 50_000_000}},
		candles:     map[string][]models.Candle{"BTCUSDT|1h": flatCandles(80)},
	}
	queue := engine.NewQueue(8)

	s := newScanner(testSettings(), market, queue)
	if err := s.refreshUniverse(context.Background()); err != nil {
		t.Fatalf("refreshUniverse: %v", err)
	}
	s.cycle(context.Background())

	select {
	case cmd := <-queue.C():
		t.Fatalf("unexpected command %T", cmd)
	default:
	}
}

func TestCycle_SurvivesCandleErrors(t *testing.T) {
	market := &scriptedMarket{
		instruments: []models.Instrument{{Symbol: "BTCUSDT", QuoteAsset: "USDT", Active: true}},
		tickers:     []models.Ticker{{Symbol: "BTCUSDT", QuoteVolume24h: 50_000_000}},
		candleErr:   errors.New("rate limited"),
	}

	s := newScanner(testSettings(), market, engine.NewQueue(8))
	if err := s.refreshUniverse(context.Background()); err != nil {
		t.Fatalf("refreshUniverse: %v", err)
	}

	// не должен паниковать и не должен зависнуть
	s.cycle(context.Background())
}

func TestDue_RespectsTimeframeInterval(t *testing.T) {
	s := newScanner(testSettings(), &scriptedMarket{}, engine.NewQueue(8))

	if !s.due("BTCUSDT", "1h") {
		t.Fatal("fresh pair should be due")
	}
	s.markScanned("BTCUSDT", "1h")
	if s.due("BTCUSDT", "1h") {
		t.Fatal("pair scanned just now should not be due")
	}
	// другой таймфрейм — отдельный счётчик
	if !s.due("BTCUSDT", "5m") {
		t.Fatal("other timeframe should be due")
	}
	if s.due("BTCUSDT", "bogus") {
		t.Fatal("unknown timeframe should never be due")
	}
}

func TestDiff(t *testing.T) {
	added, removed := diff([]string{"A", "B", "C"}, []string{"B", "C", "D"})
	if len(added) != 1 || added[0] != "D" {
		t.Errorf("added = %v, want [D]", added)
	}
	if len(removed) != 1 || removed[0] != "A" {
		t.Errorf("removed = %v, want [A]", removed)
	}
}
