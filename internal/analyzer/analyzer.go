// Package analyzer превращает ряд свечей в кандидат-сигнал.
// Чистая логика: никаких сайд-эффектов, короткая история — это не ошибка,
// а обычный «нет сигнала».
package analyzer

import (
	"math"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/helper"
	"github.com/Anhbaza/Bot-Binance/internal/indicator"
	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/Anhbaza/Bot-Binance/internal/modules/config"
)

// Settings — параметры анализа. Отдельная структура, чтобы анализатор
// не тянул весь конфиг приложения.
type Settings struct {
	RSIPeriod     int
	FastMA        int
	SlowMA        int
	VolumePeriod  int
	BollPeriod    int
	BollStd       float64
	RSIOverbought float64
	RSIOversold   float64

	MinConfidence  float64
	VolumeRatioMin float64
	MinRiskReward  float64
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		RSIPeriod:     cfg.RSIPeriod,
		FastMA:        cfg.FastMA,
		SlowMA:        cfg.SlowMA,
		VolumePeriod:  cfg.VolumePeriod,
		BollPeriod:    cfg.BollPeriod,
		BollStd:       cfg.BollStd,
		RSIOverbought: cfg.RSIOverbought,
		RSIOversold:   cfg.RSIOversold,

		MinConfidence:  cfg.MinConfidence,
		VolumeRatioMin: cfg.VolumeRatioMin,
		MinRiskReward:  cfg.MinRiskReward,
	}
}

type Analyzer struct {
	set Settings
}

func New(set Settings) *Analyzer {
	if set.RSIPeriod <= 0 {
		set.RSIPeriod = 14
	}
	if set.FastMA <= 0 {
		set.FastMA = 12
	}
	if set.SlowMA <= 0 {
		set.SlowMA = 26
	}
	if set.VolumePeriod <= 0 {
		set.VolumePeriod = 20
	}
	if set.BollPeriod <= 0 {
		set.BollPeriod = 20
	}
	if set.BollStd <= 0 {
		set.BollStd = 2
	}
	if set.RSIOverbought <= 0 {
		set.RSIOverbought = 70
	}
	if set.RSIOversold <= 0 {
		set.RSIOversold = 30
	}
	if set.MinRiskReward <= 0 {
		set.MinRiskReward = 2.0
	}
	return &Analyzer{set: set}
}

// trailing-окно проверки устойчивости тренда и объёмов
const sustainBars = 5

// Analyze прогоняет свечи по воротам: объём -> тренд -> RSI -> уровни ->
// confidence. ok=false на любом отказе, в том числе на короткой истории.
func (a *Analyzer) Analyze(symbol, timeframe string, candles []models.Candle) (models.Signal, bool) {
	if len(candles) < a.set.SlowMA+sustainBars {
		return models.Signal{}, false
	}

	closes := models.Closes(candles)
	volumes := models.Volumes(candles)

	volRatio, ok := a.checkVolume(volumes)
	if !ok {
		return models.Signal{}, false
	}

	direction, ok := a.checkTrend(closes)
	if !ok {
		return models.Signal{}, false
	}

	rsi, ok := a.lastRSI(closes)
	if !ok {
		return models.Signal{}, false
	}
	if direction == models.DirectionLong && rsi > a.set.RSIOverbought {
		return models.Signal{}, false
	}
	if direction == models.DirectionShort && rsi < a.set.RSIOversold {
		return models.Signal{}, false
	}

	entry, tp, sl, ok := a.levels(closes, direction)
	if !ok {
		return models.Signal{}, false
	}

	confidence, ok := a.confidence(closes, volumes, volRatio, rsi, direction)
	if !ok {
		return models.Signal{}, false
	}

	return models.Signal{
		Symbol:      symbol,
		Timeframe:   timeframe,
		Direction:   direction,
		EntryPrice:  helper.Round8(entry),
		TakeProfit:  helper.Round8(tp),
		StopLoss:    helper.Round8(sl),
		Confidence:  confidence,
		RSI:         math.Round(rsi*100) / 100,
		VolumeRatio: math.Round(volRatio*100) / 100,
		GeneratedAt: time.Now().UTC(),
	}, true
}

// checkVolume: текущий объём против средней плюс неубывающий хвост.
func (a *Analyzer) checkVolume(volumes []float64) (float64, bool) {
	ma, err := indicator.SMA(volumes, a.set.VolumePeriod)
	if err != nil {
		return 0, false
	}
	volMA := ma[len(ma)-1]
	if volMA <= 0 {
		return 0, false
	}

	ratio := volumes[len(volumes)-1] / volMA
	if ratio < a.set.VolumeRatioMin {
		return 0, false
	}

	if len(volumes) < sustainBars+1 {
		return 0, false
	}
	for i := len(volumes) - sustainBars; i < len(volumes); i++ {
		if volumes[i] < volumes[i-1] {
			return 0, false
		}
	}

	return ratio, true
}

// checkTrend: быстрая против медленной SMA, выдержанная sustainBars подряд.
func (a *Analyzer) checkTrend(closes []float64) (models.Direction, bool) {
	fast, err := indicator.SMA(closes, a.set.FastMA)
	if err != nil {
		return "", false
	}
	slow, err := indicator.SMA(closes, a.set.SlowMA)
	if err != nil {
		return "", false
	}
	if len(fast) < sustainBars || len(slow) < sustainBars {
		return "", false
	}

	above, below := 0, 0
	for i := 1; i <= sustainBars; i++ {
		f := fast[len(fast)-i]
		s := slow[len(slow)-i]
		if f > s {
			above++
		} else if f < s {
			below++
		}
	}

	switch {
	case above == sustainBars:
		return models.DirectionLong, true
	case below == sustainBars:
		return models.DirectionShort, true
	default:
		return "", false
	}
}

func (a *Analyzer) lastRSI(closes []float64) (float64, bool) {
	rsi, err := indicator.RSI(closes, a.set.RSIPeriod)
	if err != nil {
		return 0, false
	}
	return rsi[len(rsi)-1], true
}

// levels: стоп от полосы Боллинджера, тейк = вход + 2R (зеркально для шорта).
func (a *Analyzer) levels(closes []float64, d models.Direction) (entry, tp, sl float64, ok bool) {
	upper, _, lower, err := indicator.Bollinger(closes, a.set.BollPeriod, a.set.BollStd)
	if err != nil {
		return 0, 0, 0, false
	}

	entry = closes[len(closes)-1]
	if d == models.DirectionLong {
		sl = lower
		tp = entry + (entry-sl)*2
	} else {
		sl = upper
		tp = entry - (sl-entry)*2
	}

	var risk, reward float64
	if d == models.DirectionLong {
		risk, reward = entry-sl, tp-entry
	} else {
		risk, reward = sl-entry, entry-tp
	}
	if risk <= 0 || reward <= 0 || reward/risk < a.set.MinRiskReward {
		return 0, 0, 0, false
	}

	return entry, tp, sl, true
}

// confidence: взвешенная сумма 30/30/20/20. MACD-линии здесь считаются на
// разности SMA — так калибровались веса; полноценный EMA-MACD живёт в
// пакете indicator.
func (a *Analyzer) confidence(closes, volumes []float64, volRatio, rsi float64, d models.Direction) (float64, bool) {
	fast, err := indicator.SMA(closes, a.set.FastMA)
	if err != nil {
		return 0, false
	}
	slow, err := indicator.SMA(closes, a.set.SlowMA)
	if err != nil {
		return 0, false
	}

	n := len(slow)
	if len(fast) < n {
		n = len(fast)
	}
	macd := make([]float64, n)
	for i := 0; i < n; i++ {
		macd[i] = fast[len(fast)-n+i] - slow[len(slow)-n+i]
	}

	sig, err := indicator.SMA(macd, 9)
	if err != nil {
		return 0, false
	}

	currMACD := macd[len(macd)-1]
	currSig := sig[len(sig)-1]

	trendScore := 0.0
	if (d == models.DirectionLong && currMACD > currSig) ||
		(d == models.DirectionShort && currMACD < currSig) {
		trendScore = 30
	}

	volumeScore := math.Min(30, volRatio*10)

	rsiScore := 0.0
	if rsi > a.set.RSIOversold && rsi < a.set.RSIOverbought {
		rsiScore = 20
	}

	macdScore := 0.0
	if math.Abs(currMACD-currSig) > 0 {
		macdScore = 20
	}

	confidence := math.Round((trendScore+volumeScore+rsiScore+macdScore)*100) / 100
	if confidence < a.set.MinConfidence {
		return 0, false
	}
	return confidence, true
}
