// Package indicator — чистые функции над упорядоченными рядами цен/объёмов.
// Никакого состояния: одинаковый вход всегда даёт одинаковый выход.
package indicator

import (
	"math"

	"github.com/pkg/errors"
)

// ErrInsufficientData возвращается когда ряда не хватает на период.
// Это ожидаемое состояние (короткая история), не сбой.
var ErrInsufficientData = errors.New("indicator: insufficient data")

// SMA — простая скользящая средняя. Возвращает ряд длины len(series)-period+1.
func SMA(series []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Errorf("indicator: bad sma period %d", period)
	}
	if len(series) < period {
		return nil, ErrInsufficientData
	}

	out := make([]float64, 0, len(series)-period+1)
	sum := 0.0
	for i, v := range series {
		sum += v
		if i >= period {
			sum -= series[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out, nil
}

// EMA — экспоненциальная средняя, сид с первого элемента ряда.
// Возвращает ряд длины len(series).
func EMA(series []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Errorf("indicator: bad ema period %d", period)
	}
	if len(series) < period {
		return nil, ErrInsufficientData
	}

	k := 2.0 / float64(period+1)
	out := make([]float64, len(series))
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = out[i-1] + k*(series[i]-out[i-1])
	}
	return out, nil
}

// RSI — RSI Уайлдера. Первые period значений сидируются простым средним
// gain/loss по первым period дельтам, дальше рекурсивное сглаживание
// avg = (avg*(period-1) + value) / period.
// Ряд без потерь -> 100, без ростов -> 0.
func RSI(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Errorf("indicator: bad rsi period %d", period)
	}
	if len(closes) < period+1 {
		return nil, ErrInsufficientData
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, len(closes))
	seed := rsiValue(avgGain, avgLoss)
	for i := 0; i <= period; i++ {
		out[i] = seed
	}

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		// потерь нет — деление на ноль трактуем как RSI=100
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD возвращает значения macd-линии, сигнальной линии и гистограммы
// на последнем баре. Линии строятся на EMA fast/slow, сигнальная — EMA
// от macd-ряда.
func MACD(closes []float64, fast, slow, signal int) (macd, signalLine, histogram float64, err error) {
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow {
		return 0, 0, 0, errors.Errorf("indicator: bad macd periods %d/%d/%d", fast, slow, signal)
	}
	if len(closes) < slow+signal {
		return 0, 0, 0, ErrInsufficientData
	}

	emaFast, err := EMA(closes, fast)
	if err != nil {
		return 0, 0, 0, err
	}
	emaSlow, err := EMA(closes, slow)
	if err != nil {
		return 0, 0, 0, err
	}

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = emaFast[i] - emaSlow[i]
	}

	sig, err := EMA(line, signal)
	if err != nil {
		return 0, 0, 0, err
	}

	last := len(closes) - 1
	return line[last], sig[last], line[last] - sig[last], nil
}

// Bollinger возвращает верхнюю/среднюю/нижнюю полосы на последнем баре.
// Средняя — SMA(period), отклонение — популяционное стандартное по
// хвостовому окну.
func Bollinger(closes []float64, period int, numStd float64) (upper, middle, lower float64, err error) {
	if period <= 0 {
		return 0, 0, 0, errors.Errorf("indicator: bad bollinger period %d", period)
	}
	if len(closes) < period {
		return 0, 0, 0, ErrInsufficientData
	}

	window := closes[len(closes)-period:]
	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(period)

	variance := 0.0
	for _, v := range window {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(period))

	return mean + numStd*std, mean, mean - numStd*std, nil
}
