package models

import "time"

// Candle — одна закрытая свеча OHLCV. После получения не мутируется.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

type Ticker struct {
	Symbol         string
	Price          float64
	QuoteVolume24h float64
}

// Closes возвращает срез цен закрытия в порядке свечей.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes возвращает срез объёмов в порядке свечей.
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
