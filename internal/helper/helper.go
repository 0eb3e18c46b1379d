package helper

import (
	"math"
	"strings"
	"time"
)

// NormTF приводит обозначение таймфрейма к каноничному виду ("60m" -> "1h").
func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	switch s {
	case "60m", "1h":
		return "1h"
	case "240m", "4h":
		return "4h"
	case "24h", "1d":
		return "1d"
	default:
		return s
	}
}

// TFDuration — длительность таймфрейма. 0 если формат неизвестен.
func TFDuration(tf string) time.Duration {
	switch NormTF(tf) {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return 0
	}
}

// RoundDownToStep округляет количество вниз к шагу лота биржи.
func RoundDownToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	steps := math.Floor(qty/step + 1e-9)
	return steps * step
}

// RoundDownToTick округляет цену вниз к шагу цены.
func RoundDownToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Floor(px/tick + 1e-12)
	return steps * tick
}

// RoundUpToTick округляет цену вверх к шагу цены.
func RoundUpToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Ceil(px/tick - 1e-12)
	return steps * tick
}

// Round8 — округление уровней сигнала до 8 знаков (формат биржи).
func Round8(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}
