package indicator

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestSMA_ConstantSeries(t *testing.T) {
	series := make([]float64, 30)
	for i := range series {
		series[i] = 42.5
	}

	out, err := SMA(series, 7)
	if err != nil {
		t.Fatalf("SMA: %v", err)
	}
	if len(out) != 24 {
		t.Fatalf("expected len 24, got %d", len(out))
	}
	for i, v := range out {
		if !almostEqual(v, 42.5, 1e-12) {
			t.Errorf("out[%d] = %v, want 42.5", i, v)
		}
	}
}

func TestSMA_KnownValues(t *testing.T) {
	out, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("SMA: %v", err)
	}
	want := []float64{2, 3, 4}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if !almostEqual(out[i], want[i], 1e-12) {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestSMA_InsufficientData(t *testing.T) {
	if _, err := SMA([]float64{1, 2}, 3); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestEMA_LengthAndSeed(t *testing.T) {
	series := []float64{10, 11, 12, 13, 14, 15}
	out, err := EMA(series, 3)
	if err != nil {
		t.Fatalf("EMA: %v", err)
	}
	if len(out) != len(series) {
		t.Fatalf("len = %d, want %d", len(out), len(series))
	}
	if out[0] != series[0] {
		t.Errorf("seed = %v, want %v", out[0], series[0])
	}
	// k = 0.5: 10, 10.5, 11.25, 12.125, ...
	if !almostEqual(out[2], 11.25, 1e-12) {
		t.Errorf("out[2] = %v, want 11.25", out[2])
	}
}

func TestEMA_InsufficientData(t *testing.T) {
	if _, err := EMA([]float64{1}, 5); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestRSI_AllGains(t *testing.T) {
	series := make([]float64, 50)
	for i := range series {
		series[i] = 100 + float64(i)
	}

	out, err := RSI(series, 14)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	if got := out[len(out)-1]; got != 100 {
		t.Errorf("rsi = %v, want 100", got)
	}
}

func TestRSI_AllLosses(t *testing.T) {
	series := make([]float64, 50)
	for i := range series {
		series[i] = 200 - float64(i)
	}

	out, err := RSI(series, 14)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	if got := out[len(out)-1]; got != 0 {
		t.Errorf("rsi = %v, want 0", got)
	}
}

func TestRSI_Bounded(t *testing.T) {
	series := []float64{44, 44.3, 44.1, 43.6, 44.3, 44.8, 45.1, 45.4, 45.4, 45.9,
		46.1, 45.9, 46.3, 46.3, 46.0, 46.0, 46.4, 46.2, 45.6, 46.2, 46.2}

	out, err := RSI(series, 14)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	for i, v := range out {
		if v < 0 || v > 100 {
			t.Errorf("out[%d] = %v out of [0,100]", i, v)
		}
	}
	// в смешанном ряду с перевесом роста RSI должен быть выше середины
	if last := out[len(out)-1]; last <= 50 {
		t.Errorf("rsi = %v, want > 50", last)
	}
}

func TestRSI_Deterministic(t *testing.T) {
	series := []float64{10, 11, 10.5, 12, 11.8, 12.4, 13, 12.2, 12.9, 13.5,
		13.1, 13.8, 14.2, 13.9, 14.5, 15, 14.4, 15.1, 15.6, 15.2}

	a, err := RSI(series, 14)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	b, err := RSI(series, 14)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("out[%d] differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestRSI_InsufficientData(t *testing.T) {
	if _, err := RSI(make([]float64, 14), 14); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestMACD_FlatSeries(t *testing.T) {
	series := make([]float64, 60)
	for i := range series {
		series[i] = 50
	}

	macd, sig, hist, err := MACD(series, 12, 26, 9)
	if err != nil {
		t.Fatalf("MACD: %v", err)
	}
	if !almostEqual(macd, 0, 1e-9) || !almostEqual(sig, 0, 1e-9) || !almostEqual(hist, 0, 1e-9) {
		t.Errorf("flat series: macd=%v signal=%v hist=%v, want zeros", macd, sig, hist)
	}
}

func TestMACD_TrendSign(t *testing.T) {
	up := make([]float64, 60)
	for i := range up {
		up[i] = 100 + float64(i)*0.5
	}

	macd, _, _, err := MACD(up, 12, 26, 9)
	if err != nil {
		t.Fatalf("MACD: %v", err)
	}
	// в устойчивом росте быстрая EMA выше медленной
	if macd <= 0 {
		t.Errorf("macd = %v, want > 0 on uptrend", macd)
	}
}

func TestMACD_InsufficientData(t *testing.T) {
	if _, _, _, err := MACD(make([]float64, 30), 12, 26, 9); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestBollinger_FlatSeries(t *testing.T) {
	series := make([]float64, 25)
	for i := range series {
		series[i] = 77
	}

	up, mid, low, err := Bollinger(series, 20, 2)
	if err != nil {
		t.Fatalf("Bollinger: %v", err)
	}
	if up != 77 || mid != 77 || low != 77 {
		t.Errorf("flat series: %v/%v/%v, want 77/77/77", up, mid, low)
	}
}

func TestBollinger_KnownWindow(t *testing.T) {
	// окно 2,4,4,4,5,5,7,9: mean=5, population std=2
	series := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	up, mid, low, err := Bollinger(series, 8, 2)
	if err != nil {
		t.Fatalf("Bollinger: %v", err)
	}
	if !almostEqual(mid, 5, 1e-12) {
		t.Errorf("middle = %v, want 5", mid)
	}
	if !almostEqual(up, 9, 1e-12) {
		t.Errorf("upper = %v, want 9", up)
	}
	if !almostEqual(low, 1, 1e-12) {
		t.Errorf("lower = %v, want 1", low)
	}
}

func TestBollinger_InsufficientData(t *testing.T) {
	if _, _, _, err := Bollinger(make([]float64, 10), 20, 2); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}
