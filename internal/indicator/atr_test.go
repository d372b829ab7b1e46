package indicator

import (
	"math"
	"testing"
	"time"

	"orion-brain/internal/models"
)

// bars строит ряд свечей из троек (high, low, close)
func bars(hlc ...[3]float64) []models.Candle {
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, 0, len(hlc))
	for i, v := range hlc {
		out = append(out, models.Candle{
			Pair:      "EURUSD",
			Timeframe: models.Timeframe15m,
			TS:        base.Add(time.Duration(i) * 15 * time.Minute),
			Open:      v[2],
			High:      v[0],
			Low:       v[1],
			Close:     v[2],
		})
	}
	return out
}

func TestTrueRange(t *testing.T) {
	candles := bars(
		[3]float64{1.10, 1.00, 1.05},
		[3]float64{1.08, 1.04, 1.06}, // hl=0.04, |h-pc|=0.03, |l-pc|=0.01
		[3]float64{1.20, 1.10, 1.15}, // гэп вверх: |h-pc|=0.14 больше hl
	)

	if tr := TrueRange(candles, 0); math.Abs(tr-0.10) > 1e-9 {
		t.Errorf("TR[0] = %v, want 0.10 (no previous close)", tr)
	}
	if tr := TrueRange(candles, 1); math.Abs(tr-0.04) > 1e-9 {
		t.Errorf("TR[1] = %v, want 0.04", tr)
	}
	if tr := TrueRange(candles, 2); math.Abs(tr-0.14) > 1e-9 {
		t.Errorf("TR[2] = %v, want 0.14 (gap dominates)", tr)
	}
}

func TestATRAlignment(t *testing.T) {
	candles := bars(
		[3]float64{1.10, 1.00, 1.05},
		[3]float64{1.12, 1.02, 1.07},
		[3]float64{1.14, 1.04, 1.09},
		[3]float64{1.16, 1.06, 1.11},
		[3]float64{1.18, 1.08, 1.13},
	)

	atr := ATR(candles, 3)

	if len(atr) != len(candles) {
		t.Fatalf("len(atr) = %d, want %d", len(atr), len(candles))
	}
	// первые n-1 значений не определены
	for i := 0; i < 2; i++ {
		if !math.IsNaN(atr[i]) {
			t.Errorf("atr[%d] = %v, want NaN", i, atr[i])
		}
	}
	for i := 2; i < len(atr); i++ {
		if math.IsNaN(atr[i]) {
			t.Errorf("atr[%d] = NaN, want defined", i)
		}
	}
}

func TestATRRollingMean(t *testing.T) {
	// диапазоны 0.10, 0.04, 0.08, 0.06: скользящее среднее окна 2
	candles := bars(
		[3]float64{1.10, 1.00, 1.05},
		[3]float64{1.08, 1.04, 1.06},
		[3]float64{1.12, 1.04, 1.08},
		[3]float64{1.12, 1.06, 1.09},
	)

	atr := ATR(candles, 2)

	want := []float64{math.NaN(), 0.07, 0.06, 0.07}
	for i := 1; i < len(atr); i++ {
		if math.Abs(atr[i]-want[i]) > 1e-9 {
			t.Errorf("atr[%d] = %v, want %v", i, atr[i], want[i])
		}
	}
}

func TestATRInsufficientHistory(t *testing.T) {
	candles := bars(
		[3]float64{1.10, 1.00, 1.05},
		[3]float64{1.12, 1.02, 1.07},
	)

	atr := ATR(candles, 14)
	for i, v := range atr {
		if !math.IsNaN(v) {
			t.Errorf("atr[%d] = %v, want NaN for short history", i, v)
		}
	}

	if _, ok := LastATR(candles, 14); ok {
		t.Error("LastATR must report insufficient history")
	}
}

func TestLastATR(t *testing.T) {
	candles := bars(
		[3]float64{1.10, 1.00, 1.05},
		[3]float64{1.10, 1.00, 1.05},
		[3]float64{1.10, 1.00, 1.05},
	)

	v, ok := LastATR(candles, 2)
	if !ok {
		t.Fatal("expected defined ATR")
	}
	if math.Abs(v-0.10) > 1e-9 {
		t.Errorf("LastATR = %v, want 0.10", v)
	}
}
