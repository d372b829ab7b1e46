package utils

import (
	"math"
	"testing"
)

func TestFavorableExcursion(t *testing.T) {
	tests := []struct {
		name     string
		isLong   bool
		entry    float64
		high     float64
		low      float64
		expected float64
	}{
		{
			name:     "long in profit",
			isLong:   true,
			entry:    1.1000,
			high:     1.1046,
			low:      1.0990,
			expected: 0.0046,
		},
		{
			name:     "long underwater",
			isLong:   true,
			entry:    1.1000,
			high:     1.0995,
			low:      1.0970,
			expected: -0.0005,
		},
		{
			name:     "short in profit",
			isLong:   false,
			entry:    1.1000,
			high:     1.1010,
			low:      1.0954,
			expected: 0.0046,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FavorableExcursion(tt.isLong, tt.entry, tt.high, tt.low)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("FavorableExcursion = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestFavorableRatio(t *testing.T) {
	// entry=1.1000, stop=1.0950 => risk=0.0050; high=1.1046 => fav=0.0046 => ratio=0.92
	ratio := FavorableRatio(true, 1.1000, 1.0950, 1.1046, 1.0990)
	if math.Abs(ratio-0.92) > 1e-9 {
		t.Errorf("FavorableRatio = %v, want 0.92", ratio)
	}
}

func TestFavorableRatio_ZeroRisk(t *testing.T) {
	// Стоп на входе: дистанция риска ноль, ratio должен быть 0, не NaN/Inf
	ratio := FavorableRatio(true, 1.1000, 1.1000, 1.2000, 1.0000)
	if ratio != 0 {
		t.Errorf("при нулевом риске ratio должен быть 0, получили %v", ratio)
	}
}

func TestPriceMoveSignificant(t *testing.T) {
	if !PriceMoveSignificant(1.1000, 1.0990, 0.0010) {
		t.Error("сдвиг в 10 пипсов при пороге 10 значим")
	}
	if PriceMoveSignificant(1.1000, 1.09995, 0.0010) {
		t.Error("сдвиг в полпипса при пороге 10 не значим")
	}
	if !PriceMoveSignificant(1.0990, 1.1000, 0.0010) {
		t.Error("значимость симметрична по знаку")
	}
}
