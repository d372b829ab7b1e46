package indicator

import (
	"testing"
)

func TestIsPivotLow(t *testing.T) {
	// минимумы [5, 4, 3, 4, 5]: единственный фрактальный минимум с k=2 - индекс 2
	candles := bars(
		[3]float64{6.0, 5.0, 5.5},
		[3]float64{5.0, 4.0, 4.5},
		[3]float64{4.0, 3.0, 3.5},
		[3]float64{5.0, 4.0, 4.5},
		[3]float64{6.0, 5.0, 5.5},
	)

	for i := range candles {
		got := IsPivotLow(candles, i, 2)
		want := i == 2
		if got != want {
			t.Errorf("IsPivotLow(i=%d, k=2) = %v, want %v", i, got, want)
		}
	}
}

func TestIsPivotLowPlateauRejected(t *testing.T) {
	// равный минимум слева: строгое сравнение отвергает кандидата
	candles := bars(
		[3]float64{6.0, 5.0, 5.5},
		[3]float64{4.0, 3.0, 3.5},
		[3]float64{4.0, 3.0, 3.5},
		[3]float64{5.0, 4.0, 4.5},
		[3]float64{6.0, 5.0, 5.5},
	)

	if IsPivotLow(candles, 2, 2) {
		t.Error("plateau must not be a pivot")
	}
}

func TestIsPivotHigh(t *testing.T) {
	candles := bars(
		[3]float64{5.0, 4.0, 4.5},
		[3]float64{6.0, 5.0, 5.5},
		[3]float64{7.0, 6.0, 6.5},
		[3]float64{6.0, 5.0, 5.5},
		[3]float64{5.0, 4.0, 4.5},
	)

	for i := range candles {
		got := IsPivotHigh(candles, i, 2)
		want := i == 2
		if got != want {
			t.Errorf("IsPivotHigh(i=%d, k=2) = %v, want %v", i, got, want)
		}
	}
}

func TestPivotEdgesExcluded(t *testing.T) {
	// края ряда не имеют полного контекста и разворотом не считаются
	candles := bars(
		[3]float64{4.0, 3.0, 3.5},
		[3]float64{5.0, 4.0, 4.5},
		[3]float64{6.0, 5.0, 5.5},
	)

	if IsPivotLow(candles, 0, 2) {
		t.Error("edge bar must not be a pivot low")
	}
	if IsPivotHigh(candles, 2, 2) {
		t.Error("edge bar must not be a pivot high")
	}
}

func TestPivotEligibleIndex(t *testing.T) {
	tests := []struct {
		name   string
		n, k   int
		want   int
		wantOK bool
	}{
		{"enough context", 10, 2, 7, true},
		{"exactly minimal", 5, 2, 2, true},
		{"too short", 4, 2, 0, false},
		{"zero k", 10, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, ok := PivotEligibleIndex(tt.n, tt.k)
			if ok != tt.wantOK || i != tt.want {
				t.Errorf("PivotEligibleIndex(%d, %d) = (%d, %v), want (%d, %v)",
					tt.n, tt.k, i, ok, tt.want, tt.wantOK)
			}
		})
	}
}
