// Package indicator содержит расчеты индикаторов по свечным рядам.
package indicator

import (
	"math"

	"orion-brain/internal/models"
)

// TrueRange возвращает истинный диапазон бара i ряда candles.
// Для первого бара ряда предыдущего закрытия нет - берется high-low.
func TrueRange(candles []models.Candle, i int) float64 {
	c := candles[i]
	hl := c.High - c.Low
	if i == 0 {
		return hl
	}

	prevClose := candles[i-1].Close
	hc := math.Abs(c.High - prevClose)
	lc := math.Abs(c.Low - prevClose)

	return math.Max(hl, math.Max(hc, lc))
}

// ATR возвращает ряд среднего истинного диапазона: скользящее среднее
// TR по окну n.
//
// Результат выравнен с входным рядом: atr[i] соответствует candles[i].
// Первые n-1 значений не определены и равны NaN - истории еще не
// хватает на полное окно.
func ATR(candles []models.Candle, n int) []float64 {
	out := make([]float64, len(candles))
	if n < 1 || len(candles) < n {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	tr := make([]float64, len(candles))
	var sum float64
	for i := 0; i < len(candles); i++ {
		tr[i] = TrueRange(candles, i)
		sum += tr[i]

		if i < n-1 {
			out[i] = math.NaN()
			continue
		}
		if i >= n {
			sum -= tr[i-n]
		}
		out[i] = sum / float64(n)
	}

	return out
}

// LastATR возвращает последнее значение ATR ряда.
// Второй результат false, если истории не хватает на окно.
func LastATR(candles []models.Candle, n int) (float64, bool) {
	if len(candles) < n || n < 1 {
		return 0, false
	}
	series := ATR(candles, n)
	last := series[len(series)-1]
	if math.IsNaN(last) {
		return 0, false
	}
	return last, true
}
