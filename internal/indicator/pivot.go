package indicator

import "orion-brain/internal/models"

// Фрактальные развороты: бар является разворотом, только если его
// экстремум строго лучше экстремумов k баров с каждой стороны.
// Равенство не считается - плато разворотом не является.

// IsPivotLow сообщает, является ли бар i фрактальным минимумом с
// контекстом k. Краевые бары, где контекста не хватает, разворотом
// быть не могут.
func IsPivotLow(candles []models.Candle, i, k int) bool {
	if k < 1 || i < k || i+k >= len(candles) {
		return false
	}

	low := candles[i].Low
	for j := i - k; j <= i+k; j++ {
		if j == i {
			continue
		}
		if candles[j].Low <= low {
			return false
		}
	}

	return true
}

// IsPivotHigh сообщает, является ли бар i фрактальным максимумом с
// контекстом k
func IsPivotHigh(candles []models.Candle, i, k int) bool {
	if k < 1 || i < k || i+k >= len(candles) {
		return false
	}

	high := candles[i].High
	for j := i - k; j <= i+k; j++ {
		if j == i {
			continue
		}
		if candles[j].High >= high {
			return false
		}
	}

	return true
}

// PivotEligibleIndex возвращает индекс последнего бара, для которого
// уже есть k закрытых баров контекста справа. В потоковом кэше именно
// этот бар проверяется на разворот при каждом новом закрытии.
// Второй результат false, если ряду не хватает длины.
func PivotEligibleIndex(n, k int) (int, bool) {
	i := n - 1 - k
	if k < 1 || i < k {
		return 0, false
	}
	return i, true
}
