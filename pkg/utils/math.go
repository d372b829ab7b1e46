package utils

import (
	"math"
)

// math.go - математические утилиты риск-движка
//
// Назначение:
// Чистые функции (pure functions) для расчетов вокруг позиции.
// Без состояния и побочных эффектов.
//
// Функции:
// - FavorableExcursion: движение в пользу позиции от точки входа
// - FavorableRatio: движение в пользу позиции в единицах начального риска
// - PriceMoveSignificant: проверка значимости изменения цены

// FavorableExcursion возвращает движение цены в пользу позиции
//
// Для LONG это high закрытой свечи минус вход, для SHORT - вход минус low.
// Отрицательное значение означает что свеча не выходила в плюс.
func FavorableExcursion(isLong bool, entry, barHigh, barLow float64) float64 {
	if isLong {
		return barHigh - entry
	}
	return entry - barLow
}

// FavorableRatio возвращает движение в пользу позиции в R (единицах риска)
//
// ratio = favorable_excursion / |entry - stop|
// При нулевой дистанции риска возвращает 0 (деление на ноль недопустимо,
// а позиция со стопом на входе не должна взводить трейл).
func FavorableRatio(isLong bool, entry, stop, barHigh, barLow float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return FavorableExcursion(isLong, entry, barHigh, barLow) / risk
}

// PriceMoveSignificant возвращает true если |a - b| >= threshold
//
// Используется для фильтрации шумовых пивотов (значимость в долях ATR)
// и для подавления уведомлений о микросдвигах трейла.
func PriceMoveSignificant(a, b, threshold float64) bool {
	return math.Abs(a-b) >= threshold
}
