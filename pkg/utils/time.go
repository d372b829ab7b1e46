package utils

import (
	"time"
)

// time.go - утилиты временной сетки таймфреймов
//
// Назначение:
// Выравнивание временных меток свечей на сетку таймфрейма.
// Поставщик данных отдает метки с дрейфом внутри бара (21:02, 21:17, ...),
// кэш же хранит только канонические границы (:00/:15/:30/:45 для 15m).
//
// Функции:
// - NormalizeToGrid: округление к БЛИЖАЙШЕЙ границе сетки
// - FloorToGrid: усечение вниз до границы сетки
// - IsGridAligned: проверка что метка уже на сетке
//
// Важно:
// Для нормализации входящих свечей используется ТОЛЬКО NormalizeToGrid.
// Усечение вниз (FloorToGrid) при дрейфе поставщика сталкивает свечу в
// предыдущий бакет и коллизия по ключу молча останавливает водяной знак
// синхронизации. FloorToGrid оставлен для вычисления границ окон, где
// округление вверх недопустимо.

// NormalizeToGrid выравнивает метку на ближайшую границу сетки шириной interval
//
// Реализация: сдвиг вперед на половину бакета, затем усечение.
// Середина бакета округляется вверх.
//
// Пример (15m):
//
//	21:07:10 -> 21:00:00
//	21:08:10 -> 21:15:00
//
// Всегда возвращает UTC. При interval <= 0 метка возвращается как есть.
func NormalizeToGrid(ts time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		return ts.UTC()
	}
	return ts.UTC().Add(interval / 2).Truncate(interval)
}

// FloorToGrid усекает метку вниз до границы сетки шириной interval
//
// Всегда возвращает UTC. При interval <= 0 метка возвращается как есть.
func FloorToGrid(ts time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		return ts.UTC()
	}
	return ts.UTC().Truncate(interval)
}

// IsGridAligned возвращает true если метка уже лежит на сетке
func IsGridAligned(ts time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	return ts.UTC().Truncate(interval).Equal(ts.UTC())
}
