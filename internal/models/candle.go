package models

import "time"

// Timeframe - таймфрейм свечи на фиксированной сетке времени
type Timeframe string

// Поддерживаемые таймфреймы
const (
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
)

// Duration возвращает ширину бакета таймфрейма
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe15m:
		return 15 * time.Minute
	case Timeframe1h:
		return time.Hour
	}
	return 0
}

// Valid проверяет что таймфрейм поддерживается
func (tf Timeframe) Valid() bool {
	return tf == Timeframe15m || tf == Timeframe1h
}

// Candle представляет одну OHLC свечу для пары и таймфрейма
//
// Инварианты:
// - TS всегда UTC и выровнен на сетку таймфрейма (:00/:15/:30/:45 для 15m)
// - TS это время ЗАКРЫТИЯ свечи, не открытия
// - Ключ (Pair, Timeframe, TS) уникален; повторная запись перезаписывает OHLC
type Candle struct {
	Pair      string    `json:"pair" db:"pair"`           // EURUSD
	Timeframe Timeframe `json:"tf" db:"tf"`               // 15m, 1h
	TS        time.Time `json:"time" db:"ts"`             // close timestamp, UTC
	Open      float64   `json:"open" db:"open"`
	High      float64   `json:"high" db:"high"`
	Low       float64   `json:"low" db:"low"`
	Close     float64   `json:"close" db:"close"`
}
