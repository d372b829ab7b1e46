package models

import "errors"

// Ошибки валидации сигнала
var (
	ErrSignalNil       = errors.New("signal is nil")
	ErrSignalBadSide   = errors.New("signal side must be LONG or SHORT")
	ErrSignalBadMode   = errors.New("signal mode must be EARLY or CONFIRMED")
	ErrSignalBadPrices = errors.New("signal entry/stop prices must be positive and distinct")
)

// EntrySignal - торговый сигнал от внешнего стратегического сервиса
//
// Сервис возвращает либо {"signal": null}, либо структуру ниже.
// Некорректный сигнал трактуется как отсутствие сигнала, не как ошибка -
// проход по остальным парам продолжается.
type EntrySignal struct {
	SignalID string  `json:"signal_id,omitempty"` // для дедупликации, опционален
	Side     string  `json:"side"`                // LONG, SHORT
	Mode     string  `json:"mode"`                // EARLY, CONFIRMED
	Entry    float64 `json:"entry"`
	Stop     float64 `json:"sl"`

	Meta map[string]interface{} `json:"meta,omitempty"`
}

// Validate проверяет обязательные поля сигнала
func (s *EntrySignal) Validate() error {
	if s == nil {
		return ErrSignalNil
	}
	if !ValidSide(s.Side) {
		return ErrSignalBadSide
	}
	if !ValidMode(s.Mode) {
		return ErrSignalBadMode
	}
	if s.Entry <= 0 || s.Stop <= 0 || s.Entry == s.Stop {
		return ErrSignalBadPrices
	}
	// Стоп должен быть с защитной стороны от входа
	if s.Side == SideLong && s.Stop >= s.Entry {
		return ErrSignalBadPrices
	}
	if s.Side == SideShort && s.Stop <= s.Entry {
		return ErrSignalBadPrices
	}
	return nil
}
