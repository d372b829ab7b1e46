package models

import (
	"fmt"
	"time"
)

// Сторона позиции
const (
	SideLong  = "LONG"
	SideShort = "SHORT"
)

// Режим входа
const (
	ModeEarly     = "EARLY"     // ранний вход, трейл активируется раньше
	ModeConfirmed = "CONFIRMED" // подтвержденный вход
)

// Причина закрытия позиции
const (
	CloseReasonStop  = "STOP"  // сработал начальный стоп
	CloseReasonTrail = "TRAIL" // сработал трейлинг-стоп
)

// Position представляет одну открытую или закрытую позицию
//
// Жизненный цикл (state machine):
//
//	OPEN_UNARMED -> OPEN_ARMED -> CLOSED(STOP|TRAIL)
//	OPEN_UNARMED -> CLOSED(STOP)
//
// CLOSED терминально. TrailOn взводится один раз и не снимается.
//
// Инварианты:
// - не более одной открытой позиции (ClosedAt == nil) на пару
// - TrailPrice после взведения двигается только в сторону ужесточения риска
//   и никогда не бывает слабее исходного StopPrice
// - LastBarTS - маркер идемпотентности: движок обрабатывает каждую закрытую
//   свечу не более одного раза
type Position struct {
	ID   string `json:"id" db:"id"`     // TR-{PAIR}-{seq}-OR
	Pair string `json:"pair" db:"pair"` // EURUSD
	Side string `json:"side" db:"side"` // LONG, SHORT
	Mode string `json:"mode" db:"mode"` // EARLY, CONFIRMED

	EntryPrice float64 `json:"entry_price" db:"entry_price"`
	StopPrice  float64 `json:"stop_price" db:"stop_price"` // фиксированная граница начального риска

	// Трейлинг
	TrailPrice *float64 `json:"trail_price,omitempty" db:"trail_price"` // nil пока не взведен
	TrailOn    bool     `json:"trail_on" db:"trail_on"`

	// Жизненный цикл
	OpenedAt    time.Time  `json:"opened_at" db:"opened_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	CloseReason *string    `json:"close_reason,omitempty" db:"close_reason"`

	// Состояние движка
	LastBarTS      *time.Time `json:"last_bar_ts,omitempty" db:"last_bar_ts"`
	LastSwingPrice *float64   `json:"last_swing_price,omitempty" db:"last_swing_price"`
	LastSwingTS    *time.Time `json:"last_swing_ts,omitempty" db:"last_swing_ts"`
}

// IsOpen возвращает true если позиция еще не закрыта
func (p *Position) IsOpen() bool {
	return p.ClosedAt == nil
}

// RiskDistance возвращает начальную дистанцию риска |entry - stop|
func (p *Position) RiskDistance() float64 {
	d := p.EntryPrice - p.StopPrice
	if d < 0 {
		return -d
	}
	return d
}

// EffectiveTrail возвращает текущий трейл или начальный стоп если трейл не установлен
func (p *Position) EffectiveTrail() float64 {
	if p.TrailPrice != nil {
		return *p.TrailPrice
	}
	return p.StopPrice
}

// ValidSide проверяет сторону позиции
func ValidSide(side string) bool {
	return side == SideLong || side == SideShort
}

// ValidMode проверяет режим входа
func ValidMode(mode string) bool {
	return mode == ModeEarly || mode == ModeConfirmed
}

// PositionID формирует человекочитаемый идентификатор позиции
// Формат: TR-{PAIR}-{seq:06d}-OR
func PositionID(pair string, seq int64) string {
	return fmt.Sprintf("TR-%s-%06d-OR", pair, seq)
}
