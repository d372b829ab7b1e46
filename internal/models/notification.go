package models

import "time"

// Типы уведомлений
const (
	NotifyEntry       = "ENTRY"        // открыта новая позиция
	NotifyStop        = "STOP"         // сработал начальный стоп
	NotifyTrailExit   = "TRAIL_EXIT"   // закрытие по трейлинг-стопу
	NotifyTrailOn     = "TRAIL_ON"     // трейл взведен
	NotifyTrailUpdate = "TRAIL_UPDATE" // трейл передвинут
	NotifyError       = "ERROR"        // ошибка обработки пары
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)

// Notification представляет уведомление о событии движка
//
// Уведомления пишутся в журнал (БД), рассылаются WebSocket клиентам
// и отправляются в Telegram. Доставка fire-and-forget: движок никогда
// не блокируется на отправке.
type Notification struct {
	ID         int                    `json:"id" db:"id"`
	Timestamp  time.Time              `json:"timestamp" db:"timestamp"`
	Type       string                 `json:"type" db:"type"`         // ENTRY, STOP, TRAIL_EXIT, TRAIL_ON, TRAIL_UPDATE, ERROR
	Severity   string                 `json:"severity" db:"severity"` // info, warn, error
	Pair       string                 `json:"pair" db:"pair"`
	PositionID string                 `json:"position_id,omitempty" db:"position_id"`
	Message    string                 `json:"message" db:"message"`
	Meta       map[string]interface{} `json:"meta,omitempty" db:"meta"` // цены и прочие данные (JSON в БД)
}
