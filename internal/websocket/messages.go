package websocket

import (
	"time"

	"orion-brain/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeNotification - новое уведомление движка
	// Отправляется при событиях: вход, стоп, трейл, ошибки
	MessageTypeNotification MessageType = "notification"

	// MessageTypeRunReport - итог прогона по вселенной пар
	// Отправляется после каждого RunOnce
	MessageTypeRunReport MessageType = "runReport"

	// MessageTypePositionUpdate - изменение состояния позиции
	// Отправляется при открытии, движении трейла и закрытии
	MessageTypePositionUpdate MessageType = "positionUpdate"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// NotificationMessage - сообщение о новом уведомлении
type NotificationMessage struct {
	BaseMessage
	Data *NotificationData `json:"data"`
}

// NotificationData - данные уведомления
type NotificationData struct {
	ID         int                    `json:"id"`
	Type       string                 `json:"type"`     // ENTRY, STOP, TRAIL_EXIT, TRAIL_ON, TRAIL_UPDATE, ERROR
	Severity   string                 `json:"severity"` // info, warn, error
	Pair       string                 `json:"pair,omitempty"`
	PositionID string                 `json:"position_id,omitempty"`
	Message    string                 `json:"message"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// RunReportMessage - сообщение с итогом прогона
type RunReportMessage struct {
	BaseMessage
	Data *models.RunReport `json:"data"`
}

// PositionUpdateMessage - сообщение об изменении позиции
type PositionUpdateMessage struct {
	BaseMessage
	Data *models.Position `json:"data"`
}

// NewNotificationMessage создает сообщение уведомления
func NewNotificationMessage(notif *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeNotification,
			Timestamp: time.Now().UTC(),
		},
		Data: &NotificationData{
			ID:         notif.ID,
			Type:       notif.Type,
			Severity:   notif.Severity,
			Pair:       notif.Pair,
			PositionID: notif.PositionID,
			Message:    notif.Message,
			Meta:       notif.Meta,
			Timestamp:  notif.Timestamp,
		},
	}
}

// NewRunReportMessage создает сообщение итога прогона
func NewRunReportMessage(report *models.RunReport) *RunReportMessage {
	return &RunReportMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeRunReport,
			Timestamp: time.Now().UTC(),
		},
		Data: report,
	}
}

// NewPositionUpdateMessage создает сообщение об изменении позиции
func NewPositionUpdateMessage(p *models.Position) *PositionUpdateMessage {
	return &PositionUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypePositionUpdate,
			Timestamp: time.Now().UTC(),
		},
		Data: p,
	}
}
