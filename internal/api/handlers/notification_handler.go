package handlers

import (
	"net/http"
	"strconv"

	"orion-brain/internal/models"
	"orion-brain/pkg/utils"
)

// NotificationReader - срез журнала уведомлений, нужный API
type NotificationReader interface {
	GetRecent(limit int) ([]*models.Notification, error)
	GetByPair(pair string, limit int) ([]*models.Notification, error)
	DeleteAll() (int64, error)
}

// NotificationHandler отвечает за журнал уведомлений
//
// Endpoints:
// - GET /api/v1/notifications - последние уведомления
// - GET /api/v1/notifications?pair=EURUSD - по одной паре
// - GET /api/v1/notifications?limit=50 - с ограничением количества
// - DELETE /api/v1/notifications - очистка журнала
type NotificationHandler struct {
	notifications NotificationReader
}

// NewNotificationHandler создает новый NotificationHandler
func NewNotificationHandler(notifications NotificationReader) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GetNotificationsResponse представляет ответ списка уведомлений
type GetNotificationsResponse struct {
	Notifications []*models.Notification `json:"notifications"`
	Total         int                    `json:"total"`
}

// GetNotifications возвращает журнал уведомлений
//
// GET /api/v1/notifications
//
// Query параметры:
// - pair (string): фильтр по паре (EURUSD)
// - limit (int): количество записей (по умолчанию 100, максимум 500)
//
// HTTP коды:
// - 200 OK: успешно
// - 400 Bad Request: невалидная пара в фильтре
// - 500 Internal Server Error: ошибка хранилища
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if lp := r.URL.Query().Get("limit"); lp != "" {
		if parsed, err := strconv.Atoi(lp); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 500 {
		limit = 500
	}

	var (
		notifications []*models.Notification
		err           error
	)
	if pair := r.URL.Query().Get("pair"); pair != "" {
		pair = utils.NormalizePairSymbol(pair)
		if vErr := utils.ValidatePairSymbol(pair); vErr != nil {
			respondWithError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		notifications, err = h.notifications.GetByPair(pair, limit)
	} else {
		notifications, err = h.notifications.GetRecent(limit)
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get notifications: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetNotificationsResponse{
		Notifications: notifications,
		Total:         len(notifications),
	})
}

// ClearNotificationsResponse представляет ответ очистки журнала
type ClearNotificationsResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

// ClearNotifications очищает журнал уведомлений
//
// DELETE /api/v1/notifications
//
// Удаляет все уведомления из базы данных. Действие необратимо.
//
// HTTP коды:
// - 200 OK: журнал очищен
// - 500 Internal Server Error: ошибка при очистке
func (h *NotificationHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.notifications.DeleteAll()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to clear notifications: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, ClearNotificationsResponse{
		Message: "Notifications cleared successfully",
		Deleted: deleted,
	})
}
