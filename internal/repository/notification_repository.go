package repository

import (
	"database/sql"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"

	"orion-brain/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ошибки репозитория уведомлений
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// NotificationRepository - журнал уведомлений
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create записывает уведомление. Meta сериализуется в JSON.
func (r *NotificationRepository) Create(n *models.Notification) error {
	query := `
		INSERT INTO notifications (timestamp, type, severity, pair, position_id, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var meta sql.NullString
	if len(n.Meta) > 0 {
		raw, err := json.Marshal(n.Meta)
		if err != nil {
			return err
		}
		meta = sql.NullString{String: string(raw), Valid: true}
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}

	return r.db.QueryRow(
		query,
		n.Timestamp,
		n.Type,
		n.Severity,
		nullString(n.Pair),
		nullString(n.PositionID),
		n.Message,
		meta,
	).Scan(&n.ID)
}

// GetRecent возвращает последние limit уведомлений (новые первыми)
func (r *NotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, pair, position_id, message, meta
		FROM notifications
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var pair, positionID, meta sql.NullString
		err := rows.Scan(&n.ID, &n.Timestamp, &n.Type, &n.Severity, &pair, &positionID, &n.Message, &meta)
		if err != nil {
			return nil, err
		}
		n.Pair = pair.String
		n.PositionID = positionID.String
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &n.Meta); err != nil {
				return nil, err
			}
		}
		notifications = append(notifications, n)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

// GetByPair возвращает последние уведомления по паре
func (r *NotificationRepository) GetByPair(pair string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, pair, position_id, message, meta
		FROM notifications
		WHERE pair = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, pair, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var p, positionID, meta sql.NullString
		err := rows.Scan(&n.ID, &n.Timestamp, &n.Type, &n.Severity, &p, &positionID, &n.Message, &meta)
		if err != nil {
			return nil, err
		}
		n.Pair = p.String
		n.PositionID = positionID.String
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &n.Meta); err != nil {
				return nil, err
			}
		}
		notifications = append(notifications, n)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

// DeleteOlderThan удаляет уведомления старше указанной даты
func (r *NotificationRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE timestamp < $1`

	result, err := r.db.Exec(query, timestamp)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// DeleteAll очищает журнал уведомлений
func (r *NotificationRepository) DeleteAll() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM notifications`)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
