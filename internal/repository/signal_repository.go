package repository

import (
	"database/sql"

	"orion-brain/internal/models"
)

// SignalRepository - журнал принятых входных сигналов.
// Служит для дедупликации: повторный сигнал с тем же signal_id игнорируется.
type SignalRepository struct {
	db *sql.DB
}

// NewSignalRepository создает новый экземпляр репозитория
func NewSignalRepository(db *sql.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Record записывает сигнал. Возвращает true, если сигнал новый,
// false - если такой signal_id уже встречался.
func (r *SignalRepository) Record(pair string, sig *models.EntrySignal) (bool, error) {
	query := `
		INSERT INTO signals (signal_id, pair, side, mode, entry, stop)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (signal_id) DO NOTHING`

	result, err := r.db.Exec(query, sig.SignalID, pair, sig.Side, sig.Mode, sig.Entry, sig.Stop)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// Seen проверяет, встречался ли сигнал ранее
func (r *SignalRepository) Seen(signalID string) (bool, error) {
	query := `SELECT COUNT(*) FROM signals WHERE signal_id = $1`

	var count int
	err := r.db.QueryRow(query, signalID).Scan(&count)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// Count возвращает общее количество принятых сигналов
func (r *SignalRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM signals`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
