package repository

import (
	"database/sql"
	"errors"
	"time"

	"orion-brain/internal/models"
)

// Ошибки репозитория позиций
var (
	ErrPositionNotFound = errors.New("position not found")
	ErrPositionClosed   = errors.New("position already closed")
)

// PositionRepository - работа с таблицами positions и pair_counters
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository создает новый экземпляр репозитория
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

const positionColumns = `id, pair, side, mode, entry_price, stop_price, trail_price, trail_on,
		opened_at, closed_at, close_reason, last_bar_ts, last_swing_price, last_swing_ts`

func scanPosition(row interface{ Scan(...interface{}) error }) (*models.Position, error) {
	p := &models.Position{}
	err := row.Scan(
		&p.ID,
		&p.Pair,
		&p.Side,
		&p.Mode,
		&p.EntryPrice,
		&p.StopPrice,
		&p.TrailPrice,
		&p.TrailOn,
		&p.OpenedAt,
		&p.ClosedAt,
		&p.CloseReason,
		&p.LastBarTS,
		&p.LastSwingPrice,
		&p.LastSwingTS,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create создает запись о позиции
func (r *PositionRepository) Create(p *models.Position) error {
	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(
		query,
		p.ID,
		p.Pair,
		p.Side,
		p.Mode,
		p.EntryPrice,
		p.StopPrice,
		p.TrailPrice,
		p.TrailOn,
		p.OpenedAt,
		p.ClosedAt,
		p.CloseReason,
		p.LastBarTS,
		p.LastSwingPrice,
		p.LastSwingTS,
	)

	return err
}

// GetOpen возвращает открытую позицию пары, если она есть
func (r *PositionRepository) GetOpen(pair string) (*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE pair = $1 AND closed_at IS NULL`

	p, err := scanPosition(r.db.QueryRow(query, pair))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}

	return p, nil
}

// GetByID возвращает позицию по идентификатору
func (r *PositionRepository) GetByID(id string) (*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE id = $1`

	p, err := scanPosition(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}

	return p, nil
}

// ListOpen возвращает все открытые позиции
func (r *PositionRepository) ListOpen() ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE closed_at IS NULL
		ORDER BY opened_at ASC`

	return r.queryPositions(query)
}

// ListRecent возвращает последние limit позиций (открытые и закрытые)
func (r *PositionRepository) ListRecent(limit int) ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		ORDER BY opened_at DESC
		LIMIT $1`

	return r.queryPositions(query, limit)
}

func (r *PositionRepository) queryPositions(query string, args ...interface{}) ([]*models.Position, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return positions, nil
}

// UpdateTrail обновляет трейл и состояние отслеживания структуры.
// Вызывается только для открытой позиции - закрытая не изменяется.
func (r *PositionRepository) UpdateTrail(p *models.Position) error {
	query := `
		UPDATE positions
		SET trail_price = $1, trail_on = $2, last_bar_ts = $3,
			last_swing_price = $4, last_swing_ts = $5
		WHERE id = $6 AND closed_at IS NULL`

	result, err := r.db.Exec(
		query,
		p.TrailPrice,
		p.TrailOn,
		p.LastBarTS,
		p.LastSwingPrice,
		p.LastSwingTS,
		p.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrPositionClosed
	}

	return nil
}

// Close закрывает позицию с указанием причины
func (r *PositionRepository) Close(id string, reason string, closedAt time.Time) error {
	query := `
		UPDATE positions
		SET closed_at = $1, close_reason = $2
		WHERE id = $3 AND closed_at IS NULL`

	result, err := r.db.Exec(query, closedAt, reason, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrPositionClosed
	}

	return nil
}

// NextSequence инкрементирует счетчик пары и возвращает новое значение.
// Используется для генерации идентификаторов позиций.
func (r *PositionRepository) NextSequence(pair string) (int, error) {
	query := `
		INSERT INTO pair_counters (pair, seq)
		VALUES ($1, 1)
		ON CONFLICT (pair)
		DO UPDATE SET seq = pair_counters.seq + 1
		RETURNING seq`

	var seq int
	err := r.db.QueryRow(query, pair).Scan(&seq)
	if err != nil {
		return 0, err
	}

	return seq, nil
}

// CountClosed возвращает количество закрытых позиций с данной причиной
func (r *PositionRepository) CountClosed(reason string) (int, error) {
	query := `SELECT COUNT(*) FROM positions WHERE closed_at IS NOT NULL AND close_reason = $1`

	var count int
	err := r.db.QueryRow(query, reason).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
