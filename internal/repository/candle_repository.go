package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"orion-brain/internal/models"
)

// Ошибки репозитория свечей
var (
	ErrNoCandles    = errors.New("no candles stored")
	ErrNoWatermark  = errors.New("no watermark stored")
	ErrEmptyBatch   = errors.New("empty candle batch")
	ErrMixedBatch   = errors.New("batch contains mixed pair or timeframe")
)

// CandleRepository - работа с таблицами candles и candle_state
type CandleRepository struct {
	db *sql.DB
}

// NewCandleRepository создает новый экземпляр репозитория
func NewCandleRepository(db *sql.DB) *CandleRepository {
	return &CandleRepository{db: db}
}

// UpsertBatch записывает пакет свечей одним запросом. Конфликт по
// (pair, timeframe, ts) перезаписывает OHLC - поставщик мог уточнить бар.
// Все свечи пакета должны принадлежать одной паре и одному таймфрейму.
func (r *CandleRepository) UpsertBatch(candles []models.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, ErrEmptyBatch
	}

	pair := candles[0].Pair
	tf := candles[0].Timeframe
	for _, c := range candles {
		if c.Pair != pair || c.Timeframe != tf {
			return 0, ErrMixedBatch
		}
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO candles (pair, timeframe, ts, open, high, low, close)
		VALUES `)

	args := make([]interface{}, 0, len(candles)*7)
	for i, c := range candles {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, c.Pair, string(c.Timeframe), c.TS, c.Open, c.High, c.Low, c.Close)
	}

	sb.WriteString(`
		ON CONFLICT (pair, timeframe, ts)
		DO UPDATE SET open = EXCLUDED.open, high = EXCLUDED.high,
			low = EXCLUDED.low, close = EXCLUDED.close`)

	result, err := r.db.Exec(sb.String(), args...)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return len(candles), nil
	}

	return int(affected), nil
}

// LatestTS возвращает ts самой свежей свечи пары/таймфрейма
func (r *CandleRepository) LatestTS(pair string, tf models.Timeframe) (time.Time, error) {
	query := `
		SELECT ts FROM candles
		WHERE pair = $1 AND timeframe = $2
		ORDER BY ts DESC
		LIMIT 1`

	var ts time.Time
	err := r.db.QueryRow(query, pair, string(tf)).Scan(&ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrNoCandles
		}
		return time.Time{}, err
	}

	return ts.UTC(), nil
}

// OldestTS возвращает ts самой старой свечи пары/таймфрейма
func (r *CandleRepository) OldestTS(pair string, tf models.Timeframe) (time.Time, error) {
	query := `
		SELECT ts FROM candles
		WHERE pair = $1 AND timeframe = $2
		ORDER BY ts ASC
		LIMIT 1`

	var ts time.Time
	err := r.db.QueryRow(query, pair, string(tf)).Scan(&ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrNoCandles
		}
		return time.Time{}, err
	}

	return ts.UTC(), nil
}

// Count возвращает количество свечей пары/таймфрейма
func (r *CandleRepository) Count(pair string, tf models.Timeframe) (int, error) {
	query := `SELECT COUNT(*) FROM candles WHERE pair = $1 AND timeframe = $2`

	var count int
	err := r.db.QueryRow(query, pair, string(tf)).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// LoadRecent возвращает последние limit свечей в хронологическом порядке
// (старые первыми) - так их потребляют индикаторы и стратегия
func (r *CandleRepository) LoadRecent(pair string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	query := `
		SELECT pair, timeframe, ts, open, high, low, close
		FROM (
			SELECT pair, timeframe, ts, open, high, low, close
			FROM candles
			WHERE pair = $1 AND timeframe = $2
			ORDER BY ts DESC
			LIMIT $3
		) recent
		ORDER BY ts ASC`

	rows, err := r.db.Query(query, pair, string(tf), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		var tfStr string
		err := rows.Scan(&c.Pair, &tfStr, &c.TS, &c.Open, &c.High, &c.Low, &c.Close)
		if err != nil {
			return nil, err
		}
		c.Timeframe = models.Timeframe(tfStr)
		c.TS = c.TS.UTC()
		candles = append(candles, c)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return candles, nil
}

// Trim удаляет свечи сверх keep последних. Возвращает число удаленных строк.
func (r *CandleRepository) Trim(pair string, tf models.Timeframe, keep int) (int64, error) {
	query := `
		DELETE FROM candles
		WHERE pair = $1 AND timeframe = $2 AND ts < (
			SELECT MIN(ts) FROM (
				SELECT ts FROM candles
				WHERE pair = $1 AND timeframe = $2
				ORDER BY ts DESC
				LIMIT $3
			) kept
		)`

	result, err := r.db.Exec(query, pair, string(tf), keep)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// GetWatermark возвращает водяной знак синхронизации пары/таймфрейма
func (r *CandleRepository) GetWatermark(pair string, tf models.Timeframe) (time.Time, error) {
	query := `SELECT last_ts FROM candle_state WHERE pair = $1 AND timeframe = $2`

	var ts time.Time
	err := r.db.QueryRow(query, pair, string(tf)).Scan(&ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrNoWatermark
		}
		return time.Time{}, err
	}

	return ts.UTC(), nil
}

// SetWatermark записывает водяной знак синхронизации
func (r *CandleRepository) SetWatermark(pair string, tf models.Timeframe, ts time.Time) error {
	query := `
		INSERT INTO candle_state (pair, timeframe, last_ts, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (pair, timeframe)
		DO UPDATE SET last_ts = EXCLUDED.last_ts, updated_at = now()`

	_, err := r.db.Exec(query, pair, string(tf), ts)
	return err
}

// DeleteWatermark сбрасывает водяной знак (используется при полном
// пересоздании кэша пары)
func (r *CandleRepository) DeleteWatermark(pair string, tf models.Timeframe) error {
	query := `DELETE FROM candle_state WHERE pair = $1 AND timeframe = $2`

	_, err := r.db.Exec(query, pair, string(tf))
	return err
}
