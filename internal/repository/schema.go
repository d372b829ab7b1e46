package repository

import (
	"database/sql"
	"fmt"
)

// Идемпотентный DDL. Выполняется при каждом старте сервиса - таблицы
// создаются только при первом запуске.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS candles (
		pair       TEXT             NOT NULL,
		timeframe  TEXT             NOT NULL,
		ts         TIMESTAMPTZ      NOT NULL,
		open       DOUBLE PRECISION NOT NULL,
		high       DOUBLE PRECISION NOT NULL,
		low        DOUBLE PRECISION NOT NULL,
		close      DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (pair, timeframe, ts)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_candles_pair_tf_ts
		ON candles (pair, timeframe, ts DESC)`,

	// Водяной знак синхронизации: ts последней записанной свечи.
	// Восстанавливается из candles при расхождении.
	`CREATE TABLE IF NOT EXISTS candle_state (
		pair       TEXT        NOT NULL,
		timeframe  TEXT        NOT NULL,
		last_ts    TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (pair, timeframe)
	)`,

	`CREATE TABLE IF NOT EXISTS positions (
		id               TEXT             PRIMARY KEY,
		pair             TEXT             NOT NULL,
		side             TEXT             NOT NULL,
		mode             TEXT             NOT NULL,
		entry_price      DOUBLE PRECISION NOT NULL,
		stop_price       DOUBLE PRECISION NOT NULL,
		trail_price      DOUBLE PRECISION,
		trail_on         BOOLEAN          NOT NULL DEFAULT FALSE,
		opened_at        TIMESTAMPTZ      NOT NULL,
		closed_at        TIMESTAMPTZ,
		close_reason     TEXT,
		last_bar_ts      TIMESTAMPTZ,
		last_swing_price DOUBLE PRECISION,
		last_swing_ts    TIMESTAMPTZ
	)`,

	// Не более одной открытой позиции на пару
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_open_pair
		ON positions (pair) WHERE closed_at IS NULL`,

	`CREATE INDEX IF NOT EXISTS idx_positions_opened_at
		ON positions (opened_at DESC)`,

	// Счетчики для генерации идентификаторов позиций
	`CREATE TABLE IF NOT EXISTS pair_counters (
		pair TEXT    PRIMARY KEY,
		seq  INTEGER NOT NULL DEFAULT 0
	)`,

	// Журнал принятых сигналов: дедупликация по signal_id
	`CREATE TABLE IF NOT EXISTS signals (
		signal_id   TEXT        PRIMARY KEY,
		pair        TEXT        NOT NULL,
		side        TEXT        NOT NULL,
		mode        TEXT        NOT NULL,
		entry       DOUBLE PRECISION NOT NULL,
		stop        DOUBLE PRECISION NOT NULL,
		received_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id          SERIAL      PRIMARY KEY,
		timestamp   TIMESTAMPTZ NOT NULL,
		type        TEXT        NOT NULL,
		severity    TEXT        NOT NULL,
		pair        TEXT,
		position_id TEXT,
		message     TEXT        NOT NULL,
		meta        TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_notifications_timestamp
		ON notifications (timestamp DESC)`,
}

// InitSchema создает таблицы и индексы, если их еще нет
func InitSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema init: %w", err)
		}
	}
	return nil
}
