// Package candles синхронизирует локальный кэш свечей с поставщиком данных.
package candles

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"orion-brain/internal/config"
	"orion-brain/internal/marketdata"
	"orion-brain/internal/models"
	"orion-brain/internal/repository"
	"orion-brain/pkg/utils"
)

// CandleStore определяет интерфейс хранилища свечей
type CandleStore interface {
	UpsertBatch(candles []models.Candle) (int, error)
	LatestTS(pair string, tf models.Timeframe) (time.Time, error)
	OldestTS(pair string, tf models.Timeframe) (time.Time, error)
	Count(pair string, tf models.Timeframe) (int, error)
	LoadRecent(pair string, tf models.Timeframe, limit int) ([]models.Candle, error)
	Trim(pair string, tf models.Timeframe, keep int) (int64, error)
	GetWatermark(pair string, tf models.Timeframe) (time.Time, error)
	SetWatermark(pair string, tf models.Timeframe, ts time.Time) error
}

// SyncResult - итог одного прохода синхронизации
type SyncResult struct {
	Pair      string    `json:"pair"`
	Timeframe string    `json:"timeframe"`
	Written   int       `json:"written"`
	Trimmed   int64     `json:"trimmed"`
	Watermark time.Time `json:"watermark"`
	Bootstrap bool      `json:"bootstrap"` // кэш создавался с нуля
}

// Synchronizer поддерживает кэш свечей в актуальном состоянии.
//
// Водяной знак (ts последней записанной свечи) хранится отдельно от
// свечей и может разойтись с ними после сбоя. Таблица свечей считается
// источником истины: при расхождении водяной знак восстанавливается
// из нее, при пустом кэше выполняется первичная загрузка.
type Synchronizer struct {
	store    CandleStore
	provider marketdata.Provider
	cfg      config.EngineConfig
	logger   *utils.Logger
}

// NewSynchronizer создает синхронизатор кэша свечей
func NewSynchronizer(store CandleStore, provider marketdata.Provider, cfg config.EngineConfig, logger *utils.Logger) *Synchronizer {
	return &Synchronizer{
		store:    store,
		provider: provider,
		cfg:      cfg,
		logger:   logger.WithComponent("candles"),
	}
}

// retention возвращает глубину хранения для таймфрейма
func (s *Synchronizer) retention(tf models.Timeframe) int {
	if tf == models.Timeframe1h {
		return s.cfg.Retention1h
	}
	return s.cfg.Retention15m
}

// bootstrapLookback возвращает глубину первичной загрузки
func (s *Synchronizer) bootstrapLookback(tf models.Timeframe) time.Duration {
	if tf == models.Timeframe1h {
		return s.cfg.Bootstrap1h
	}
	return s.cfg.Bootstrap15m
}

// Sync догружает свежие свечи пары/таймфрейма до текущего момента
func (s *Synchronizer) Sync(ctx context.Context, pair string, tf models.Timeframe, now time.Time) (*SyncResult, error) {
	now = now.UTC()
	interval := tf.Duration()

	result := &SyncResult{Pair: pair, Timeframe: string(tf)}

	watermark, bootstrap, err := s.resolveWatermark(pair, tf, now)
	if err != nil {
		return nil, err
	}
	result.Bootstrap = bootstrap

	var from time.Time
	if bootstrap {
		from = now.Add(-s.bootstrapLookback(tf))
	} else {
		if !now.After(watermark.Add(interval)) {
			// новых закрытых свечей еще нет
			result.Watermark = watermark
			return result, nil
		}
		from = watermark
	}

	raw, err := s.provider.FetchBars(ctx, pair, tf, from, now)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", pair, tf, err)
	}

	batch := normalizeBars(pair, tf, raw, watermark, now)
	if len(batch) == 0 {
		result.Watermark = watermark
		return result, nil
	}

	written, err := s.store.UpsertBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("upsert %s %s: %w", pair, tf, err)
	}
	result.Written = written

	newWatermark := batch[len(batch)-1].TS
	if err := s.store.SetWatermark(pair, tf, newWatermark); err != nil {
		return nil, fmt.Errorf("set watermark %s %s: %w", pair, tf, err)
	}
	result.Watermark = newWatermark

	trimmed, err := s.store.Trim(pair, tf, s.retention(tf))
	if err != nil {
		return nil, fmt.Errorf("trim %s %s: %w", pair, tf, err)
	}
	result.Trimmed = trimmed

	s.logger.Info("cache synced",
		utils.Pair(pair), utils.Tf(string(tf)),
		utils.BarsWritten(written), utils.Int64("trimmed", trimmed),
		utils.Watermark(newWatermark), utils.Bool("bootstrap", bootstrap))

	return result, nil
}

// resolveWatermark восстанавливает водяной знак. Возвращает bootstrap=true,
// если кэш пары пуст и нужна первичная загрузка.
func (s *Synchronizer) resolveWatermark(pair string, tf models.Timeframe, now time.Time) (time.Time, bool, error) {
	latest, latestErr := s.store.LatestTS(pair, tf)
	if latestErr != nil && !errors.Is(latestErr, repository.ErrNoCandles) {
		return time.Time{}, false, latestErr
	}
	haveCandles := latestErr == nil

	watermark, wmErr := s.store.GetWatermark(pair, tf)
	if wmErr != nil && !errors.Is(wmErr, repository.ErrNoWatermark) {
		return time.Time{}, false, wmErr
	}
	haveWatermark := wmErr == nil

	switch {
	case !haveCandles:
		// пустой кэш: устаревший водяной знак, если он был, игнорируется
		if haveWatermark {
			s.logger.Warn("watermark without candles, rebuilding cache",
				utils.Pair(pair), utils.Tf(string(tf)), utils.Watermark(watermark))
		}
		return time.Time{}, true, nil

	case !haveWatermark:
		// свечи есть, знака нет - восстанавливаем из таблицы
		s.logger.Warn("watermark missing, healed from candle table",
			utils.Pair(pair), utils.Tf(string(tf)), utils.Watermark(latest))
		if err := s.store.SetWatermark(pair, tf, latest); err != nil {
			return time.Time{}, false, err
		}
		return latest, false, nil

	case !watermark.Equal(latest):
		// рассинхронизация после сбоя - таблица свечей авторитетна
		s.logger.Warn("watermark drift, healed from candle table",
			utils.Pair(pair), utils.Tf(string(tf)),
			utils.Watermark(watermark), utils.Time("latest", latest))
		if err := s.store.SetWatermark(pair, tf, latest); err != nil {
			return time.Time{}, false, err
		}
		return latest, false, nil

	case watermark.After(now.Add(tf.Duration())):
		// знак в будущем - кэш поврежден, пересоздаем
		s.logger.Warn("watermark in the future, rebuilding cache",
			utils.Pair(pair), utils.Tf(string(tf)), utils.Watermark(watermark))
		return time.Time{}, true, nil

	default:
		return watermark, false, nil
	}
}

// normalizeBars переводит сырые бары на закрывающие ts сетки, отбрасывает
// уже записанные и схлопывает дубликаты (последний бар побеждает -
// поставщик мог уточнить данные). Незакрытый текущий бар отбрасывается.
func normalizeBars(pair string, tf models.Timeframe, raw []marketdata.RawBar, watermark, now time.Time) []models.Candle {
	interval := tf.Duration()

	byTS := make(map[time.Time]models.Candle, len(raw))
	for _, b := range raw {
		ts := utils.NormalizeToGrid(b.CloseTime(tf), interval)

		if !watermark.IsZero() && !ts.After(watermark) {
			continue
		}
		if ts.After(now) {
			continue
		}

		byTS[ts] = models.Candle{
			Pair:      pair,
			Timeframe: tf,
			TS:        ts,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
		}
	}

	batch := make([]models.Candle, 0, len(byTS))
	for _, c := range byTS {
		batch = append(batch, c)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].TS.Before(batch[j].TS) })

	return batch
}
