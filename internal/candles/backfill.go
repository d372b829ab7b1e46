package candles

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"orion-brain/internal/marketdata"
	"orion-brain/internal/models"
	"orion-brain/internal/repository"
	"orion-brain/pkg/utils"
)

// BackfillResult - итог одного прохода дозаполнения истории
type BackfillResult struct {
	Pair      string `json:"pair"`
	Timeframe string `json:"timeframe"`
	Written   int    `json:"written"`
	Have      int    `json:"have"`
	Target    int    `json:"target"`
	Complete  bool   `json:"complete"`
}

// backfillTarget возвращает целевую глубину истории для таймфрейма
func (s *Synchronizer) backfillTarget(tf models.Timeframe) int {
	if tf == models.Timeframe1h {
		return s.cfg.BackfillTarget1h
	}
	return s.cfg.BackfillTarget15m
}

// Backfill наращивает историю пары назад до целевой глубины. Водяной
// знак не трогает: дозаполнение идет в прошлое и на синхронизацию
// свежих свечей не влияет. Вызывается после Sync, когда кэш уже есть.
func (s *Synchronizer) Backfill(ctx context.Context, pair string, tf models.Timeframe) (*BackfillResult, error) {
	target := s.backfillTarget(tf)
	interval := tf.Duration()

	result := &BackfillResult{Pair: pair, Timeframe: string(tf), Target: target}

	count, err := s.store.Count(pair, tf)
	if err != nil {
		return nil, err
	}
	result.Have = count

	if count >= target {
		result.Complete = true
		return result, nil
	}

	oldest, err := s.store.OldestTS(pair, tf)
	if err != nil {
		if errors.Is(err, repository.ErrNoCandles) {
			// пустой кэш заполняет Sync, не Backfill
			return result, nil
		}
		return nil, err
	}

	// выходные и праздники оставляют дыры в календаре, поэтому окно
	// берется с запасом к недостающему количеству баров
	missing := target - count
	from := oldest.Add(-time.Duration(missing) * interval * 2)

	raw, err := s.provider.FetchBars(ctx, pair, tf, from, oldest)
	if err != nil {
		return nil, fmt.Errorf("backfill fetch %s %s: %w", pair, tf, err)
	}

	batch := normalizeBackfill(pair, tf, raw, oldest)
	if len(batch) == 0 {
		result.Complete = true
		return result, nil
	}

	written, err := s.store.UpsertBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("backfill upsert %s %s: %w", pair, tf, err)
	}
	result.Written = written
	result.Have = count + written
	result.Complete = result.Have >= target

	s.logger.Info("history backfilled",
		utils.Pair(pair), utils.Tf(string(tf)),
		utils.BarsWritten(written), utils.Int("have", result.Have), utils.Int("target", target))

	return result, nil
}

// normalizeBackfill нормализует бары дозаполнения и отбрасывает все,
// что не старше уже имеющейся истории
func normalizeBackfill(pair string, tf models.Timeframe, raw []marketdata.RawBar, oldest time.Time) []models.Candle {
	interval := tf.Duration()

	byTS := make(map[time.Time]models.Candle, len(raw))
	for _, b := range raw {
		ts := utils.NormalizeToGrid(b.CloseTime(tf), interval)
		if !ts.Before(oldest) {
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
