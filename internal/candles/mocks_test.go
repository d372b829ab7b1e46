package candles

import (
	"context"
	"sort"
	"time"

	"orion-brain/internal/marketdata"
	"orion-brain/internal/models"
	"orion-brain/internal/repository"
)

// ============ Mock CandleStore ============

type mockStore struct {
	candles    map[string][]models.Candle // ключ pair|tf, отсортировано по ts
	watermarks map[string]time.Time

	upsertErr error
	trimErr   error
}

func newMockStore() *mockStore {
	return &mockStore{
		candles:    make(map[string][]models.Candle),
		watermarks: make(map[string]time.Time),
	}
}

func key(pair string, tf models.Timeframe) string {
	return pair + "|" + string(tf)
}

func (m *mockStore) UpsertBatch(batch []models.Candle) (int, error) {
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	if len(batch) == 0 {
		return 0, repository.ErrEmptyBatch
	}
	k := key(batch[0].Pair, batch[0].Timeframe)
	existing := m.candles[k]
	byTS := make(map[time.Time]models.Candle, len(existing)+len(batch))
	for _, c := range existing {
		byTS[c.TS] = c
	}
	for _, c := range batch {
		byTS[c.TS] = c
	}
	merged := make([]models.Candle, 0, len(byTS))
	for _, c := range byTS {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].TS.Before(merged[j].TS) })
	m.candles[k] = merged
	return len(batch), nil
}

func (m *mockStore) LatestTS(pair string, tf models.Timeframe) (time.Time, error) {
	cs := m.candles[key(pair, tf)]
	if len(cs) == 0 {
		return time.Time{}, repository.ErrNoCandles
	}
	return cs[len(cs)-1].TS, nil
}

func (m *mockStore) OldestTS(pair string, tf models.Timeframe) (time.Time, error) {
	cs := m.candles[key(pair, tf)]
	if len(cs) == 0 {
		return time.Time{}, repository.ErrNoCandles
	}
	return cs[0].TS, nil
}

func (m *mockStore) Count(pair string, tf models.Timeframe) (int, error) {
	return len(m.candles[key(pair, tf)]), nil
}

func (m *mockStore) LoadRecent(pair string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	cs := m.candles[key(pair, tf)]
	if len(cs) > limit {
		cs = cs[len(cs)-limit:]
	}
	out := make([]models.Candle, len(cs))
	copy(out, cs)
	return out, nil
}

func (m *mockStore) Trim(pair string, tf models.Timeframe, keep int) (int64, error) {
	if m.trimErr != nil {
		return 0, m.trimErr
	}
	k := key(pair, tf)
	cs := m.candles[k]
	if len(cs) <= keep {
		return 0, nil
	}
	removed := len(cs) - keep
	m.candles[k] = cs[removed:]
	return int64(removed), nil
}

func (m *mockStore) GetWatermark(pair string, tf models.Timeframe) (time.Time, error) {
	ts, ok := m.watermarks[key(pair, tf)]
	if !ok {
		return time.Time{}, repository.ErrNoWatermark
	}
	return ts, nil
}

func (m *mockStore) SetWatermark(pair string, tf models.Timeframe, ts time.Time) error {
	m.watermarks[key(pair, tf)] = ts
	return nil
}

// ============ Mock Provider ============

type mockProvider struct {
	bars     []marketdata.RawBar
	fetchErr error

	// записанные параметры последнего вызова
	lastFrom time.Time
	lastTo   time.Time
	calls    int
}

func (m *mockProvider) FetchBars(ctx context.Context, pair string, tf models.Timeframe, from, to time.Time) ([]marketdata.RawBar, error) {
	m.calls++
	m.lastFrom = from
	m.lastTo = to
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	// фильтрация по окну, как у реального поставщика
	var out []marketdata.RawBar
	for _, b := range m.bars {
		open := time.UnixMilli(b.OpenTimeMs).UTC()
		if open.Before(from) || open.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *mockProvider) LastQuote(ctx context.Context, pair string) (*marketdata.Quote, error) {
	return nil, marketdata.ErrNoData
}

// barSeries строит последовательность сырых баров с шагом interval,
// начиная с open
func barSeries(open time.Time, interval time.Duration, n int, basePrice float64) []marketdata.RawBar {
	bars := make([]marketdata.RawBar, 0, n)
	for i := 0; i < n; i++ {
		p := basePrice + float64(i)*0.0001
		bars = append(bars, marketdata.RawBar{
			OpenTimeMs: open.Add(time.Duration(i) * interval).UnixMilli(),
			Open:       p,
			High:       p + 0.0005,
			Low:        p - 0.0005,
			Close:      p + 0.0002,
			Volume:     100,
		})
	}
	return bars
}
