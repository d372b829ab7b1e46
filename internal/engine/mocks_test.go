package engine

import (
	"context"
	"time"

	"orion-brain/internal/candles"
	"orion-brain/internal/marketdata"
	"orion-brain/internal/models"
	"orion-brain/internal/repository"
)

// ============ Mock CandleSynchronizer ============

type mockSync struct {
	syncErr     error
	backfillErr error
	written     int
	syncCalls   int
}

func (m *mockSync) Sync(ctx context.Context, pair string, tf models.Timeframe, now time.Time) (*candles.SyncResult, error) {
	m.syncCalls++
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	return &candles.SyncResult{Pair: pair, Timeframe: string(tf), Written: m.written}, nil
}

func (m *mockSync) Backfill(ctx context.Context, pair string, tf models.Timeframe) (*candles.BackfillResult, error) {
	if m.backfillErr != nil {
		return nil, m.backfillErr
	}
	return &candles.BackfillResult{Pair: pair, Timeframe: string(tf), Complete: true}, nil
}

// ============ Mock CandleSource ============

type mockCandleSource struct {
	bars15 []models.Candle
	bars1h []models.Candle
	err    error
}

func (m *mockCandleSource) LoadRecent(pair string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	if m.err != nil {
		return nil, m.err
	}
	if tf == models.Timeframe1h {
		return m.bars1h, nil
	}
	return m.bars15, nil
}

// ============ Mock PositionStore ============

type mockPositionStore struct {
	open      map[string]*models.Position
	seq       map[string]int
	createErr error
	closeErr  error
	listErr   error

	created []models.Position
	closed  []string // "<id>:<reason>"
	updated int
}

func newMockPositionStore() *mockPositionStore {
	return &mockPositionStore{
		open: make(map[string]*models.Position),
		seq:  make(map[string]int),
	}
}

func (m *mockPositionStore) GetOpen(pair string) (*models.Position, error) {
	p, ok := m.open[pair]
	if !ok {
		return nil, repository.ErrPositionNotFound
	}
	return p, nil
}

func (m *mockPositionStore) Create(p *models.Position) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.open[p.Pair] = p
	m.created = append(m.created, *p)
	return nil
}

func (m *mockPositionStore) Close(id string, reason string, closedAt time.Time) error {
	if m.closeErr != nil {
		return m.closeErr
	}
	for pair, p := range m.open {
		if p.ID == id {
			delete(m.open, pair)
		}
	}
	m.closed = append(m.closed, id+":"+reason)
	return nil
}

func (m *mockPositionStore) UpdateTrail(p *models.Position) error {
	m.updated++
	return nil
}

func (m *mockPositionStore) NextSequence(pair string) (int, error) {
	m.seq[pair]++
	return m.seq[pair], nil
}

func (m *mockPositionStore) ListOpen() ([]*models.Position, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*models.Position, 0, len(m.open))
	for _, p := range m.open {
		out = append(out, p)
	}
	return out, nil
}

// ============ Mock SignalJournal ============

type mockSignalJournal struct {
	seen map[string]bool
	err  error
}

func newMockSignalJournal() *mockSignalJournal {
	return &mockSignalJournal{seen: make(map[string]bool)}
}

func (m *mockSignalJournal) Record(pair string, sig *models.EntrySignal) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen[sig.SignalID] {
		return false, nil
	}
	m.seen[sig.SignalID] = true
	return true, nil
}

// ============ Mock EntrySignalSource ============

type mockStrategy struct {
	signal *models.EntrySignal
	err    error
	calls  int
}

func (m *mockStrategy) RequestSignal(ctx context.Context, pair string, bars15m, bars1h []models.Candle) (*models.EntrySignal, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.signal, nil
}

// ============ Mock Notifier ============

type mockNotifier struct {
	sent []*models.Notification
}

func (m *mockNotifier) Notify(n *models.Notification) {
	m.sent = append(m.sent, n)
}

func (m *mockNotifier) typesSent() []string {
	out := make([]string, 0, len(m.sent))
	for _, n := range m.sent {
		out = append(out, n.Type)
	}
	return out
}

// ============ Mock quote provider (для guard) ============

type mockQuoteProvider struct {
	quotes map[string]*marketdata.Quote
	err    error
}

func (m *mockQuoteProvider) FetchBars(ctx context.Context, pair string, tf models.Timeframe, from, to time.Time) ([]marketdata.RawBar, error) {
	return nil, nil
}

func (m *mockQuoteProvider) LastQuote(ctx context.Context, pair string) (*marketdata.Quote, error) {
	if m.err != nil {
		return nil, m.err
	}
	q, ok := m.quotes[pair]
	if !ok {
		return nil, marketdata.ErrNoData
	}
	return q, nil
}
