package engine

import (
	"context"
	"testing"
	"time"

	"orion-brain/internal/config"
	"orion-brain/internal/marketdata"
	"orion-brain/internal/models"
	"orion-brain/pkg/utils"
)

func engineConfig() config.EngineConfig {
	return config.EngineConfig{
		Pairs:             []string{"EURUSD", "GBPUSD"},
		Retention15m:      1000,
		Retention1h:       500,
		Payload15m:        400,
		Payload1h:         200,
		FractalK:          2,
		ATRLength:         14,
		SwingATRMinK:      0.35,
		StructPadATR:      0.05,
		FloorATREarly:     1.35,
		FloorATRConfirmed: 1.20,
		ActivateEarly:     0.90,
		ActivateConfirmed: 0.70,
		MinTrailDelta:     0.00005,
		AlignTo15m:        true,
	}
}

type engineFixture struct {
	engine    *Engine
	sync      *mockSync
	source    *mockCandleSource
	positions *mockPositionStore
	signals   *mockSignalJournal
	strategy  *mockStrategy
	notifier  *mockNotifier
}

func newFixture(cfg config.EngineConfig) *engineFixture {
	f := &engineFixture{
		sync:      &mockSync{},
		source:    &mockCandleSource{},
		positions: newMockPositionStore(),
		signals:   newMockSignalJournal(),
		strategy:  &mockStrategy{},
		notifier:  &mockNotifier{},
	}
	logger := utils.InitLogger(utils.LogConfig{Level: "error", Format: "text"})
	f.engine = NewEngine(f.sync, f.source, f.positions, f.signals, f.strategy, f.notifier, cfg, logger)
	// детерминированное время на границе 15m
	f.engine.now = func() time.Time {
		return time.Date(2026, 3, 10, 21, 15, 0, 0, time.UTC)
	}
	return f
}

func TestRunOnceSkippedOffBoundary(t *testing.T) {
	f := newFixture(engineConfig())
	f.engine.now = func() time.Time {
		return time.Date(2026, 3, 10, 21, 7, 0, 0, time.UTC)
	}

	report := f.engine.RunOnce(context.Background(), nil, false)

	if report.Status != models.RunSkipped {
		t.Errorf("status = %q, want %q", report.Status, models.RunSkipped)
	}
	if f.sync.syncCalls != 0 {
		t.Errorf("sync calls = %d, want 0", f.sync.syncCalls)
	}

	// force отключает привязку к границе
	report = f.engine.RunOnce(context.Background(), nil, true)
	if report.Status != models.RunCompleted {
		t.Errorf("forced status = %q, want %q", report.Status, models.RunCompleted)
	}
}

func TestRunOnceNoSignal(t *testing.T) {
	f := newFixture(engineConfig())
	end := time.Date(2026, 3, 10, 21, 15, 0, 0, time.UTC)
	f.source.bars15 = flatBars(20, 1.1000, 0.0010, end)
	f.source.bars1h = flatBars(20, 1.1000, 0.0030, end)

	report := f.engine.RunOnce(context.Background(), nil, false)

	if report.Status != models.RunCompleted {
		t.Fatalf("status = %q, want completed", report.Status)
	}
	if len(report.Pairs) != 2 {
		t.Fatalf("expected 2 pair outcomes, got %d", len(report.Pairs))
	}
	for _, outcome := range report.Pairs {
		if outcome.Error != "" {
			t.Errorf("%s: unexpected error %q", outcome.Pair, outcome.Error)
		}
		if len(outcome.Actions) != 2 || outcome.Actions[1] != "no_signal" {
			t.Errorf("%s: actions = %v, want [synced no_signal]", outcome.Pair, outcome.Actions)
		}
	}
	if f.strategy.calls != 2 {
		t.Errorf("strategy calls = %d, want 2", f.strategy.calls)
	}
}

func TestRunOnceOpensPosition(t *testing.T) {
	f := newFixture(engineConfig())
	end := time.Date(2026, 3, 10, 21, 15, 0, 0, time.UTC)
	f.source.bars15 = flatBars(20, 1.1000, 0.0010, end)
	f.source.bars1h = flatBars(20, 1.1000, 0.0030, end)
	f.strategy.signal = &models.EntrySignal{
		SignalID: "sig-1",
		Side:     models.SideLong,
		Mode:     models.ModeEarly,
		Entry:    1.1000,
		Stop:     1.0950,
	}

	report := f.engine.RunOnce(context.Background(), []string{"EURUSD"}, false)

	if report.Status != models.RunCompleted {
		t.Fatalf("status = %q", report.Status)
	}
	if len(f.positions.created) != 1 {
		t.Fatalf("created = %d, want 1", len(f.positions.created))
	}

	p := f.positions.created[0]
	if p.ID != "TR-EURUSD-000001-OR" {
		t.Errorf("ID = %q", p.ID)
	}
	if p.Side != models.SideLong || p.EntryPrice != 1.1000 || p.StopPrice != 1.0950 {
		t.Errorf("position = %+v", p)
	}

	types := f.notifier.typesSent()
	if len(types) != 1 || types[0] != models.NotifyEntry {
		t.Errorf("notifications = %v, want [ENTRY]", types)
	}
}

func TestRunOnceDuplicateSignalIgnored(t *testing.T) {
	f := newFixture(engineConfig())
	end := time.Date(2026, 3, 10, 21, 15, 0, 0, time.UTC)
	f.source.bars15 = flatBars(20, 1.1000, 0.0010, end)
	f.source.bars1h = flatBars(20, 1.1000, 0.0030, end)
	f.strategy.signal = &models.EntrySignal{
		SignalID: "sig-dup",
		Side:     models.SideLong,
		Mode:     models.ModeEarly,
		Entry:    1.1000,
		Stop:     1.0950,
	}
	f.signals.seen["sig-dup"] = true

	report := f.engine.RunOnce(context.Background(), []string{"EURUSD"}, false)

	outcome := report.Outcome("EURUSD")
	if len(f.positions.created) != 0 {
		t.Errorf("created = %d, want 0", len(f.positions.created))
	}
	found := false
	for _, a := range outcome.Actions {
		if a == "duplicate_signal" {
			found = true
		}
	}
	if !found {
		t.Errorf("actions = %v, want duplicate_signal", outcome.Actions)
	}
}

func TestRunOnceMalformedSignalIsNoSignal(t *testing.T) {
	f := newFixture(engineConfig())
	end := time.Date(2026, 3, 10, 21, 15, 0, 0, time.UTC)
	f.source.bars15 = flatBars(20, 1.1000, 0.0010, end)
	f.source.bars1h = flatBars(20, 1.1000, 0.0030, end)
	// стоп не на защитной стороне входа
	f.strategy.signal = &models.EntrySignal{
		SignalID: "sig-bad",
		Side:     models.SideLong,
		Mode:     models.ModeEarly,
		Entry:    1.1000,
		Stop:     1.2000,
	}

	report := f.engine.RunOnce(context.Background(), []string{"EURUSD"}, false)

	outcome := report.Outcome("EURUSD")
	if outcome.Error != "" {
		t.Errorf("malformed signal must not be a pair error: %q", outcome.Error)
	}
	if len(f.positions.created) != 0 {
		t.Error("malformed signal must not open a position")
	}
	if len(outcome.Actions) == 0 || outcome.Actions[len(outcome.Actions)-1] != "no_signal" {
		t.Errorf("actions = %v, want trailing no_signal", outcome.Actions)
	}
}

func TestRunOnceEvaluatesOpenPosition(t *testing.T) {
	f := newFixture(engineConfig())
	end := time.Date(2026, 3, 10, 21, 15, 0, 0, time.UTC)
	bars := flatBars(20, 1.1000, 0.0010, end)
	bars[len(bars)-1].Low = 1.0949 // пробой стопа
	f.source.bars15 = bars

	f.positions.open["EURUSD"] = openLong(1.1000, 1.0950)

	report := f.engine.RunOnce(context.Background(), []string{"EURUSD"}, false)

	if report.Status != models.RunCompleted {
		t.Fatalf("status = %q", report.Status)
	}
	if len(f.positions.closed) != 1 || f.positions.closed[0] != "TR-EURUSD-000001-OR:STOP" {
		t.Errorf("closed = %v", f.positions.closed)
	}
	if f.strategy.calls != 0 {
		t.Error("strategy must not be called while a position is open")
	}

	types := f.notifier.typesSent()
	if len(types) != 1 || types[0] != models.NotifyStop {
		t.Errorf("notifications = %v, want [STOP]", types)
	}
}

func TestRunOnceRateLimitAbortsRun(t *testing.T) {
	f := newFixture(engineConfig())
	f.sync.syncErr = marketdata.ErrRateLimited

	report := f.engine.RunOnce(context.Background(), nil, false)

	if report.Status != models.RunRateLimited {
		t.Fatalf("status = %q, want rate_limited", report.Status)
	}
	// прогон прерван на первой паре: вторая не обрабатывалась
	if f.sync.syncCalls != 1 {
		t.Errorf("sync calls = %d, want 1 (run aborted)", f.sync.syncCalls)
	}
}

func TestRunOnceForbiddenAbortsRunDistinctly(t *testing.T) {
	f := newFixture(engineConfig())
	f.sync.syncErr = marketdata.ErrForbidden

	report := f.engine.RunOnce(context.Background(), nil, false)

	if report.Status != models.RunForbidden {
		t.Fatalf("status = %q, want forbidden", report.Status)
	}
}

func TestRunOncePairErrorIsolated(t *testing.T) {
	f := newFixture(engineConfig())
	end := time.Date(2026, 3, 10, 21, 15, 0, 0, time.UTC)
	f.source.bars15 = flatBars(20, 1.1000, 0.0010, end)
	f.source.bars1h = flatBars(20, 1.1000, 0.0030, end)

	// невалидный символ в явной вселенной не валит остальные пары
	report := f.engine.RunOnce(context.Background(), []string{"bad!", "EURUSD"}, false)

	if report.Status != models.RunCompleted {
		t.Fatalf("status = %q, want completed", report.Status)
	}
	if report.Outcome("bad!").Error == "" {
		t.Error("invalid pair must carry an error in its slot")
	}
	if report.Outcome("EURUSD").Error != "" {
		t.Errorf("healthy pair must not inherit the error: %q", report.Outcome("EURUSD").Error)
	}
}

func TestRunOnceDataOnly(t *testing.T) {
	cfg := engineConfig()
	cfg.DataOnly = true
	f := newFixture(cfg)

	report := f.engine.RunOnce(context.Background(), []string{"EURUSD"}, false)

	if report.Status != models.RunCompleted {
		t.Fatalf("status = %q", report.Status)
	}
	if f.strategy.calls != 0 {
		t.Error("DATA_ONLY run must not call the strategy")
	}
	outcome := report.Outcome("EURUSD")
	if len(outcome.Actions) != 1 || outcome.Actions[0] != "synced" {
		t.Errorf("actions = %v, want [synced]", outcome.Actions)
	}
}
