package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// ============ Timeframe Tests ============

func TestTimeframeDuration(t *testing.T) {
	tests := []struct {
		tf   Timeframe
		want time.Duration
	}{
		{Timeframe15m, 15 * time.Minute},
		{Timeframe1h, time.Hour},
		{Timeframe("5m"), 0},
	}

	for _, tt := range tests {
		if got := tt.tf.Duration(); got != tt.want {
			t.Errorf("Duration(%q): ожидали %v, получили %v", tt.tf, tt.want, got)
		}
	}
}

func TestTimeframeValid(t *testing.T) {
	if !Timeframe15m.Valid() || !Timeframe1h.Valid() {
		t.Error("15m и 1h должны быть валидными таймфреймами")
	}
	if Timeframe("4h").Valid() {
		t.Error("4h не поддерживается")
	}
}

// ============ Position Tests ============

func TestPositionIsOpen(t *testing.T) {
	pos := Position{ID: "TR-EURUSD-000001-OR", Pair: "EURUSD", Side: SideLong}
	if !pos.IsOpen() {
		t.Error("позиция без ClosedAt должна быть открытой")
	}

	now := time.Now().UTC()
	pos.ClosedAt = &now
	if pos.IsOpen() {
		t.Error("позиция с ClosedAt должна быть закрытой")
	}
}

func TestPositionRiskDistance(t *testing.T) {
	longPos := Position{Side: SideLong, EntryPrice: 1.1000, StopPrice: 1.0950}
	if got := longPos.RiskDistance(); got < 0.00499 || got > 0.00501 {
		t.Errorf("RiskDistance LONG: ожидали 0.0050, получили %v", got)
	}

	shortPos := Position{Side: SideShort, EntryPrice: 1.1000, StopPrice: 1.1050}
	if got := shortPos.RiskDistance(); got < 0.00499 || got > 0.00501 {
		t.Errorf("RiskDistance SHORT: ожидали 0.0050, получили %v", got)
	}
}

func TestPositionEffectiveTrail(t *testing.T) {
	pos := Position{EntryPrice: 1.1000, StopPrice: 1.0950}
	if got := pos.EffectiveTrail(); got != 1.0950 {
		t.Errorf("без трейла EffectiveTrail должен вернуть стоп, получили %v", got)
	}

	trail := 1.0980
	pos.TrailPrice = &trail
	if got := pos.EffectiveTrail(); got != 1.0980 {
		t.Errorf("EffectiveTrail: ожидали 1.0980, получили %v", got)
	}
}

func TestPositionID(t *testing.T) {
	id := PositionID("EURUSD", 42)
	if id != "TR-EURUSD-000042-OR" {
		t.Errorf("неверный формат id: %s", id)
	}
	if !strings.HasPrefix(id, "TR-EURUSD-") {
		t.Errorf("id должен содержать пару: %s", id)
	}
}

func TestPositionJSONSerialization(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	pos := Position{
		ID:         "TR-EURUSD-000001-OR",
		Pair:       "EURUSD",
		Side:       SideLong,
		Mode:       ModeEarly,
		EntryPrice: 1.1000,
		StopPrice:  1.0950,
		OpenedAt:   now,
	}

	data, err := json.Marshal(pos)
	if err != nil {
		t.Fatalf("ошибка сериализации: %v", err)
	}

	jsonStr := string(data)
	// nil-поля не должны попадать в JSON (omitempty)
	for _, absent := range []string{"trail_price", "closed_at", "close_reason", "last_swing_price"} {
		if strings.Contains(jsonStr, absent) {
			t.Errorf("поле %q не должно быть в JSON для новой позиции", absent)
		}
	}
	for _, present := range []string{"id", "pair", "side", "mode", "entry_price", "stop_price"} {
		if !strings.Contains(jsonStr, present) {
			t.Errorf("поле %q должно быть в JSON", present)
		}
	}
}

// ============ EntrySignal Tests ============

func TestEntrySignalValidate(t *testing.T) {
	tests := []struct {
		name    string
		sig     *EntrySignal
		wantErr bool
	}{
		{
			name:    "valid long",
			sig:     &EntrySignal{Side: SideLong, Mode: ModeEarly, Entry: 1.1000, Stop: 1.0950},
			wantErr: false,
		},
		{
			name:    "valid short",
			sig:     &EntrySignal{Side: SideShort, Mode: ModeConfirmed, Entry: 1.1000, Stop: 1.1050},
			wantErr: false,
		},
		{
			name:    "bad side",
			sig:     &EntrySignal{Side: "BUY", Mode: ModeEarly, Entry: 1.1, Stop: 1.09},
			wantErr: true,
		},
		{
			name:    "bad mode",
			sig:     &EntrySignal{Side: SideLong, Mode: "LATE", Entry: 1.1, Stop: 1.09},
			wantErr: true,
		},
		{
			name:    "zero entry",
			sig:     &EntrySignal{Side: SideLong, Mode: ModeEarly, Entry: 0, Stop: 1.09},
			wantErr: true,
		},
		{
			name:    "stop on wrong side for long",
			sig:     &EntrySignal{Side: SideLong, Mode: ModeEarly, Entry: 1.1000, Stop: 1.1050},
			wantErr: true,
		},
		{
			name:    "stop on wrong side for short",
			sig:     &EntrySignal{Side: SideShort, Mode: ModeEarly, Entry: 1.1000, Stop: 1.0950},
			wantErr: true,
		},
		{
			name:    "nil signal",
			sig:     nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sig.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// ============ RunReport Tests ============

func TestRunReportOutcome(t *testing.T) {
	report := &RunReport{}

	out := report.Outcome("EURUSD")
	out.Actions = append(out.Actions, "synced")

	// Повторный вызов должен вернуть тот же слот
	again := report.Outcome("EURUSD")
	again.Actions = append(again.Actions, "managed_position")

	if len(report.Pairs) != 1 {
		t.Fatalf("ожидали 1 слот, получили %d", len(report.Pairs))
	}
	if len(report.Pairs[0].Actions) != 2 {
		t.Errorf("ожидали 2 действия, получили %v", report.Pairs[0].Actions)
	}

	report.Outcome("GBPUSD").Error = "fetch failed"
	if len(report.Pairs) != 2 {
		t.Errorf("ожидали 2 слота, получили %d", len(report.Pairs))
	}
}
