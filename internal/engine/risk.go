package engine

import (
	"math"

	"orion-brain/internal/config"
	"orion-brain/internal/indicator"
	"orion-brain/internal/models"
	"orion-brain/pkg/utils"
)

// RiskParams - параметры трейлинг-логики. Значения по умолчанию взяты
// из поздней ревизии бэктеста и переопределяются конфигурацией.
type RiskParams struct {
	FractalK          int     // контекст фрактального разворота
	ATRLength         int     // окно ATR
	SwingATRMinK      float64 // минимальная значимость нового свинга, доли ATR
	StructPadATR      float64 // отступ структурного уровня от свинга, доли ATR
	FloorATREarly     float64 // ATR-floor от входа для EARLY
	FloorATRConfirmed float64 // ATR-floor от входа для CONFIRMED
	ActivateEarly     float64 // порог взведения трейла для EARLY, R
	ActivateConfirmed float64 // порог взведения трейла для CONFIRMED, R
	MinTrailDelta     float64 // порог значимости сдвига трейла (для уведомлений)
}

// DefaultRiskParams возвращает параметры по умолчанию
func DefaultRiskParams() RiskParams {
	return RiskParams{
		FractalK:          2,
		ATRLength:         14,
		SwingATRMinK:      0.35,
		StructPadATR:      0.05,
		FloorATREarly:     1.35,
		FloorATRConfirmed: 1.20,
		ActivateEarly:     0.90,
		ActivateConfirmed: 0.70,
		MinTrailDelta:     0.00005,
	}
}

// RiskParamsFromConfig строит параметры из конфигурации движка
func RiskParamsFromConfig(cfg config.EngineConfig) RiskParams {
	return RiskParams{
		FractalK:          cfg.FractalK,
		ATRLength:         cfg.ATRLength,
		SwingATRMinK:      cfg.SwingATRMinK,
		StructPadATR:      cfg.StructPadATR,
		FloorATREarly:     cfg.FloorATREarly,
		FloorATRConfirmed: cfg.FloorATRConfirmed,
		ActivateEarly:     cfg.ActivateEarly,
		ActivateConfirmed: cfg.ActivateConfirmed,
		MinTrailDelta:     cfg.MinTrailDelta,
	}
}

// activation возвращает порог взведения трейла для режима входа
func (p RiskParams) activation(mode string) float64 {
	if mode == models.ModeEarly {
		return p.ActivateEarly
	}
	return p.ActivateConfirmed
}

// floorMultiple возвращает ATR-множитель floor-уровня для режима входа
func (p RiskParams) floorMultiple(mode string) float64 {
	if mode == models.ModeEarly {
		return p.FloorATREarly
	}
	return p.FloorATRConfirmed
}

// Decision - итог одной оценки позиции
type Decision struct {
	Skipped bool // свеча уже обработана (guard идемпотентности)

	Closed      bool
	CloseReason string // STOP или TRAIL

	Armed        bool // трейл взведен на этой оценке
	SwingUpdated bool
	TrailMoved   bool // трейл сдвинут на этой оценке
	PrevTrail    float64
	NewTrail     float64
}

// Evaluator - трейлинг-движок. Оценивает позицию по закрытой свече и
// мутирует ее поля в памяти; запись в хранилище делает вызывающий.
type Evaluator struct {
	params RiskParams
}

// NewEvaluator создает движок с заданными параметрами
func NewEvaluator(params RiskParams) *Evaluator {
	return &Evaluator{params: params}
}

// Evaluate выполняет один цикл оценки открытой позиции по ряду закрытых
// свечей основного таймфрейма (старые первыми, последняя - свежезакрытая).
//
// Порядок шагов фиксирован:
//  1. проверка пробоя стопа/трейла экстремумами свечи - стоп всегда
//     проверяется раньше трейла;
//  2. взведение трейла по благоприятному движению в R;
//  3. обновление отслеживаемого свинга по фрактальному развороту;
//  4. пересчет трейла (только взведенного) - структура против floor,
//     строго монотонное ужесточение;
//  5. отметка свечи как обработанной.
//
// Нехватка истории для ATR или фрактала делает шаги 3-4 no-op: состояние
// трейла не трогается до накопления истории.
func (e *Evaluator) Evaluate(p *models.Position, bars []models.Candle) *Decision {
	d := &Decision{}
	if !p.IsOpen() || len(bars) == 0 {
		d.Skipped = true
		return d
	}

	newest := bars[len(bars)-1]

	// guard идемпотентности: каждая свеча обрабатывается не более раза
	if p.LastBarTS != nil && !newest.TS.After(*p.LastBarTS) {
		d.Skipped = true
		return d
	}

	isLong := p.Side == models.SideLong

	// Шаг 1: пробой уровней. Стоп первичен: если свеча задела оба
	// уровня, позиция закрывается по STOP.
	if hitLevel(isLong, newest, p.StopPrice) {
		e.close(p, d, models.CloseReasonStop, newest)
		return d
	}
	if p.TrailOn && p.TrailPrice != nil && hitLevel(isLong, newest, *p.TrailPrice) {
		e.close(p, d, models.CloseReasonTrail, newest)
		return d
	}

	// Шаг 2: взведение трейла. Одноразовое и необратимое.
	if !p.TrailOn {
		ratio := utils.FavorableRatio(isLong, p.EntryPrice, p.StopPrice, newest.High, newest.Low)
		if ratio >= e.params.activation(p.Mode) {
			p.TrailOn = true
			d.Armed = true
		}
	}

	// Шаг 3: обновление свинга
	e.updateSwing(p, d, bars, isLong)

	// Шаг 4: пересчет трейла
	if p.TrailOn {
		e.recomputeTrail(p, d, bars, isLong)
	}

	// Шаг 5: отметка обработанной свечи
	ts := newest.TS
	p.LastBarTS = &ts

	return d
}

// hitLevel проверяет, задела ли свеча защитный уровень
func hitLevel(isLong bool, bar models.Candle, level float64) bool {
	if isLong {
		return bar.Low <= level
	}
	return bar.High >= level
}

func (e *Evaluator) close(p *models.Position, d *Decision, reason string, bar models.Candle) {
	ts := bar.TS
	p.ClosedAt = &ts
	p.CloseReason = &reason
	p.LastBarTS = &ts
	d.Closed = true
	d.CloseReason = reason
}

// updateSwing проверяет фрактальный разворот на последнем баре, у
// которого уже есть полный контекст справа, и принимает его как новый
// свинг, если он значим относительно ATR в точке разворота
func (e *Evaluator) updateSwing(p *models.Position, d *Decision, bars []models.Candle, isLong bool) {
	i, ok := indicator.PivotEligibleIndex(len(bars), e.params.FractalK)
	if !ok {
		return
	}

	var candidate float64
	if isLong {
		if !indicator.IsPivotLow(bars, i, e.params.FractalK) {
			return
		}
		candidate = bars[i].Low
	} else {
		if !indicator.IsPivotHigh(bars, i, e.params.FractalK) {
			return
		}
		candidate = bars[i].High
	}

	if p.LastSwingPrice != nil {
		atr := indicator.ATR(bars, e.params.ATRLength)[i]
		if math.IsNaN(atr) {
			// истории не хватает на фильтр значимости
			return
		}
		if !utils.PriceMoveSignificant(candidate, *p.LastSwingPrice, e.params.SwingATRMinK*atr) {
			return
		}
	}

	ts := bars[i].TS
	p.LastSwingPrice = &candidate
	p.LastSwingTS = &ts
	d.SwingUpdated = true
}

// recomputeTrail пересчитывает взведенный трейл: более консервативный из
// структурного уровня (свинг с ATR-отступом) и ATR-floor от входа.
// Результат монотонен и никогда не слабее исходного стопа.
func (e *Evaluator) recomputeTrail(p *models.Position, d *Decision, bars []models.Candle, isLong bool) {
	atr, ok := indicator.LastATR(bars, e.params.ATRLength)
	if !ok {
		return
	}

	floorK := e.params.floorMultiple(p.Mode)

	var candidate float64
	if isLong {
		candidate = p.EntryPrice - floorK*atr
		if p.LastSwingPrice != nil {
			structure := *p.LastSwingPrice - e.params.StructPadATR*atr
			candidate = math.Max(candidate, structure)
		}
	} else {
		candidate = p.EntryPrice + floorK*atr
		if p.LastSwingPrice != nil {
			structure := *p.LastSwingPrice + e.params.StructPadATR*atr
			candidate = math.Min(candidate, structure)
		}
	}

	prev := p.EffectiveTrail()
	d.PrevTrail = prev

	var next float64
	if isLong {
		next = math.Max(math.Max(prev, candidate), p.StopPrice)
	} else {
		next = math.Min(math.Min(prev, candidate), p.StopPrice)
	}

	d.NewTrail = next
	if p.TrailPrice == nil || next != *p.TrailPrice {
		d.TrailMoved = p.TrailPrice != nil || next != p.StopPrice
		p.TrailPrice = &next
	}
}
