// Package engine - координатор прогонов и трейлинг-движок позиций.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orion-brain/internal/config"
	"orion-brain/internal/marketdata"
	"orion-brain/internal/models"
	"orion-brain/internal/repository"
	"orion-brain/pkg/utils"
)

// Engine выполняет один прогон по вселенной пар: синхронизация кэша,
// затем оценка открытой позиции либо запрос входного сигнала.
//
// Прогон последовательный. Ошибка одной пары изолируется в ее слоте
// результата; rate limit и запрет доступа поставщика прерывают прогон
// целиком.
type Engine struct {
	sync      CandleSynchronizer
	candles   CandleSource
	positions PositionStoreInterface
	signals   SignalJournalInterface
	strategy  EntrySignalSource
	notifier  Notifier

	cfg       config.EngineConfig
	evaluator *Evaluator
	logger    *utils.Logger

	// подменяется в тестах
	now func() time.Time
}

// NewEngine создает координатор прогонов
func NewEngine(
	sync CandleSynchronizer,
	candleSource CandleSource,
	positions PositionStoreInterface,
	signals SignalJournalInterface,
	strategy EntrySignalSource,
	notifier Notifier,
	cfg config.EngineConfig,
	logger *utils.Logger,
) *Engine {
	return &Engine{
		sync:      sync,
		candles:   candleSource,
		positions: positions,
		signals:   signals,
		strategy:  strategy,
		notifier:  notifier,
		cfg:       cfg,
		evaluator: NewEvaluator(RiskParamsFromConfig(cfg)),
		logger:    logger.WithComponent("engine"),
		now:       time.Now,
	}
}

// RunOnce выполняет один прогон. pairs пустой = вселенная из конфигурации.
// force=true отключает привязку к границе 15-минутной свечи.
func (e *Engine) RunOnce(ctx context.Context, pairs []string, force bool) *models.RunReport {
	started := e.now().UTC()
	report := &models.RunReport{StartedAt: started, Status: models.RunCompleted}

	defer func() {
		report.FinishedAt = e.now().UTC()
		runsTotal.WithLabelValues(report.Status).Inc()
		runDuration.Observe(report.FinishedAt.Sub(started).Seconds())
	}()

	if len(pairs) == 0 {
		pairs = e.cfg.Pairs
	}

	// прогоны привязаны к закрытию 15m свечи: вне границы делать нечего
	if e.cfg.AlignTo15m && !force && started.Minute()%15 != 0 {
		report.Status = models.RunSkipped
		e.logger.Debug("run skipped, not on a 15m boundary", utils.Time("now", started))
		return report
	}

	e.logger.Info("run started", utils.Int("pairs", len(pairs)), utils.Bool("force", force))

	for _, pair := range pairs {
		outcome := report.Outcome(pair)

		if err := utils.ValidatePairSymbol(pair); err != nil {
			outcome.Error = err.Error()
			pairErrors.Inc()
			continue
		}

		err := e.processPair(ctx, pair, started, outcome)
		if err == nil {
			continue
		}

		// rate limit и запрет доступа фатальны для всего прогона:
		// частичный прогресс уже закоммичен и сохраняется
		if errors.Is(err, marketdata.ErrRateLimited) {
			outcome.Error = err.Error()
			report.Status = models.RunRateLimited
			e.logger.Warn("run aborted by provider rate limit", utils.Pair(pair))
			e.notifyError(pair, "", "provider rate limit, run aborted")
			return report
		}
		if errors.Is(err, marketdata.ErrForbidden) {
			outcome.Error = err.Error()
			report.Status = models.RunForbidden
			e.logger.Error("run aborted, provider access forbidden", utils.Pair(pair))
			e.notifyError(pair, "", "provider access forbidden, check plan/key")
			return report
		}

		outcome.Error = err.Error()
		pairErrors.Inc()
		e.logger.Error("pair processing failed", utils.Pair(pair), utils.Err(err))
		e.notifyError(pair, "", err.Error())
	}

	e.logger.Info("run finished", utils.String("status", report.Status))
	return report
}

// processPair обрабатывает одну пару: кэш, затем позиция или сигнал
func (e *Engine) processPair(ctx context.Context, pair string, now time.Time, outcome *models.PairOutcome) error {
	for _, tf := range []models.Timeframe{models.Timeframe15m, models.Timeframe1h} {
		res, err := e.sync.Sync(ctx, pair, tf, now)
		if err != nil {
			return err
		}
		if res.Written > 0 {
			barsWritten.WithLabelValues(string(tf)).Add(float64(res.Written))
		}

		// дозаполнение истории - необязательный фон, его ошибки не
		// валят пару, кроме фатальных для прогона
		if _, err := e.sync.Backfill(ctx, pair, tf); err != nil {
			if errors.Is(err, marketdata.ErrRateLimited) || errors.Is(err, marketdata.ErrForbidden) {
				return err
			}
			e.logger.Warn("backfill failed", utils.Pair(pair), utils.Tf(string(tf)), utils.Err(err))
		}
	}
	outcome.Actions = append(outcome.Actions, "synced")

	if e.cfg.DataOnly {
		return nil
	}

	position, err := e.positions.GetOpen(pair)
	switch {
	case err == nil:
		return e.evaluatePosition(pair, position, outcome)
	case errors.Is(err, repository.ErrPositionNotFound):
		return e.requestEntry(ctx, pair, now, outcome)
	default:
		return fmt.Errorf("load open position: %w", err)
	}
}

// evaluatePosition прогоняет трейлинг-движок по открытой позиции
func (e *Engine) evaluatePosition(pair string, p *models.Position, outcome *models.PairOutcome) error {
	bars, err := e.candles.LoadRecent(pair, models.Timeframe15m, e.cfg.Payload15m)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}

	d := e.evaluator.Evaluate(p, bars)
	if d.Skipped {
		outcome.Actions = append(outcome.Actions, "bar_already_processed")
		return nil
	}

	if d.Closed {
		if err := e.positions.Close(p.ID, d.CloseReason, *p.ClosedAt); err != nil {
			return fmt.Errorf("close position: %w", err)
		}
		positionsClosed.WithLabelValues(d.CloseReason).Inc()
		outcome.Actions = append(outcome.Actions, "closed_"+d.CloseReason)
		e.notifyClose(p, d.CloseReason)
		return nil
	}

	if err := e.positions.UpdateTrail(p); err != nil {
		return fmt.Errorf("persist trail state: %w", err)
	}

	if d.Armed {
		trailArmed.Inc()
		outcome.Actions = append(outcome.Actions, "trail_armed")
		e.notifier.Notify(&models.Notification{
			Type: models.NotifyTrailOn, Severity: models.SeverityInfo,
			Pair: pair, PositionID: p.ID,
			Message: fmt.Sprintf("%s %s: trail armed at %.5f", pair, p.Side, p.EffectiveTrail()),
			Meta:    map[string]interface{}{"trail": p.EffectiveTrail()},
		})
	}

	// микросдвиги трейла не спамят канал уведомлений
	if d.TrailMoved && utils.PriceMoveSignificant(d.NewTrail, d.PrevTrail, e.cfg.MinTrailDelta) {
		trailUpdates.Inc()
		outcome.Actions = append(outcome.Actions, "trail_updated")
		e.notifier.Notify(&models.Notification{
			Type: models.NotifyTrailUpdate, Severity: models.SeverityInfo,
			Pair: pair, PositionID: p.ID,
			Message: fmt.Sprintf("%s %s: trail %.5f -> %.5f", pair, p.Side, d.PrevTrail, d.NewTrail),
			Meta:    map[string]interface{}{"prev": d.PrevTrail, "trail": d.NewTrail},
		})
	}

	if len(outcome.Actions) == 1 { // только "synced"
		outcome.Actions = append(outcome.Actions, "evaluated")
	}

	return nil
}

// requestEntry запрашивает входной сигнал и открывает позицию
func (e *Engine) requestEntry(ctx context.Context, pair string, now time.Time, outcome *models.PairOutcome) error {
	bars15, err := e.candles.LoadRecent(pair, models.Timeframe15m, e.cfg.Payload15m)
	if err != nil {
		return fmt.Errorf("load 15m bars: %w", err)
	}
	bars1h, err := e.candles.LoadRecent(pair, models.Timeframe1h, e.cfg.Payload1h)
	if err != nil {
		return fmt.Errorf("load 1h bars: %w", err)
	}

	sig, err := e.strategy.RequestSignal(ctx, pair, bars15, bars1h)
	if err != nil {
		return fmt.Errorf("request entry signal: %w", err)
	}
	if sig == nil {
		outcome.Actions = append(outcome.Actions, "no_signal")
		return nil
	}

	// кривой сигнал - это "нет сигнала", а не ошибка прогона
	if err := sig.Validate(); err != nil {
		e.logger.Warn("malformed entry signal discarded", utils.Pair(pair), utils.Err(err))
		outcome.Actions = append(outcome.Actions, "no_signal")
		return nil
	}

	if sig.SignalID != "" {
		fresh, err := e.signals.Record(pair, sig)
		if err != nil {
			return fmt.Errorf("record signal: %w", err)
		}
		if !fresh {
			outcome.Actions = append(outcome.Actions, "duplicate_signal")
			return nil
		}
	}

	seq, err := e.positions.NextSequence(pair)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	p := &models.Position{
		ID:         models.PositionID(pair, int64(seq)),
		Pair:       pair,
		Side:       sig.Side,
		Mode:       sig.Mode,
		EntryPrice: sig.Entry,
		StopPrice:  sig.Stop,
		OpenedAt:   now,
	}
	if err := e.positions.Create(p); err != nil {
		return fmt.Errorf("create position: %w", err)
	}

	positionsOpened.Inc()
	outcome.Actions = append(outcome.Actions, "entry")
	e.logger.Info("position opened",
		utils.Pair(pair), utils.PositionIDField(p.ID),
		utils.Side(p.Side), utils.Mode(p.Mode),
		utils.Price(p.EntryPrice), utils.Stop(p.StopPrice))
	e.notifier.Notify(&models.Notification{
		Type: models.NotifyEntry, Severity: models.SeverityInfo,
		Pair: pair, PositionID: p.ID,
		Message: fmt.Sprintf("%s %s %s: entry %.5f, stop %.5f", pair, p.Side, p.Mode, p.EntryPrice, p.StopPrice),
		Meta:    map[string]interface{}{"entry": p.EntryPrice, "stop": p.StopPrice},
	})

	return nil
}

func (e *Engine) notifyClose(p *models.Position, reason string) {
	notifType := models.NotifyStop
	level := p.StopPrice
	if reason == models.CloseReasonTrail {
		notifType = models.NotifyTrailExit
		level = p.EffectiveTrail()
	}

	e.logger.Info("position closed",
		utils.Pair(p.Pair), utils.PositionIDField(p.ID),
		utils.String("reason", reason), utils.Price(level))
	e.notifier.Notify(&models.Notification{
		Type: notifType, Severity: models.SeverityWarn,
		Pair: p.Pair, PositionID: p.ID,
		Message: fmt.Sprintf("%s %s closed (%s) at %.5f", p.Pair, p.Side, reason, level),
		Meta:    map[string]interface{}{"level": level, "entry": p.EntryPrice},
	})
}

func (e *Engine) notifyError(pair, positionID, msg string) {
	e.notifier.Notify(&models.Notification{
		Type: models.NotifyError, Severity: models.SeverityError,
		Pair: pair, PositionID: positionID, Message: msg,
	})
}
