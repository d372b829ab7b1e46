package engine

import (
	"context"
	"fmt"
	"time"

	"orion-brain/internal/marketdata"
	"orion-brain/internal/models"
	"orion-brain/pkg/utils"
)

// GuardPositionStore - срез хранилища позиций, нужный real-time guard
type GuardPositionStore interface {
	ListOpen() ([]*models.Position, error)
	Close(id string, reason string, closedAt time.Time) error
}

// Guard - необязательный контур защиты между свечами.
//
// Раз в интервал сверяет живые котировки с уровнями открытых позиций и
// только закрывает их. Трейл он не взводит и не двигает - вся мутация
// трейл-состояния принадлежит свечному движку, иначе два контура
// начнут гоняться за одними и теми же полями.
type Guard struct {
	positions GuardPositionStore
	provider  marketdata.Provider
	notifier  Notifier
	interval  time.Duration
	logger    *utils.Logger

	now func() time.Time
}

// NewGuard создает real-time guard
func NewGuard(positions GuardPositionStore, provider marketdata.Provider, notifier Notifier, interval time.Duration, logger *utils.Logger) *Guard {
	return &Guard{
		positions: positions,
		provider:  provider,
		notifier:  notifier,
		interval:  interval,
		logger:    logger.WithComponent("guard"),
		now:       time.Now,
	}
}

// Run крутит цикл проверок до отмены контекста
func (g *Guard) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.logger.Info("real-time guard started", utils.String("interval", g.interval.String()))

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("real-time guard stopped")
			return
		case <-ticker.C:
			if err := g.CheckOnce(ctx); err != nil {
				g.logger.Warn("guard pass failed", utils.Err(err))
			}
		}
	}
}

// CheckOnce выполняет один проход по открытым позициям
func (g *Guard) CheckOnce(ctx context.Context) error {
	open, err := g.positions.ListOpen()
	if err != nil {
		return fmt.Errorf("list open positions: %w", err)
	}

	for _, p := range open {
		quote, err := g.provider.LastQuote(ctx, p.Pair)
		if err != nil {
			// guard - вспомогательный контур: ошибки котировок не
			// фатальны, свечной движок доберет на следующем баре
			g.logger.Debug("quote unavailable", utils.Pair(p.Pair), utils.Err(err))
			continue
		}

		g.checkPosition(p, quote)
	}

	return nil
}

// checkPosition закрывает позицию, если котировка пробила ее уровень.
// Стоп первичен относительно трейла, как и в свечном движке.
func (g *Guard) checkPosition(p *models.Position, quote *marketdata.Quote) {
	isLong := p.Side == models.SideLong

	price := quote.Bid // LONG закрывается по bid
	if !isLong {
		price = quote.Ask
	}

	var reason string
	switch {
	case breached(isLong, price, p.StopPrice):
		reason = models.CloseReasonStop
	case p.TrailOn && p.TrailPrice != nil && breached(isLong, price, *p.TrailPrice):
		reason = models.CloseReasonTrail
	default:
		return
	}

	closedAt := g.now().UTC()
	if err := g.positions.Close(p.ID, reason, closedAt); err != nil {
		g.logger.Error("guard close failed",
			utils.Pair(p.Pair), utils.PositionIDField(p.ID), utils.Err(err))
		return
	}

	positionsClosed.WithLabelValues(reason).Inc()
	g.logger.Info("position closed by guard",
		utils.Pair(p.Pair), utils.PositionIDField(p.ID),
		utils.String("reason", reason), utils.Price(price))

	notifType := models.NotifyStop
	if reason == models.CloseReasonTrail {
		notifType = models.NotifyTrailExit
	}
	g.notifier.Notify(&models.Notification{
		Type: notifType, Severity: models.SeverityWarn,
		Pair: p.Pair, PositionID: p.ID,
		Message: fmt.Sprintf("%s %s closed (%s) by guard at %.5f", p.Pair, p.Side, reason, price),
		Meta:    map[string]interface{}{"price": price},
	})
}

// breached проверяет пробой защитного уровня котировкой
func breached(isLong bool, price, level float64) bool {
	if isLong {
		return price <= level
	}
	return price >= level
}
