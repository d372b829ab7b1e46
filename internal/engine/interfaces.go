package engine

import (
	"context"
	"time"

	"orion-brain/internal/candles"
	"orion-brain/internal/models"
)

// CandleSynchronizer определяет интерфейс синхронизатора кэша свечей
type CandleSynchronizer interface {
	Sync(ctx context.Context, pair string, tf models.Timeframe, now time.Time) (*candles.SyncResult, error)
	Backfill(ctx context.Context, pair string, tf models.Timeframe) (*candles.BackfillResult, error)
}

// CandleSource определяет интерфейс чтения свечей для движка и стратегии
type CandleSource interface {
	LoadRecent(pair string, tf models.Timeframe, limit int) ([]models.Candle, error)
}

// PositionStoreInterface определяет интерфейс хранилища позиций
type PositionStoreInterface interface {
	GetOpen(pair string) (*models.Position, error)
	Create(p *models.Position) error
	Close(id string, reason string, closedAt time.Time) error
	UpdateTrail(p *models.Position) error
	NextSequence(pair string) (int, error)
}

// SignalJournalInterface определяет интерфейс журнала сигналов (дедупликация)
type SignalJournalInterface interface {
	Record(pair string, sig *models.EntrySignal) (bool, error)
}

// EntrySignalSource определяет интерфейс внешнего сервиса входных сигналов.
// nil сигнал без ошибки означает "входа нет".
type EntrySignalSource interface {
	RequestSignal(ctx context.Context, pair string, bars15m, bars1h []models.Candle) (*models.EntrySignal, error)
}

// Notifier определяет интерфейс отправки уведомлений.
// Реализация обязана быть fire-and-forget: движок не ждет доставки.
type Notifier interface {
	Notify(n *models.Notification)
}
