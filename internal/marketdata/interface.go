package marketdata

import (
	"context"
	"errors"
	"time"

	"orion-brain/internal/models"
)

// Ошибки поставщика данных. Rate limit и запрет доступа выделены
// отдельно - координатор прогона обязан различать их и прерывать
// весь прогон, а не только текущую пару.
var (
	ErrRateLimited = errors.New("provider rate limit exceeded")
	ErrForbidden   = errors.New("provider access forbidden")
	ErrNoData      = errors.New("provider returned no data")
)

// RawBar - бар в том виде, как его отдал поставщик: время открытия
// в миллисекундах Unix. Нормализацию к закрывающему ts на сетке
// делает синхронизатор.
type RawBar struct {
	OpenTimeMs int64
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
}

// CloseTime возвращает время закрытия бара в UTC
func (b RawBar) CloseTime(tf models.Timeframe) time.Time {
	return time.UnixMilli(b.OpenTimeMs).UTC().Add(tf.Duration())
}

// Quote - котировка реального времени для real-time guard
type Quote struct {
	Pair      string
	Bid       float64
	Ask       float64
	Mid       float64
	Timestamp time.Time
}

// Provider определяет интерфейс поставщика рыночных данных
type Provider interface {
	// FetchBars возвращает бары пары за интервал [from, to] в порядке
	// возрастания времени. Прозрачно проходит по страницам ответа.
	FetchBars(ctx context.Context, pair string, tf models.Timeframe, from, to time.Time) ([]RawBar, error)

	// LastQuote возвращает последнюю котировку пары
	LastQuote(ctx context.Context, pair string) (*Quote, error)
}
