package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Config конфигурация для retry логики
//
// Экспоненциальный backoff с jitter:
// delay = min(InitialDelay * Multiplier^attempt + jitter, MaxDelay)
//
// Jitter добавляет случайность чтобы избежать "thundering herd"
// когда много клиентов retry'ят одновременно
type Config struct {
	// MaxRetries - максимальное количество попыток (включая первую)
	// 0 или отрицательное = бесконечные retry (не рекомендуется)
	MaxRetries int

	// InitialDelay - начальная задержка между попытками
	// По умолчанию: 100ms
	InitialDelay time.Duration

	// MaxDelay - максимальная задержка между попытками
	// По умолчанию: 30s
	MaxDelay time.Duration

	// Multiplier - множитель для экспоненциального роста
	// По умолчанию: 2.0 (удвоение после каждой попытки)
	Multiplier float64

	// JitterFactor - фактор случайности (0.0 - 1.0)
	// По умолчанию: 0.1 (10% вариации)
	JitterFactor float64

	// RetryIf - функция для определения нужно ли retry'ить ошибку
	// По умолчанию: retry все ошибки
	RetryIf func(error) bool

	// OnRetry - callback вызываемый перед каждым retry
	// Полезно для логирования
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig возвращает конфигурацию по умолчанию
//
// Подходит для большинства HTTP вызовов:
// - 4 попытки
// - Задержки: 100ms, 200ms, 400ms, 800ms (+ jitter)
func DefaultConfig() Config {
	return Config{
		MaxRetries:   4,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// NotifierConfig для отправки уведомлений (Telegram API)
//
// Уведомления не критичны для торговой логики, но сеть до Telegram
// бывает капризной - retry медленнее и дольше:
// - 3 попытки
// - Задержки: 500ms, 1s, 2s
func NotifierConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.2,
	}
}

// validate проверяет и устанавливает значения по умолчанию
func (c *Config) validate() {
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = 0
	}
	if c.JitterFactor > 1 {
		c.JitterFactor = 1
	}
}

// calculateDelay вычисляет задержку для указанной попытки
func (c *Config) calculateDelay(attempt int) time.Duration {
	// Экспоненциальный рост: InitialDelay * Multiplier^attempt
	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))

	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	// Добавляем jitter
	if c.JitterFactor > 0 {
		jitter := delay * c.JitterFactor * (rand.Float64()*2 - 1)
		delay += jitter
	}

	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// Do выполняет операцию с повторными попытками
//
// Пример:
//
//	err := retry.Do(ctx, func() error {
//	    return notifier.Send(text)
//	}, retry.NotifierConfig())
func Do(ctx context.Context, operation func() error, cfg Config) error {
	cfg.validate()

	var lastErr error

	for attempt := 0; cfg.MaxRetries <= 0 || attempt < cfg.MaxRetries; attempt++ {
		// Проверяем контекст перед каждой попыткой
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return lastErr
			}
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		// Проверяем нужно ли retry'ить эту ошибку
		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return err
		}

		// Последняя попытка - не ждём
		if cfg.MaxRetries > 0 && attempt >= cfg.MaxRetries-1 {
			break
		}

		delay := cfg.calculateDelay(attempt)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		// Ждём с возможностью отмены
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return lastErr
		}
	}

	return lastErr
}

// DoWithResult выполняет операцию с результатом и retry
//
// Полезно когда операция возвращает значение:
//
//	sig, err := retry.DoWithResult(ctx, func() (*models.EntrySignal, error) {
//	    return client.RequestSignal(ctx, pair, bars15m, bars1h)
//	}, retry.DefaultConfig())
func DoWithResult[T any](ctx context.Context, operation func() (T, error), cfg Config) (T, error) {
	cfg.validate()

	var lastErr error
	var zero T

	for attempt := 0; cfg.MaxRetries <= 0 || attempt < cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, ctx.Err()
		default:
		}

		result, err := operation()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return zero, err
		}

		if cfg.MaxRetries > 0 && attempt >= cfg.MaxRetries-1 {
			break
		}

		delay := cfg.calculateDelay(attempt)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, lastErr
		}
	}

	return zero, lastErr
}

// RetryIfNotContext не retry'ит ошибки контекста (cancel, timeout)
func RetryIfNotContext(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
