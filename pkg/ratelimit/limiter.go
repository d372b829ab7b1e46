package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter - Token Bucket rate limiter для контроля частоты запросов
// к внешним API (поставщик рыночных данных, Telegram)
//
// Алгоритм Token Bucket:
// - Ведро наполняется токенами с постоянной скоростью (rate токенов/сек)
// - Максимальная ёмкость ведра = burst (позволяет короткие всплески)
// - Каждый запрос потребляет 1 токен
// - Если токенов нет, запрос ждёт или отклоняется
//
// Клиентская упреждающая дозировка дополняет, а не заменяет обработку
// 429 от сервера: лимитер снижает вероятность 429, но ответ 429 все
// равно обрабатывается вызывающим кодом.
//
// Использование:
//
//	limiter := ratelimit.NewRateLimiter(4, 8) // 4 req/sec, burst 8
//	err := limiter.Wait(ctx)                  // блокирующее ожидание
//	if limiter.Allow() { ... }                // неблокирующая проверка
type RateLimiter struct {
	rate       float64   // токенов в секунду
	burst      float64   // максимальная ёмкость (burst capacity)
	tokens     float64   // текущее количество токенов
	lastRefill time.Time // время последнего пополнения
	mu         sync.Mutex
}

// NewRateLimiter создаёт новый rate limiter
//
// Параметры:
//   - rate: количество запросов в секунду
//   - burst: максимальный burst (обычно 1.5-2x от rate)
//
// Ориентиры:
//   - Polygon free tier: ~5 запросов/мин => rate 0.08, burst 1
//   - Polygon paid: единицы-десятки req/sec
//   - Telegram sendMessage: ~30 msg/sec на бота
func NewRateLimiter(rate, burst float64) *RateLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = rate * 2
	}
	if burst < rate {
		burst = rate
	}

	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst, // начинаем с полным ведром
		lastRefill: time.Now(),
	}
}

// refill пополняет токены на основе прошедшего времени
// ВАЖНО: вызывается под lock'ом
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()

	rl.tokens += elapsed * rl.rate

	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}

	rl.lastRefill = now
}

// Wait блокирует до получения токена или отмены контекста
//
// Возвращает:
//   - nil: токен получен, можно выполнять запрос
//   - ctx.Err(): контекст отменён (timeout или cancel)
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}

		// Время ожидания до следующего токена
		waitTime := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
		rl.mu.Unlock()

		select {
		case <-time.After(waitTime):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Allow проверяет доступность токена без блокировки
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}

	return false
}

// Tokens возвращает текущее количество доступных токенов
// Для мониторинга и тестов
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	return rl.tokens
}
