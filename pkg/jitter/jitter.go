// Package jitter добавляет случайность в интервалы повторов (backoff),
// чтобы параллельные запросы к внешнему источнику не синхронизировались.
package jitter

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultJitter — стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

var (
	globalRand = rand.New(rand.NewSource(time.Now().UnixNano()))
	randMutex  sync.Mutex
)

// Duration возвращает продолжительность в диапазоне [d, d*(1+jitterFactor)].
func Duration(d time.Duration, jitterFactor float64) time.Duration {
	if d <= 0 || jitterFactor <= 0 {
		return d
	}

	randMutex.Lock()
	jitter := globalRand.Float64() * jitterFactor * float64(d)
	randMutex.Unlock()
	return d + time.Duration(jitter)
}

// ExponentialBackoff вычисляет задержку перед попыткой attempt (с нуля):
// base*2^attempt, не больше max, плюс джиттер.
func ExponentialBackoff(base, max time.Duration, attempt int, jitterFactor float64) time.Duration {
	backoff := base
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff > max {
			backoff = max
			break
		}
	}
	return Duration(backoff, jitterFactor)
}

// Backoff — настройки повторов для одного клиента.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

// Next возвращает задержку перед следующей попыткой.
func (b Backoff) Next(attempt int) time.Duration {
	return ExponentialBackoff(b.Base, b.Max, attempt, b.Factor)
}
