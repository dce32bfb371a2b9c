package ratelimit

import (
	"sync"
	"time"
)

// RateLimiter - Token Bucket limiter
//
// Алгоритм Token Bucket:
// - Ведро наполняется токенами с постоянной скоростью (rate токенов/сек)
// - Максимальная ёмкость ведра = burst
// - Каждый запрос потребляет 1 токен
// - Если токенов нет, запрос отклоняется
//
// Использование:
//
//	limiter := NewRateLimiter(1, 5) // 1 req/sec, burst 5
//	if !limiter.Allow() { ... }
type RateLimiter struct {
	rate       float64
	burst      float64
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewRateLimiter создаёт limiter с полным ведром
func NewRateLimiter(rate, burst float64) *RateLimiter {
	return newRateLimiter(rate, burst, time.Now)
}

func newRateLimiter(rate, burst float64, now func() time.Time) *RateLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst < 1 {
		burst = 1
	}

	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst,
		lastRefill: now(),
		now:        now,
	}
}

// refill пополняет токены; вызывается под lock'ом
func (rl *RateLimiter) refill() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	rl.tokens += elapsed * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.lastRefill = now
}

// Allow забирает токен, если он есть
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

// Tokens возвращает текущее количество токенов
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// full - ведро полное, ключ можно забыть
func (rl *RateLimiter) full() bool {
	return rl.Tokens() >= rl.burst
}

// ============ KeyedLimiter ============

// KeyedLimiter - отдельное ведро на ключ (адрес клиента).
// Полные ведра удаляются при Sweep, чтобы карта не росла.
type KeyedLimiter struct {
	rate     float64
	burst    float64
	now      func() time.Time
	limiters map[string]*RateLimiter
	mu       sync.Mutex
}

// NewKeyedLimiter создаёт limiter с ведром rate/burst на каждый ключ
func NewKeyedLimiter(rate, burst float64) *KeyedLimiter {
	return &KeyedLimiter{
		rate:     rate,
		burst:    burst,
		now:      time.Now,
		limiters: make(map[string]*RateLimiter),
	}
}

// Allow проверяет ведро ключа, создавая его при первом обращении
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	limiter, ok := kl.limiters[key]
	if !ok {
		limiter = newRateLimiter(kl.rate, kl.burst, kl.now)
		kl.limiters[key] = limiter
	}
	kl.mu.Unlock()

	return limiter.Allow()
}

// Sweep удаляет ключи с полными ведрами, возвращает число удаленных
func (kl *KeyedLimiter) Sweep() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	removed := 0
	for key, limiter := range kl.limiters {
		if limiter.full() {
			delete(kl.limiters, key)
			removed++
		}
	}
	return removed
}

// Len - количество отслеживаемых ключей
func (kl *KeyedLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.limiters)
}
