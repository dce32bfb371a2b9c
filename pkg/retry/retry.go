// Package retry повторяет операцию с экспоненциальной задержкой.
// В сервисе используется один раз: ожидание базы при старте.
package retry

import (
	"context"
	"errors"
	"time"
)

// Config - параметры повторов. Задержка после попытки n (с нуля):
// min(InitialDelay * Multiplier^n, MaxDelay).
type Config struct {
	MaxAttempts  int // всего попыток, включая первую
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// OnRetry вызывается перед ожиданием; attempt считается с единицы
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig - 5 попыток, паузы 500ms, 1s, 2s, 4s
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
	}
}

func (c Config) normalized() Config {
	c.MaxAttempts = max(c.MaxAttempts, 1)
	c.InitialDelay = max(c.InitialDelay, 0)
	c.MaxDelay = max(c.MaxDelay, c.InitialDelay)
	c.Multiplier = max(c.Multiplier, 1)
	return c
}

func (c Config) delay(attempt int) time.Duration {
	d := float64(c.InitialDelay)
	for i := 0; i < attempt && d < float64(c.MaxDelay); i++ {
		d *= c.Multiplier
	}
	return min(time.Duration(d), c.MaxDelay)
}

// Do вызывает operation, пока она не вернет nil, не кончатся попытки
// или не отменят ctx. Ошибка из Permanent останавливает повторы сразу.
// При неудаче возвращается последняя ошибка операции.
func Do(ctx context.Context, operation func() error, cfg Config) error {
	cfg = cfg.normalized()

	var lastErr error
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			if lastErr == nil {
				lastErr = ctx.Err()
			}
			return lastErr
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		var stop *permanentError
		if errors.As(lastErr, &stop) {
			return stop.err
		}
		if attempt+1 >= cfg.MaxAttempts {
			return lastErr
		}

		wait := cfg.delay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr, wait)
		}
		if !sleep(ctx, wait) {
			return lastErr
		}
	}
}

// sleep ждет d; false, если ctx отменен раньше
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent помечает ошибку как неповторяемую; nil остается nil
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
