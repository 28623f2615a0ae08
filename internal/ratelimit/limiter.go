package ratelimit

import "time"

// Limiter decides per key whether one more event fits.
type Limiter interface {
	Allow(key string) bool
}

// NopLimiter lets everything through. Used when limiting is switched off.
type NopLimiter struct{}

func (NopLimiter) Allow(string) bool { return true }

// Clock is injected so tests can drive refill deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
