package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Config struct {
	PerMinute int
	PerDay    int
}

func DefaultConfig() Config {
	return Config{
		PerMinute: 60,
		PerDay:    2000,
	}
}

func NormalizeConfig(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.PerMinute < 1 {
		cfg.PerMinute = defaults.PerMinute
	}
	if cfg.PerDay < 1 {
		cfg.PerDay = defaults.PerDay
	}
	return cfg
}

// Limiter enforces a shared request budget with two token buckets, one per
// minute and one per day. Every caller must Acquire a slot before issuing a
// request; waits go through an interruptible sleep so shutdown latency stays
// bounded. A provider Retry-After pause gates all acquirers.
type Limiter struct {
	mu          sync.Mutex
	minute      *rate.Limiter
	day         *rate.Limiter
	pausedUntil time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config) *Limiter {
	cfg = NormalizeConfig(cfg)
	return &Limiter{
		minute: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), cfg.PerMinute),
		day:    rate.NewLimiter(rate.Every(24*time.Hour/time.Duration(cfg.PerDay)), cfg.PerDay),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Acquire blocks until both buckets grant a slot, waiting out an active
// Retry-After pause first.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	now := l.now()
	wait := l.pausedUntil.Sub(now)
	minuteRes := l.minute.ReserveN(now, 1)
	dayRes := l.day.ReserveN(now, 1)
	if d := minuteRes.DelayFrom(now); d > wait {
		wait = d
	}
	if d := dayRes.DelayFrom(now); d > wait {
		wait = d
	}
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	if err := l.sleep(ctx, wait); err != nil {
		at := l.now()
		minuteRes.CancelAt(at)
		dayRes.CancelAt(at)
		return err
	}
	return nil
}

// Pause pushes every subsequent Acquire past the given duration, typically a
// Retry-After hint from the provider, and waits it out itself.
func (l *Limiter) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	until := l.now().Add(d)
	if until.After(l.pausedUntil) {
		l.pausedUntil = until
	}
	l.mu.Unlock()

	return l.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
