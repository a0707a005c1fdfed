package ratelimit

import (
	"context"
	"testing"
	"time"
)

func newTestLimiter(cfg Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{current: time.Unix(1_700_000_000, 0)}
	l := New(cfg)
	l.now = clock.Now
	l.sleep = clock.Sleep
	return l, clock
}

type fakeClock struct {
	current time.Time
	slept   []time.Duration
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept = append(c.slept, d)
	c.current = c.current.Add(d)
	return nil
}

func TestLimiterAllowsBurstWithinMinuteBudget(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(Config{PerMinute: 5, PerDay: 100})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire #%d: %v", i, err)
		}
	}
	if len(clock.slept) != 0 {
		t.Fatalf("expected no sleeps within budget, got %v", clock.slept)
	}
}

func TestLimiterSleepsWhenMinuteBudgetExhausted(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(Config{PerMinute: 3, PerDay: 100})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire #%d: %v", i, err)
		}
	}

	// The bucket is drained, so the fourth slot waits one refill interval.
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire over budget: %v", err)
	}
	if len(clock.slept) != 1 {
		t.Fatalf("expected one sleep, got %v", clock.slept)
	}
	if clock.slept[0] != 20*time.Second {
		t.Fatalf("expected 20s sleep, got %v", clock.slept[0])
	}
}

func TestLimiterRefillsWhileIdle(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(Config{PerMinute: 2, PerDay: 100})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire #%d: %v", i, err)
		}
	}
	clock.current = clock.current.Add(30 * time.Second)

	// One token refilled while idle; the request after it pays a full interval.
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after refill: %v", err)
	}
	if len(clock.slept) != 0 {
		t.Fatalf("expected no sleep after refill, got %v", clock.slept)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire on empty bucket: %v", err)
	}
	if len(clock.slept) != 1 || clock.slept[0] != 30*time.Second {
		t.Fatalf("expected single 30s sleep, got %v", clock.slept)
	}
}

func TestLimiterDayBudgetDominates(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(Config{PerMinute: 10, PerDay: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire #%d: %v", i, err)
		}
	}

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire over daily budget: %v", err)
	}
	if len(clock.slept) != 1 || clock.slept[0] != 12*time.Hour {
		t.Fatalf("expected 12h sleep, got %v", clock.slept)
	}
}

func TestLimiterAcquireHonorsCancellation(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(Config{PerMinute: 1, PerDay: 100})

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Acquire(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestPauseDefersSubsequentAcquires(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(Config{PerMinute: 100, PerDay: 1000})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Pause(ctx, time.Minute); err == nil {
		t.Fatal("expected cancellation error")
	}

	// The pause window survives the interrupted wait and gates the next caller.
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire during pause: %v", err)
	}
	if len(clock.slept) != 1 || clock.slept[0] != time.Minute {
		t.Fatalf("expected one-minute sleep, got %v", clock.slept)
	}
}

func TestPauseRespectsContext(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(DefaultConfig())

	if err := l.Pause(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if len(clock.slept) != 1 || clock.slept[0] != 5*time.Second {
		t.Fatalf("expected 5s sleep, got %v", clock.slept)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Pause(ctx, time.Second); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestNormalizeConfigAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg := NormalizeConfig(Config{})
	if cfg.PerMinute != 60 || cfg.PerDay != 2000 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
