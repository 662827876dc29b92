package util

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		if NewLogger(level) == nil {
			t.Errorf("NewLogger(%q) returned nil", level)
		}
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Errorf("Retry = %v, want nil", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	want := errors.New("permanent")
	attempts := 0
	err := Retry(context.Background(), 2, time.Millisecond, func() error {
		attempts++
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("Retry = %v, want %v", err, want)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryAnnotatesAttemptCount(t *testing.T) {
	err := Retry(context.Background(), 2, time.Millisecond, func() error {
		return errors.New("permanent")
	})
	if err == nil || !strings.Contains(err.Error(), "after 2 attempts") {
		t.Errorf("err = %v, want attempt count in message", err)
	}
}

func TestRetryRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, 5, time.Hour, func() error {
		return errors.New("always fails")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry = %v, want context.Canceled", err)
	}
}

func TestRateLimiterFirstTokenImmediate(t *testing.T) {
	rl := NewRateLimiter(60)
	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("first Wait should not block")
	}
}

func TestRateLimiterSpacesCalls(t *testing.T) {
	rl := NewRateLimiter(1200) // one call per 50ms
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	// The first call is free; the next two each wait a 50ms slot.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("three calls took %v, want roughly two 50ms gaps", elapsed)
	}
}

func TestRateLimiterContextCancel(t *testing.T) {
	rl := NewRateLimiter(1) // one per minute
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want deadline exceeded", err)
	}
}

func TestNextTradingDay(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2024-06-03", "2024-06-04"}, // Mon -> Tue
		{"2024-06-07", "2024-06-10"}, // Fri -> Mon
		{"2024-06-08", "2024-06-10"}, // Sat -> Mon
		{"2024-06-09", "2024-06-10"}, // Sun -> Mon
	}
	for _, c := range cases {
		in, _ := time.Parse("2006-01-02", c.in)
		if got := NextTradingDay(in).Format("2006-01-02"); got != c.want {
			t.Errorf("NextTradingDay(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestIsWeekend(t *testing.T) {
	sat, _ := time.Parse("2006-01-02", "2024-06-08")
	mon, _ := time.Parse("2006-01-02", "2024-06-10")
	if !IsWeekend(sat) {
		t.Error("Saturday should be weekend")
	}
	if IsWeekend(mon) {
		t.Error("Monday should not be weekend")
	}
}
