package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestRetryWithBackoff_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), DefaultRetryConfig(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithBackoff_SucceedsOnLastAttempt(t *testing.T) {
	var calls atomic.Int32
	cfg := RetryConfig{Retries: 2, BaseDelay: time.Millisecond}
	err := RetryWithBackoff(context.Background(), cfg, func(context.Context) error {
		if calls.Add(1) < 3 {
			return fmt.Errorf("provider HTTP 503")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error after retries, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestRetryWithBackoff_ExhaustsAllAttempts(t *testing.T) {
	calls := 0
	cfg := RetryConfig{Retries: 2, BaseDelay: time.Millisecond}
	err := RetryWithBackoff(context.Background(), cfg, func(context.Context) error {
		calls++
		return fmt.Errorf("attempt %d", calls)
	})
	if err == nil || err.Error() != "attempt 3" {
		t.Fatalf("expected last error 'attempt 3', got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected retries+1 = 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_ZeroRetries(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), RetryConfig{}, func(context.Context) error {
		calls++
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestRetryWithBackoff_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := RetryConfig{Retries: 5, BaseDelay: 100 * time.Millisecond}
	err := RetryWithBackoff(ctx, cfg, func(context.Context) error {
		calls++
		if calls == 1 {
			go func() {
				time.Sleep(10 * time.Millisecond)
				cancel()
			}()
		}
		return fmt.Errorf("connection reset")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestRetryWithBackoff_ExponentialDelay(t *testing.T) {
	cfg := RetryConfig{Retries: 3, BaseDelay: 40 * time.Millisecond}

	var timestamps []time.Time
	_ = RetryWithBackoff(context.Background(), cfg, func(context.Context) error {
		timestamps = append(timestamps, time.Now())
		return fmt.Errorf("timeout")
	})

	if len(timestamps) != 4 {
		t.Fatalf("expected 4 timestamps, got %d", len(timestamps))
	}

	// Expected: 40ms, 80ms, 160ms between calls.
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		expected := cfg.BaseDelay << (i - 1)
		if gap < expected {
			t.Errorf("gap[%d] = %v, expected at least %v", i, gap, expected)
		}
		if gap > expected*3 {
			t.Errorf("gap[%d] = %v, expected roughly %v", i, gap, expected)
		}
	}
}

func TestRetryConfigDelay(t *testing.T) {
	cfg := DefaultRetryConfig()
	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}
	for attempt, expected := range want {
		if got := cfg.delay(attempt); got != expected {
			t.Errorf("delay(%d) = %v, want %v", attempt, got, expected)
		}
	}
}
