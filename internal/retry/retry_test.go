package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/team-leekim/newsnack-ai/internal/retry"
)

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		MinDelay:    time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoStopsAtAttemptBudget(t *testing.T) {
	attempts := 0
	wantErr := errors.New("still broken")
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected final error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoPermanentErrorNotRetried(t *testing.T) {
	attempts := 0
	wantErr := errors.New("no editors exist")
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		attempts++
		return retry.Permanent(wantErr)
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := fastPolicy().Do(ctx, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("transient")
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestDoValueReturnsResult(t *testing.T) {
	attempts := 0
	value, err := retry.DoValue(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("transient")
		}
		return "image-bytes", nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if value != "image-bytes" {
		t.Fatalf("unexpected value %q", value)
	}
}
