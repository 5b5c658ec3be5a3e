package breaker_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/team-leekim/newsnack-ai/internal/breaker"
	"github.com/team-leekim/newsnack-ai/internal/config"
)

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.code)
}

func (e *statusError) StatusCode() int {
	return e.code
}

func newTestBreaker(t *testing.T, name string) (*breaker.Breaker, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Breaker{
		RedisAddr:              srv.Addr(),
		FailureThreshold:       2,
		FailureWindowSeconds:   60,
		RecoveryTimeoutSeconds: 180,
		TargetErrorCodes:       []string{"500", "503", "429"},
	}
	return breaker.New(client, name, cfg), srv
}

func TestExecuteSuccessLeavesCircuitClosed(t *testing.T) {
	b, _ := newTestBreaker(t, "image")
	ctx := context.Background()

	got, err := breaker.Execute(ctx, b, func(context.Context) (string, error) {
		return "primary", nil
	}, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != "primary" {
		t.Fatalf("unexpected result %q", got)
	}

	open, err := b.IsOpen(ctx)
	if err != nil {
		t.Fatalf("IsOpen failed: %v", err)
	}
	if open {
		t.Fatal("expected circuit closed")
	}
}

func TestExecuteOpensAtThresholdAndUsesFallback(t *testing.T) {
	b, _ := newTestBreaker(t, "image")
	ctx := context.Background()

	primaryCalls := 0
	fallbackCalls := 0
	primary := func(context.Context) (string, error) {
		primaryCalls++
		return "", &statusError{code: 503}
	}
	fallback := func(context.Context) (string, error) {
		fallbackCalls++
		return "fallback", nil
	}

	// First failure stays below the threshold of 2.
	if _, err := breaker.Execute(ctx, b, primary, fallback); err == nil {
		t.Fatal("expected error below threshold")
	}
	if fallbackCalls != 0 {
		t.Fatal("fallback must not run below threshold")
	}

	// Second failure trips the circuit and re-routes to the fallback.
	got, err := breaker.Execute(ctx, b, primary, fallback)
	if err != nil {
		t.Fatalf("expected fallback result, got error: %v", err)
	}
	if got != "fallback" || fallbackCalls != 1 {
		t.Fatalf("expected one fallback call, got %q calls=%d", got, fallbackCalls)
	}

	open, err := b.IsOpen(ctx)
	if err != nil {
		t.Fatalf("IsOpen failed: %v", err)
	}
	if !open {
		t.Fatal("expected circuit open at threshold")
	}

	// While open, primary is skipped entirely.
	before := primaryCalls
	got, err = breaker.Execute(ctx, b, primary, fallback)
	if err != nil || got != "fallback" {
		t.Fatalf("expected fallback while open, got %q err=%v", got, err)
	}
	if primaryCalls != before {
		t.Fatal("primary must not run while circuit is open")
	}
}

func TestExecuteOpensWithoutFallbackReturnsError(t *testing.T) {
	b, _ := newTestBreaker(t, "image")
	ctx := context.Background()

	wantErr := &statusError{code: 500}
	primary := func(context.Context) (string, error) {
		return "", wantErr
	}

	for i := 0; i < 2; i++ {
		if _, err := breaker.Execute[string](ctx, b, primary, nil); !errors.Is(err, wantErr) {
			t.Fatalf("attempt %d: expected upstream error, got %v", i+1, err)
		}
	}

	open, err := b.IsOpen(ctx)
	if err != nil {
		t.Fatalf("IsOpen failed: %v", err)
	}
	if !open {
		t.Fatal("expected circuit open")
	}

	// Without a fallback the primary handles calls even while open.
	calls := 0
	got, err := breaker.Execute(ctx, b, func(context.Context) (string, error) {
		calls++
		return "primary", nil
	}, nil)
	if err != nil || got != "primary" || calls != 1 {
		t.Fatalf("expected primary to serve open circuit, got %q calls=%d err=%v", got, calls, err)
	}
}

func TestExecuteNonTargetErrorPassesThrough(t *testing.T) {
	b, srv := newTestBreaker(t, "image")
	ctx := context.Background()

	wantErr := &statusError{code: 404}
	for i := 0; i < 5; i++ {
		_, err := breaker.Execute[string](ctx, b, func(context.Context) (string, error) {
			return "", wantErr
		}, nil)
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected original error, got %v", err)
		}
	}

	if srv.Exists("circuit_breaker:image:fail_count") {
		t.Fatal("non-target errors must not touch the failure counter")
	}
	open, err := b.IsOpen(ctx)
	if err != nil {
		t.Fatalf("IsOpen failed: %v", err)
	}
	if open {
		t.Fatal("expected circuit closed after non-target errors")
	}
}

func TestExecuteMatchesCodeInMessage(t *testing.T) {
	b, srv := newTestBreaker(t, "image")
	ctx := context.Background()

	// No StatusCode method; the code only appears in the message text.
	plainErr := errors.New("rpc error: code 429 resource exhausted")
	if _, err := breaker.Execute[string](ctx, b, func(context.Context) (string, error) {
		return "", plainErr
	}, nil); !errors.Is(err, plainErr) {
		t.Fatalf("expected original error, got %v", err)
	}

	if !srv.Exists("circuit_breaker:image:fail_count") {
		t.Fatal("expected failure counter after substring match")
	}
}

func TestCircuitClosesAfterRecoveryTimeout(t *testing.T) {
	b, srv := newTestBreaker(t, "image")
	ctx := context.Background()

	primary := func(context.Context) (string, error) {
		return "", &statusError{code: 503}
	}
	for i := 0; i < 2; i++ {
		_, _ = breaker.Execute[string](ctx, b, primary, nil)
	}

	open, err := b.IsOpen(ctx)
	if err != nil {
		t.Fatalf("IsOpen failed: %v", err)
	}
	if !open {
		t.Fatal("expected circuit open")
	}

	srv.FastForward(181 * time.Second)

	open, err = b.IsOpen(ctx)
	if err != nil {
		t.Fatalf("IsOpen failed: %v", err)
	}
	if open {
		t.Fatal("expected circuit closed after recovery timeout")
	}

	calls := 0
	got, err := breaker.Execute(ctx, b, func(context.Context) (string, error) {
		calls++
		return "primary", nil
	}, nil)
	if err != nil || got != "primary" || calls != 1 {
		t.Fatalf("expected primary after recovery, got %q calls=%d err=%v", got, calls, err)
	}
}

func TestFailureWindowExpiresCounter(t *testing.T) {
	b, srv := newTestBreaker(t, "image")
	ctx := context.Background()

	primary := func(context.Context) (string, error) {
		return "", &statusError{code: 500}
	}
	if _, err := breaker.Execute[string](ctx, b, primary, nil); err == nil {
		t.Fatal("expected error")
	}

	srv.FastForward(61 * time.Second)
	if srv.Exists("circuit_breaker:image:fail_count") {
		t.Fatal("expected failure counter to expire with the window")
	}

	// A failure after the window starts a fresh count and does not trip.
	if _, err := breaker.Execute[string](ctx, b, primary, nil); err == nil {
		t.Fatal("expected error")
	}
	open, err := b.IsOpen(ctx)
	if err != nil {
		t.Fatalf("IsOpen failed: %v", err)
	}
	if open {
		t.Fatal("expected circuit closed, failures are in separate windows")
	}
}
