// Package breaker implements a Redis-backed circuit breaker shared across
// processes. Failure counts and the open flag live in Redis so every worker
// observing an unhealthy upstream converges on the same decision.
//
// The breaker has two states. Closed calls go to the primary path; once
// target failures reach the threshold inside the rolling window the circuit
// opens for the recovery timeout and calls are routed to the fallback path.
// Recovery is implicit: the open flag carries a TTL and the circuit closes
// when it expires. There is no half-open probe.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/team-leekim/newsnack-ai/internal/config"
	"github.com/team-leekim/newsnack-ai/internal/logging"
)

const openState = "OPEN"

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// Breaker guards one named upstream dependency.
type Breaker struct {
	client      redis.UniversalClient
	name        string
	threshold   int
	window      time.Duration
	recovery    time.Duration
	targetCodes []string
	logger      *slog.Logger
}

// Option configures optional Breaker behaviour.
type Option func(*Breaker)

// WithLogger attaches a logger for state-change events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Breaker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New builds a breaker for the named circuit using shared Redis state.
func New(client redis.UniversalClient, name string, cfg config.Breaker, opts ...Option) *Breaker {
	b := &Breaker{
		client:      client,
		name:        name,
		threshold:   cfg.FailureThreshold,
		window:      time.Duration(cfg.FailureWindowSeconds) * time.Second,
		recovery:    time.Duration(cfg.RecoveryTimeoutSeconds) * time.Second,
		targetCodes: cfg.TargetErrorCodes,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewClient dials Redis at the configured address.
func NewClient(cfg config.Breaker) redis.UniversalClient {
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

func (b *Breaker) statusKey() string {
	return "circuit_breaker:" + b.name + ":status"
}

func (b *Breaker) failCountKey() string {
	return "circuit_breaker:" + b.name + ":fail_count"
}

// IsOpen reports whether the circuit is currently open.
func (b *Breaker) IsOpen(ctx context.Context) (bool, error) {
	value, err := b.client.Get(ctx, b.statusKey()).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read circuit state: %w", err)
	}
	return value == openState, nil
}

// Execute runs primary under breaker protection. While the circuit is open
// the fallback runs instead, without touching failure counters. When primary
// fails with a target error the shared counter is incremented; crossing the
// threshold opens the circuit and, when a fallback exists, retries the call
// on the fallback path once. Non-target errors pass through untouched.
func Execute[T any](ctx context.Context, b *Breaker, primary, fallback func(context.Context) (T, error)) (T, error) {
	var zero T

	open, err := b.IsOpen(ctx)
	if err != nil {
		return zero, err
	}
	if open {
		b.logger.Warn("circuit open, using fallback",
			logging.String(logging.FieldCircuit, b.name))
		if fallback == nil {
			fallback = primary
		}
		return fallback(ctx)
	}

	result, callErr := primary(ctx)
	if callErr == nil {
		return result, nil
	}

	code, targeted := b.matchTargetCode(callErr)
	if !targeted {
		return zero, callErr
	}

	count, err := b.client.Incr(ctx, b.failCountKey()).Result()
	if err != nil {
		return zero, fmt.Errorf("increment failure count: %w", err)
	}
	if count == 1 {
		if err := b.client.Expire(ctx, b.failCountKey(), b.window).Err(); err != nil {
			return zero, fmt.Errorf("set failure window: %w", err)
		}
	}

	b.logger.Warn("upstream failure recorded",
		logging.String(logging.FieldCircuit, b.name),
		logging.String("status_code", code),
		logging.Int64("fail_count", count),
		logging.Error(callErr))

	if count < int64(b.threshold) {
		return zero, callErr
	}

	if err := b.client.Set(ctx, b.statusKey(), openState, b.recovery).Err(); err != nil {
		return zero, fmt.Errorf("open circuit: %w", err)
	}
	if err := b.client.Del(ctx, b.failCountKey()).Err(); err != nil {
		return zero, fmt.Errorf("reset failure count: %w", err)
	}
	b.logger.Error("circuit opened",
		logging.String(logging.FieldCircuit, b.name),
		logging.Duration("recovery_timeout", b.recovery))

	if fallback != nil {
		return fallback(ctx)
	}
	return zero, callErr
}

// matchTargetCode extracts a status code from the error and reports whether
// it is one of the configured target codes. Errors without an explicit code
// are matched by substring against the error text, mirroring upstream SDKs
// that only surface codes in the message.
func (b *Breaker) matchTargetCode(err error) (string, bool) {
	var coder StatusCoder
	if errors.As(err, &coder) {
		code := strconv.Itoa(coder.StatusCode())
		for _, target := range b.targetCodes {
			if code == target {
				return code, true
			}
		}
		return code, false
	}

	message := err.Error()
	for _, target := range b.targetCodes {
		if strings.Contains(message, target) {
			return target, true
		}
	}
	return "", false
}
