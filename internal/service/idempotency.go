package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const inFlightLockTTL = 30 * time.Second

// IdempotencyStore remembers results of completed requests by key
type IdempotencyStore interface {
	GetIdempotentResult(ctx context.Context, key string) ([]byte, bool, error)
	SetIdempotentResult(ctx context.Context, key string, value []byte, ttl time.Duration) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// withIdempotency runs fn at most once per key. A stored result is replayed,
// a concurrent request with the same key gets ErrDuplicateRequest. If the
// store is unreachable the request proceeds without protection.
func withIdempotency[T any](
	ctx context.Context,
	idem IdempotencyStore,
	logger *zap.Logger,
	key string,
	ttl time.Duration,
	fn func() (*T, error),
) (*T, error) {
	if idem == nil || key == "" {
		return fn()
	}

	raw, found, err := idem.GetIdempotentResult(ctx, key)
	if err != nil {
		logger.Warn("Idempotency lookup failed, continuing without it",
			zap.String("idempotency_key", key), zap.Error(err))
		return fn()
	}
	if found {
		var replay T
		if err := json.Unmarshal(raw, &replay); err != nil {
			return nil, fmt.Errorf("failed to decode stored result: %w", err)
		}
		logger.Info("Duplicate request detected, replaying result", zap.String("idempotency_key", key))
		return &replay, nil
	}

	acquired, err := idem.AcquireLock(ctx, key, inFlightLockTTL)
	if err != nil {
		logger.Warn("Idempotency lock failed, continuing without it",
			zap.String("idempotency_key", key), zap.Error(err))
		return fn()
	}
	if !acquired {
		return nil, ErrDuplicateRequest
	}
	defer func() {
		if err := idem.ReleaseLock(context.Background(), key); err != nil {
			logger.Warn("Failed to release idempotency lock", zap.String("idempotency_key", key), zap.Error(err))
		}
	}()

	result, err := fn()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(result)
	if err == nil {
		err = idem.SetIdempotentResult(ctx, key, payload, ttl)
	}
	if err != nil {
		logger.Warn("Failed to store idempotent result", zap.String("idempotency_key", key), zap.Error(err))
	}
	return result, nil
}
