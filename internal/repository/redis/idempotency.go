package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redisx "github.com/kirinyoku/travelgo/internal/redis"
	"github.com/redis/go-redis/v9"
)

const (
	idemPending = "PENDING"
	idemDone    = "DONE:"
)

// IdemState is what Begin found under an idempotency key.
type IdemState int

const (
	// IdemNew means the caller now owns the key and must Complete or Abort it.
	IdemNew IdemState = iota
	// IdemInFlight means another request with the same key has not finished.
	IdemInFlight
	// IdemReplay means the key already holds a stored response.
	IdemReplay
)

// IdempotencyStore remembers booking responses per (user, Idempotency-Key).
// A key moves from absent to PENDING (short TTL) to DONE:<json> (long TTL);
// Abort drops it so the client may retry with the same key.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	if rdb == nil {
		return nil
	}
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// Begin claims key for userID for at most pendingTTL. For IdemReplay the
// stored response body is returned as well.
func (s *IdempotencyStore) Begin(ctx context.Context, userID uuid.UUID, key string, pendingTTL time.Duration) (IdemState, []byte, error) {
	const op = "redisrepo.IdempotencyStore.Begin"

	k := redisx.KeyIdemBooking(userID, key)

	if body, ok, err := s.stored(ctx, k); err != nil {
		return 0, nil, fmt.Errorf("%s:%w", op, err)
	} else if ok {
		return IdemReplay, body, nil
	}

	claimed, err := s.rdb.SetNX(ctx, k, idemPending, pendingTTL).Result()
	if err != nil {
		return 0, nil, fmt.Errorf("%s:%w", op, err)
	}
	if claimed {
		return IdemNew, nil, nil
	}

	// lost the race; the winner may already have finished
	body, ok, err := s.stored(ctx, k)
	if err != nil {
		return 0, nil, fmt.Errorf("%s:%w", op, err)
	}
	if ok {
		return IdemReplay, body, nil
	}
	return IdemInFlight, nil, nil
}

// Complete stores body as the response for key.
func (s *IdempotencyStore) Complete(ctx context.Context, userID uuid.UUID, key string, body []byte) error {
	return s.rdb.Set(ctx, redisx.KeyIdemBooking(userID, key), idemDone+string(body), s.ttl).Err()
}

// Abort releases key after a failed request.
func (s *IdempotencyStore) Abort(ctx context.Context, userID uuid.UUID, key string) error {
	return s.rdb.Del(ctx, redisx.KeyIdemBooking(userID, key)).Err()
}

func (s *IdempotencyStore) stored(ctx context.Context, k string) ([]byte, bool, error) {
	v, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	body, ok := strings.CutPrefix(v, idemDone)
	if !ok {
		return nil, false, nil
	}
	return []byte(body), true, nil
}
