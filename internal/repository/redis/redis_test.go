package redisrepo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redisx "github.com/kirinyoku/travelgo/internal/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

type item struct {
	Name  string `json:"name"`
	Seats int    `json:"seats"`
}

func TestGetOrSetJSON(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newClient(t)
	c := New(rdb)

	var calls atomic.Int32
	load := func(context.Context) (item, error) {
		calls.Add(1)
		return item{Name: "Kyiv-Lviv", Seats: 4}, nil
	}

	got, err := GetOrSetJSON(ctx, c, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, item{Name: "Kyiv-Lviv", Seats: 4}, got)

	got, err = GetOrSetJSON(ctx, c, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Seats)
	assert.Equal(t, int32(1), calls.Load())

	mr.FastForward(2 * time.Minute)
	_, err = GetOrSetJSON(ctx, c, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetOrSetJSON_LoaderErrorNotCached(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newClient(t)
	c := New(rdb)

	boom := errors.New("boom")
	_, err := GetOrSetJSON(ctx, c, "k", time.Minute, func(context.Context) (item, error) {
		return item{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestGetOrSetJSON_RedisDownFallsThrough(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newClient(t)
	c := New(rdb)
	mr.Close()

	got, err := GetOrSetJSON(ctx, c, "k", time.Minute, func(context.Context) (item, error) {
		return item{Name: "db"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "db", got.Name)
}

func TestNilCache(t *testing.T) {
	ctx := context.Background()
	var c *Cache

	assert.Nil(t, New(nil))

	got, err := GetOrSetJSON(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	assert.NoError(t, c.InvalidateSchedule(ctx, uuid.New()))
	assert.NoError(t, c.InvalidateCompany(ctx, uuid.New()))
}

func TestInvalidateSchedule(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newClient(t)
	c := New(rdb)
	id := uuid.New()
	other := uuid.New()

	for _, k := range []string{
		redisx.KeySchedule(id),
		redisx.KeyScheduleReviews(id),
		redisx.KeyPopularSchedules(),
		redisx.KeySchedule(other),
	} {
		require.NoError(t, mr.Set(k, "{}"))
	}

	require.NoError(t, c.InvalidateSchedule(ctx, id))

	assert.False(t, mr.Exists(redisx.KeySchedule(id)))
	assert.False(t, mr.Exists(redisx.KeyScheduleReviews(id)))
	assert.False(t, mr.Exists(redisx.KeyPopularSchedules()))
	assert.True(t, mr.Exists(redisx.KeySchedule(other)))
}

func TestInvalidateCompany(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newClient(t)
	c := New(rdb)
	id := uuid.New()

	for _, k := range []string{redisx.KeyCompany(id), redisx.KeyCompanyReviews(id), redisx.KeyCompanies()} {
		require.NoError(t, mr.Set(k, "[]"))
	}

	require.NoError(t, c.InvalidateCompany(ctx, id))

	assert.Empty(t, mr.Keys())
}

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()
	rdb, _ := newClient(t)
	l := NewSlidingWindowLimiter(rdb, "booking", 3, time.Minute)

	for i := 1; i <= 3; i++ {
		d, err := l.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, int64(i), d.Count)
	}

	d, err := l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(3), d.Count)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)

	// rejected attempts are not recorded
	n, err := rdb.ZCard(ctx, redisx.KeyRateLimit("booking", "user:1")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	d, err = l.Allow(ctx, "user:2")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "buckets are per caller")
}

func TestNilLimiterAllows(t *testing.T) {
	assert.Nil(t, NewSlidingWindowLimiter(nil, "booking", 1, time.Minute))

	rdb, _ := newClient(t)
	l := NewSlidingWindowLimiter(rdb, "booking", 0, time.Minute)
	require.Nil(t, l, "a zero limit disables limiting")

	d, err := l.Allow(context.Background(), "user:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newClient(t)
	s := NewIdempotencyStore(rdb, time.Hour)
	user := uuid.New()

	state, _, err := s.Begin(ctx, user, "abc", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, IdemNew, state)

	state, _, err = s.Begin(ctx, user, "abc", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, IdemInFlight, state)

	state, _, err = s.Begin(ctx, uuid.New(), "abc", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, IdemNew, state, "keys are scoped per user")

	require.NoError(t, s.Complete(ctx, user, "abc", []byte(`{"id":"1"}`)))
	state, body, err := s.Begin(ctx, user, "abc", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, IdemReplay, state)
	assert.JSONEq(t, `{"id":"1"}`, string(body))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL(redisx.KeyIdemBooking(user, "abc")).Seconds(), 1)

	require.NoError(t, s.Abort(ctx, user, "abc"))
	state, _, err = s.Begin(ctx, user, "abc", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, IdemNew, state)

	assert.Nil(t, NewIdempotencyStore(nil, time.Hour))
}
