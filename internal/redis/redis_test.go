package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/availability"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewRedisClientPings(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	client, err := NewRedisClient(context.Background(), addr, "", "")
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = NewRedisClient(context.Background(), addr, "", "")
	assert.ErrorContains(t, err, "ping redis "+addr)
}

func TestBookingLockIsExclusive(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewRedisBookingLocker(client, 5*time.Second)
	keys := []string{"professional:p1", "patient:q1"}

	var inner error
	err := locker.WithBookingLock(context.Background(), keys, func(ctx context.Context) error {
		assert.True(t, mr.Exists("lock:booking:professional:p1"))
		assert.True(t, mr.Exists("lock:booking:patient:q1"))
		inner = locker.WithBookingLock(ctx, []string{"professional:p1", "patient:a0"}, func(context.Context) error {
			return nil
		})
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrLockNotAcquired)

	assert.False(t, mr.Exists("lock:booking:professional:p1"))
	assert.False(t, mr.Exists("lock:booking:patient:q1"))
	assert.False(t, mr.Exists("lock:booking:patient:a0"), "partial acquisition released")
}

func TestBookingLockReleasesOnError(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewRedisBookingLocker(client, 5*time.Second)
	boom := errors.New("boom")

	err := locker.WithBookingLock(context.Background(), []string{"professional:p1"}, func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("lock:booking:professional:p1"))
}

func TestBookingLockDoesNotReleaseForeignToken(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewRedisBookingLocker(client, 5*time.Second)

	err := locker.WithBookingLock(context.Background(), []string{"professional:p1"}, func(context.Context) error {
		// Simulates expiry followed by another holder taking the key.
		require.NoError(t, mr.Set("lock:booking:professional:p1", "someone-else"))
		return nil
	})
	require.NoError(t, err)

	got, err := mr.Get("lock:booking:professional:p1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

type countingSource struct {
	hours      []availability.BusinessHours
	holidays   []availability.Holiday
	hoursCalls int
	holCalls   int
	blockCalls int
}

func (s *countingSource) BusinessHours(context.Context, uuid.UUID) ([]availability.BusinessHours, error) {
	s.hoursCalls++
	return s.hours, nil
}

func (s *countingSource) Holidays(context.Context, uuid.UUID) ([]availability.Holiday, error) {
	s.holCalls++
	return s.holidays, nil
}

func (s *countingSource) ScheduleBlocks(context.Context, uuid.UUID, availability.Date, availability.Date) ([]availability.ScheduleBlock, error) {
	s.blockCalls++
	return nil, nil
}

func TestCachedCalendarSourceReadsThrough(t *testing.T) {
	mr, client := newTestClient(t)
	src := &countingSource{
		hours: []availability.BusinessHours{{
			Weekday: time.Monday,
			Active:  true,
			Ranges:  []availability.TimeRange{{Start: availability.MustClock("08:00"), End: availability.MustClock("12:00")}},
		}},
		holidays: []availability.Holiday{{Date: availability.Date{Year: 2024, Month: time.December, Day: 25}, Description: "Christmas"}},
	}
	cache := NewCachedCalendarSource(src, client, time.Minute, zerolog.Nop())
	clinicID := uuid.New()
	ctx := context.Background()

	first, err := cache.BusinessHours(ctx, clinicID)
	require.NoError(t, err)
	second, err := cache.BusinessHours(ctx, clinicID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.hoursCalls)

	hol, err := cache.Holidays(ctx, clinicID)
	require.NoError(t, err)
	_, err = cache.Holidays(ctx, clinicID)
	require.NoError(t, err)
	assert.Equal(t, "Christmas", hol[0].Description)
	assert.Equal(t, 1, src.holCalls)

	day := availability.Date{Year: 2024, Month: time.June, Day: 10}
	_, _ = cache.ScheduleBlocks(ctx, clinicID, day, day)
	_, _ = cache.ScheduleBlocks(ctx, clinicID, day, day)
	assert.Equal(t, 2, src.blockCalls)

	mr.FastForward(2 * time.Minute)
	_, err = cache.BusinessHours(ctx, clinicID)
	require.NoError(t, err)
	assert.Equal(t, 2, src.hoursCalls)

	require.NoError(t, cache.Invalidate(ctx, clinicID))
	_, err = cache.Holidays(ctx, clinicID)
	require.NoError(t, err)
	assert.Equal(t, 2, src.holCalls)
}

func TestCachedCalendarSourceKeepsEmptyConfigEmpty(t *testing.T) {
	_, client := newTestClient(t)
	src := &countingSource{}
	cache := NewCachedCalendarSource(src, client, time.Minute, zerolog.Nop())
	clinicID := uuid.New()

	_, err := cache.BusinessHours(context.Background(), clinicID)
	require.NoError(t, err)
	got, err := cache.BusinessHours(context.Background(), clinicID)
	require.NoError(t, err)

	assert.Empty(t, got)
	assert.Equal(t, 1, src.hoursCalls)
}

func TestCachedCalendarSourceFallsBackWhenRedisIsDown(t *testing.T) {
	mr, client := newTestClient(t)
	src := &countingSource{holidays: []availability.Holiday{{Description: "x"}}}
	cache := NewCachedCalendarSource(src, client, time.Minute, zerolog.Nop())
	mr.Close()

	got, err := cache.Holidays(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
