package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/availability"
)

// CachedCalendarSource reads business hours and holidays through Redis.
// Schedule blocks are always loaded from the wrapped source.
type CachedCalendarSource struct {
	next   availability.CalendarSource
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedCalendarSource(next availability.CalendarSource, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedCalendarSource {
	return &CachedCalendarSource{next: next, client: client, ttl: ttl, logger: logger}
}

func businessHoursKey(clinicID uuid.UUID) string {
	return fmt.Sprintf("calendar:%s:business_hours", clinicID)
}

func holidaysKey(clinicID uuid.UUID) string {
	return fmt.Sprintf("calendar:%s:holidays", clinicID)
}

func (c *CachedCalendarSource) BusinessHours(ctx context.Context, clinicID uuid.UUID) ([]availability.BusinessHours, error) {
	return readThrough(ctx, c, businessHoursKey(clinicID), func(ctx context.Context) ([]availability.BusinessHours, error) {
		return c.next.BusinessHours(ctx, clinicID)
	})
}

func (c *CachedCalendarSource) Holidays(ctx context.Context, clinicID uuid.UUID) ([]availability.Holiday, error) {
	return readThrough(ctx, c, holidaysKey(clinicID), func(ctx context.Context) ([]availability.Holiday, error) {
		return c.next.Holidays(ctx, clinicID)
	})
}

func (c *CachedCalendarSource) ScheduleBlocks(ctx context.Context, clinicID uuid.UUID, from, to availability.Date) ([]availability.ScheduleBlock, error) {
	return c.next.ScheduleBlocks(ctx, clinicID, from, to)
}

// Invalidate drops the cached calendar for a clinic after an administrative edit.
func (c *CachedCalendarSource) Invalidate(ctx context.Context, clinicID uuid.UUID) error {
	if err := c.client.Del(ctx, businessHoursKey(clinicID), holidaysKey(clinicID)).Err(); err != nil {
		return fmt.Errorf("invalidate calendar cache: %w", err)
	}
	return nil
}

// readThrough serves key from Redis, falling back to load on a miss. Redis
// failures degrade to an uncached read.
func readThrough[T any](ctx context.Context, c *CachedCalendarSource, key string, load func(ctx context.Context) ([]T, error)) ([]T, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []T
		if jerr := json.Unmarshal(raw, &cached); jerr == nil {
			return cached, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding undecodable calendar cache entry")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Str("key", key).Msg("calendar cache read failed")
	}

	fresh, err := load(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(fresh)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to encode calendar cache entry")
		return fresh, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("calendar cache write failed")
	}
	return fresh, nil
}
