package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const slotCacheKeyPrefix = "slots:"

// SlotCache keeps computed available-slot lists per doctor and day. It is
// strictly best-effort: every failure is logged and swallowed, the caller
// recomputes from the database.
type SlotCache interface {
	Get(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, bool)
	Set(ctx context.Context, doctorID uuid.UUID, date time.Time, slots []string)
	Invalidate(ctx context.Context, doctorID uuid.UUID, date time.Time)
}

type redisSlotCache struct {
	client *redis.Client
	log    *logrus.Logger
	ttl    time.Duration
}

func NewRedisSlotCache(client *redis.Client, log *logrus.Logger, ttl time.Duration) SlotCache {
	return &redisSlotCache{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

func slotCacheKey(doctorID uuid.UUID, date time.Time) string {
	return slotCacheKeyPrefix + doctorID.String() + ":" + date.UTC().Format("2006-01-02")
}

func (c *redisSlotCache) Get(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, bool) {
	payload, err := c.client.Get(ctx, slotCacheKey(doctorID, date)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warnf("Failed to read slot cache for doctor %s: %+v", doctorID, err)
		}
		return nil, false
	}

	var slots []string
	if err := json.Unmarshal(payload, &slots); err != nil {
		c.log.Warnf("Corrupt slot cache entry for doctor %s: %+v", doctorID, err)
		return nil, false
	}
	return slots, true
}

func (c *redisSlotCache) Set(ctx context.Context, doctorID uuid.UUID, date time.Time, slots []string) {
	payload, err := json.Marshal(slots)
	if err != nil {
		c.log.Warnf("Failed to encode slot cache for doctor %s: %+v", doctorID, err)
		return
	}
	if err := c.client.Set(ctx, slotCacheKey(doctorID, date), payload, c.ttl).Err(); err != nil {
		c.log.Warnf("Failed to write slot cache for doctor %s: %+v", doctorID, err)
	}
}

func (c *redisSlotCache) Invalidate(ctx context.Context, doctorID uuid.UUID, date time.Time) {
	if err := c.client.Del(ctx, slotCacheKey(doctorID, date)).Err(); err != nil {
		c.log.Warnf("Failed to invalidate slot cache for doctor %s: %+v", doctorID, err)
	}
}
