package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrDoctorBusy is returned when the per-doctor booking lock is already held.
// The caller treats it like a slot conflict and asks the client to retry.
var ErrDoctorBusy = errors.New("doctor calendar is locked by another booking")

// BookingLocker serializes the check-then-write section of appointment
// creation and rescheduling per doctor. Without it two concurrent requests
// could both pass the availability check; the partial unique index on
// (doctor_id, scheduled_at) remains the deterministic backstop.
type BookingLocker interface {
	WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error
}

// =============================================================================
// Redis locker
// =============================================================================

const redisLockKeyPrefix = "lock:doctor:"

// unlockScript deletes the lock only when the caller still owns it
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

type redisBookingLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBookingLocker creates a locker backed by a per-doctor Redis key,
// safe across multiple API nodes.
func NewRedisBookingLocker(client *redis.Client, ttl time.Duration) BookingLocker {
	return &redisBookingLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisBookingLocker) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error {
	key := redisLockKeyPrefix + doctorID.String()
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire doctor lock: %w", err)
	}
	if !ok {
		return ErrDoctorBusy
	}

	defer func() {
		_, _ = unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

// =============================================================================
// Local locker
// =============================================================================

const (
	// Stale mutexes are dropped once the map grows past this size
	localLockerCleanupThreshold = 1024

	// How long a mutex must be unused before cleanup
	localLockerStaleThreshold = 10 * time.Minute
)

type doctorMutex struct {
	mu       sync.Mutex
	lastUsed time.Time
}

type localBookingLocker struct {
	mu      sync.Mutex
	doctors map[uuid.UUID]*doctorMutex
}

// NewLocalBookingLocker creates an in-process locker. It only protects a
// single node; deployments with more than one API instance use the Redis
// locker instead.
func NewLocalBookingLocker() BookingLocker {
	return &localBookingLocker{
		doctors: make(map[uuid.UUID]*doctorMutex),
	}
}

func (l *localBookingLocker) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error {
	dm := l.acquire(doctorID)
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return fn(ctx)
}

func (l *localBookingLocker) acquire(doctorID uuid.UUID) *doctorMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.doctors) > localLockerCleanupThreshold {
		l.cleanupLocked()
	}

	dm, ok := l.doctors[doctorID]
	if !ok {
		dm = &doctorMutex{}
		l.doctors[doctorID] = dm
	}
	dm.lastUsed = time.Now()
	return dm
}

// cleanupLocked drops mutexes that are both unused and unlocked. Callers hold l.mu.
func (l *localBookingLocker) cleanupLocked() {
	cutoff := time.Now().Add(-localLockerStaleThreshold)
	for id, dm := range l.doctors {
		if dm.lastUsed.After(cutoff) {
			continue
		}
		if dm.mu.TryLock() {
			dm.mu.Unlock()
			delete(l.doctors, id)
		}
	}
}
