package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"codeberg.org/docuchat/server/internal/logger"
)

const keySessionLock = "docuchat:session_lock:%s"

// deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// pushes the expiry forward only while the key still holds our token
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// serializes a session across replicas. a local MemoryLocker queues
// callers of this process so only one of them polls redis.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	poll   time.Duration
	local  *MemoryLocker
}

// ttl bounds how long a crashed holder can block the session. a live
// holder refreshes the key every ttl/3, so turns may outlast ttl.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		poll:   50 * time.Millisecond,
		local:  NewMemoryLocker(),
	}
}

// creates a new Redis-backed locker from a URL
func NewRedisLockerFromURL(redisURL string, ttl time.Duration) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisLocker(client, ttl), nil
}

func (l *RedisLocker) Client() *redis.Client {
	return l.client
}

func (l *RedisLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf(keySessionLock, sessionID)
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		unlockLocal()
		return nil, err
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		keepAlive(stop, l.ttl/3, func() (bool, error) {
			return l.extend(key, token)
		}, sessionID)
	}()

	var once sync.Once

	return func() {
		once.Do(func() { l.release(key, token, sessionID, stop, done, unlockLocal) })
	}, nil
}

// stops the keepalive before deleting the key so it cannot be re-extended
func (l *RedisLocker) release(key, token, sessionID string, stop chan struct{}, done <-chan struct{}, unlockLocal func()) {
	defer unlockLocal()

	close(stop)
	<-done

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	released, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	switch {
	case err != nil:
		logger.ErrorErr(err, "failed to release session lock", "session_id", sessionID)
	case released == 0:
		logger.Warn(ErrLockLost.Error(), "session_id", sessionID)
	}
}

func (l *RedisLocker) extend(key, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := extendScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// calls extend every interval until stop is closed or the lock is gone.
// a failed call is retried on the next tick since the key may still be live.
func keepAlive(stop <-chan struct{}, interval time.Duration, extend func() (bool, error), sessionID string) {
	ticker := time.NewTicker(max(interval, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		held, err := extend()
		switch {
		case err != nil:
			logger.ErrorErr(err, "failed to extend session lock", "session_id", sessionID)
		case !held:
			logger.Warn(ErrLockLost.Error(), "session_id", sessionID)
			return
		}
	}
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire session lock: %w", err)
		}

		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
