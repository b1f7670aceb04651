package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/riasec-matcher/internal/utils"
)

// Locker grants a single writer per session id. The returned function
// releases the lock.
type Locker interface {
	Lock(ctx context.Context, id string) (func(), error)
}

// Local serializes writers within one process.
type Local struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*localLock)}
}

func (l *Local) Lock(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(id, lk, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(id, lk, true) })
	}, nil
}

func (l *Local) release(id string, lk *localLock, held bool) {
	if held {
		<-lk.ch
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, id)
	}
}

// ErrLockTimeout is returned when a distributed lock cannot be acquired in time.
var ErrLockTimeout = errors.New("session is locked by another writer")

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type lockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisLocker is a lease based lock shared by every process using the same
// redis. A crashed holder loses the lock after ttl.
type RedisLocker struct {
	client  lockClient
	prefix  string
	ttl     time.Duration
	retry   time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

// NewRedisLocker creates a distributed locker.
func NewRedisLocker(client lockClient, ttl, timeout time.Duration, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RedisLocker{
		client:  client,
		prefix:  "riasec:lock:",
		ttl:     ttl,
		retry:   50 * time.Millisecond,
		timeout: timeout,
		logger:  logger,
	}
}

func (r *RedisLocker) Lock(ctx context.Context, id string) (func(), error) {
	key := r.prefix + id
	token := uuid.NewString()
	deadline := time.Now().Add(r.timeout)

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring lock for session %s: %w", id, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, id)
		}
		if err := utils.WaitFor(ctx, r.retry); err != nil {
			return nil, err
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			released, err := unlockScript.Run(context.WithoutCancel(ctx), r.client, []string{key}, token).Int()
			if err != nil {
				r.logger.Warn("failed to release session lock",
					zap.String("session_id", id),
					zap.Error(err),
				)
				return
			}
			if released == 0 {
				r.logger.Info("session lock lease expired before release", zap.String("session_id", id))
			}
		})
	}, nil
}
