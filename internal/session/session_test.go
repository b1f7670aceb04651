package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type sample struct {
	Name    string         `json:"name"`
	Answers map[int]string `json:"answers"`
}

func cloneSample(v *sample) *sample {
	c := &sample{Name: v.Name, Answers: make(map[int]string, len(v.Answers))}
	for k, a := range v.Answers {
		c.Answers[k] = a
	}
	return c
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStores(t *testing.T) {
	_, client := setupRedis(t)

	stores := map[string]Store[sample]{
		"memory": NewMemory(cloneSample),
		"redis":  NewRedis[sample](client, "", time.Hour, nil),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			value := &sample{Name: "a", Answers: map[int]string{1: "A"}}
			require.NoError(t, store.Set(ctx, "s1", value))

			value.Answers[2] = "B"

			got, err := store.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "a", got.Name)
			assert.Equal(t, map[int]string{1: "A"}, got.Answers)

			require.NoError(t, store.Clear(ctx, "s1"))
			_, err = store.Get(ctx, "s1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRedisStoreTTL(t *testing.T) {
	mr, client := setupRedis(t)
	store := NewRedis[sample](client, "test:", time.Minute, nil)

	require.NoError(t, store.Set(context.Background(), "s1", &sample{Name: "x"}))
	assert.True(t, mr.Exists("test:s1"))
	assert.Equal(t, time.Minute, mr.TTL("test:s1"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalLockerSerializesWriters(t *testing.T) {
	locker := NewLocal()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "s1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, locker.locks)
}

func TestLocalLockerHonoursContext(t *testing.T) {
	locker := NewLocal()

	unlock, err := locker.Lock(context.Background(), "s1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "s1")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	other, err := locker.Lock(context.Background(), "s2")
	require.NoError(t, err)
	other()
}

func TestRedisLocker(t *testing.T) {
	mr, client := setupRedis(t)
	locker := NewRedisLocker(client, time.Second, 100*time.Millisecond, nil)

	unlock, err := locker.Lock(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("riasec:lock:s1"))

	_, err = locker.Lock(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	assert.False(t, mr.Exists("riasec:lock:s1"))

	again, err := locker.Lock(context.Background(), "s1")
	require.NoError(t, err)
	again()
}

func TestRedisLockerDoesNotReleaseForeignLease(t *testing.T) {
	mr, client := setupRedis(t)
	core, logs := observer.New(zap.InfoLevel)
	locker := NewRedisLocker(client, time.Second, 50*time.Millisecond, zap.New(core))

	unlock, err := locker.Lock(context.Background(), "s1")
	require.NoError(t, err)

	require.NoError(t, mr.Set("riasec:lock:s1", "someone-else"))
	unlock()

	got, err := mr.Get("riasec:lock:s1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
	assert.Equal(t, 1, logs.FilterMessage("session lock lease expired before release").Len())
}

func TestRedisLockerLogsFailedRelease(t *testing.T) {
	mr, client := setupRedis(t)
	core, logs := observer.New(zap.WarnLevel)
	locker := NewRedisLocker(client, time.Second, 50*time.Millisecond, zap.New(core))

	unlock, err := locker.Lock(context.Background(), "s1")
	require.NoError(t, err)

	mr.SetError("server is down")
	unlock()
	mr.SetError("")

	entries := logs.FilterMessage("failed to release session lock").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "s1", entries[0].ContextMap()["session_id"])
	assert.True(t, mr.Exists("riasec:lock:s1"))
}
