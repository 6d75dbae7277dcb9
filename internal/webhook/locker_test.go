package webhook

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserKey(t *testing.T) {
	assert.Equal(t, "wpchat:lock:user:15550001111:447700900000", UserKey("447700900000", "15550001111"))
}

func TestLocalLockerSerializesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	var active, maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "user-a")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
	assert.Empty(t, locker.slots)
}

func TestLocalLockerDifferentKeysDoNotContend(t *testing.T) {
	locker := NewLocalLocker()
	unlockA, err := locker.Lock(context.Background(), "user-a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := locker.Lock(ctx, "user-b")
	require.NoError(t, err)
	unlockB()
}

func TestLocalLockerHonorsContext(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), "user-a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "user-a")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.Empty(t, locker.slots)
}

func newRedisLockerFixture(t *testing.T) (*miniredis.Miniredis, *RedisLocker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewRedisLocker(client, time.Second)
	locker.poll = 5 * time.Millisecond
	return mr, locker
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	mr, locker := newRedisLockerFixture(t)

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, mr.Exists("k"))
	assert.Equal(t, time.Second, mr.TTL("k"))

	unlock()
	assert.False(t, mr.Exists("k"))
}

func TestRedisLockerBlocksUntilReleased(t *testing.T) {
	_, locker := newRedisLockerFixture(t)

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(context.Background(), "k")
		if err == nil {
			close(acquired)
			second()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while key held")
	case <-time.After(30 * time.Millisecond):
	}
	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock not acquired after release")
	}
}

func TestRedisLockerTimesOut(t *testing.T) {
	_, locker := newRedisLockerFixture(t)
	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLockerReleaseKeepsForeignToken(t *testing.T) {
	mr, locker := newRedisLockerFixture(t)
	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	// Simulate expiry and takeover by another replica.
	require.NoError(t, mr.Set("k", "other-holder"))
	unlock()

	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "other-holder", got)
}

func TestRedisLockerRenewsWhileHeld(t *testing.T) {
	mr, locker := newRedisLockerFixture(t)
	locker.renew = 10 * time.Millisecond

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	// Three TTLs pass while the turn is still running.
	for i := 0; i < 6; i++ {
		mr.FastForward(600 * time.Millisecond)
		require.Eventually(t, func() bool { return mr.TTL("k") > 600*time.Millisecond }, time.Second, 5*time.Millisecond)
	}
	require.True(t, mr.Exists("k"))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.False(t, mr.Exists("k"))
}

func TestRedisLockerStopsRenewingForeignToken(t *testing.T) {
	mr, locker := newRedisLockerFixture(t)
	locker.renew = 10 * time.Millisecond

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	require.NoError(t, mr.Set("k", "other-holder"))
	mr.SetTTL("k", 200*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 200*time.Millisecond, mr.TTL("k"))
}
