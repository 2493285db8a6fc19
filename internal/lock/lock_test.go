package lock

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"
)

func exerciseLocker(t *testing.T, l Locker, key string) {
	t.Helper()
	ctx := context.Background()

	t.Run("second acquire waits for release", func(t *testing.T) {
		release, err := l.Acquire(ctx, key)
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}

		short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		if _, err := l.Acquire(short, key); !errors.Is(err, ErrNotAcquired) {
			t.Fatalf("error = %v, want ErrNotAcquired", err)
		}

		if err := release(ctx); err != nil {
			t.Fatalf("release failed: %v", err)
		}
		if err := release(ctx); err != nil {
			t.Fatalf("second release failed: %v", err)
		}

		again, err := l.Acquire(ctx, key)
		if err != nil {
			t.Fatalf("Acquire after release failed: %v", err)
		}
		again(ctx)
	})

	t.Run("different keys do not block", func(t *testing.T) {
		r1, err := l.Acquire(ctx, key+":a")
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		defer r1(ctx)

		short, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		r2, err := l.Acquire(short, key+":b")
		if err != nil {
			t.Fatalf("Acquire on other key failed: %v", err)
		}
		r2(ctx)
	})

	t.Run("mutual exclusion", func(t *testing.T) {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			holders int
			maxSeen int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := l.Acquire(ctx, key)
				if err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				mu.Lock()
				holders++
				if holders > maxSeen {
					maxSeen = holders
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				holders--
				mu.Unlock()
				release(ctx)
			}()
		}
		wg.Wait()
		if maxSeen != 1 {
			t.Errorf("saw %d concurrent holders, want 1", maxSeen)
		}
	})
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	exerciseLocker(t, l, ShowKey("show-1"))

	if len(l.slots) != 0 {
		t.Errorf("expected all slots to be released, %d remain", len(l.slots))
	}
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client, err := NewRedisClient(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		t.Fatalf("NewRedisClient failed: %v", err)
	}
	defer client.Close()

	key := ShowKey("test-" + time.Now().Format("150405.000000"))
	exerciseLocker(t, NewRedisLocker(client, 5*time.Second), key)
}
