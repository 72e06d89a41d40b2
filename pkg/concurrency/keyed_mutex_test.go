package concurrency

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestKeyedMutex_SameKeyIsSerialized(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex[string]()

	var (
		wg      sync.WaitGroup
		active  atomic.Int32
		maxSeen atomic.Int32
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = km.WithLock("finance", func() error {
				n := active.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Zero(t, km.Len(), "대기자가 없으면 항목이 제거되어야 합니다")
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex[string]()
	km.Lock("finance")
	defer km.Unlock("finance")

	done := make(chan struct{})
	go func() {
		km.Lock("marketing")
		km.Unlock("marketing")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("다른 키의 잠금이 차단되었습니다")
	}
	assert.Equal(t, 1, km.Len())
}

func TestKeyedMutex_WithLockPropagatesError(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex[int]()
	want := errors.New("boom")

	assert.ErrorIs(t, km.WithLock(1, func() error { return want }), want)
	assert.Zero(t, km.Len())
}

func TestKeyedMutex_UnlockWithoutLockPanics(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex[string]()

	assert.Panics(t, func() { km.Unlock("none") })
}
