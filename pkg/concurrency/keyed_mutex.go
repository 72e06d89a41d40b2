// Package concurrency 동시성 제어 유틸리티를 제공합니다.
package concurrency

import "sync"

// KeyedMutex 키 단위로 독립적인 잠금을 제공합니다.
//
// 서로 다른 키는 동시에 잠글 수 있고, 같은 키는 순차적으로 처리됩니다.
// 잠금 항목은 참조 카운트로 관리되어 더 이상 대기자가 없으면 즉시 제거되므로
// 키의 종류가 많아도 메모리가 누적되지 않습니다.
//
// 제로 값은 사용할 수 없으며 NewKeyedMutex로 생성해야 합니다.
type KeyedMutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyedEntry
}

type keyedEntry struct {
	mu       sync.Mutex
	refCount int
}

// NewKeyedMutex 새로운 KeyedMutex를 생성합니다.
func NewKeyedMutex[K comparable]() *KeyedMutex[K] {
	return &KeyedMutex[K]{
		locks: make(map[K]*keyedEntry),
	}
}

// Lock key에 대한 잠금을 획득합니다.
func (km *KeyedMutex[K]) Lock(key K) {
	km.mu.Lock()
	e, ok := km.locks[key]
	if !ok {
		e = &keyedEntry{}
		km.locks[key] = e
	}
	e.refCount++
	km.mu.Unlock()

	e.mu.Lock()
}

// Unlock key에 대한 잠금을 해제합니다. 잠기지 않은 키를 해제하면 panic이 발생합니다.
func (km *KeyedMutex[K]) Unlock(key K) {
	km.mu.Lock()
	defer km.mu.Unlock()

	e, ok := km.locks[key]
	if !ok {
		panic("잠기지 않은 KeyedMutex의 잠금 해제 시도")
	}

	e.mu.Unlock()

	e.refCount--
	if e.refCount == 0 {
		delete(km.locks, key)
	}
}

// WithLock key를 잠근 상태로 fn을 실행합니다.
func (km *KeyedMutex[K]) WithLock(key K, fn func() error) error {
	km.Lock(key)
	defer km.Unlock(key)

	return fn()
}

// Len 현재 추적 중인(잠겨 있거나 대기 중인) 키의 개수를 반환합니다.
func (km *KeyedMutex[K]) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()

	return len(km.locks)
}
