// Package cache 검색어별 항목 목록과 누적 결과를 보관하는 캐시 저장소를 제공합니다.
//
// 모든 저장소는 같은 버전 정보가 포함된 JSON 형식으로 항목을 직렬화하며,
// 해석할 수 없는 항목은 에러가 아닌 캐시 미스(contract.ErrCacheMiss)로 취급합니다.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/darkkaiser/domain-sync/internal/service/contract"
)

const component = "cache"

type memorySlot struct {
	data    []byte
	savedAt time.Time
}

// MemoryStore 프로세스 메모리에 항목을 보관하는 저장소입니다. 프로세스가 종료되면 사라집니다.
//
// 항목은 직렬화된 형태로 보관하므로 Load는 항상 호출자 소유의 새 사본을 반환합니다.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]memorySlot
}

var (
	_ contract.CacheStore  = (*MemoryStore)(nil)
	_ contract.CachePurger = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots: make(map[string]memorySlot),
	}
}

func (s *MemoryStore) Load(ctx context.Context, query string) (*contract.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	slot, ok := s.slots[query]
	s.mu.RUnlock()

	if !ok {
		return nil, contract.ErrCacheMiss
	}

	return decode(slot.data, query)
}

func (s *MemoryStore) Save(ctx context.Context, entry *contract.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry == nil || entry.Query == "" {
		return ErrEmptyQuery
	}

	data, err := encode(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.slots[entry.Query] = memorySlot{data: data, savedAt: entry.SavedAt}
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	clear(s.slots)
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for query, slot := range s.slots {
		if slot.savedAt.Before(olderThan) {
			delete(s.slots, query)
			removed++
		}
	}

	return removed, nil
}

// Len 보관 중인 항목 수를 반환합니다.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.slots)
}
