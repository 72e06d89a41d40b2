package contract

import (
	"context"
	"time"
)

// CacheEntry 검색어 하나에 대한 항목 목록과 누적 결과의 스냅샷입니다.
// 저장된 Query가 조회한 검색어와 정확히 일치할 때만 신뢰합니다.
type CacheEntry struct {
	Query  string    `json:"query"`
	TaskID TaskID    `json:"task_id,omitempty"`
	Items  []ItemKey `json:"items"`

	// Names 항목별 원래 도메인 이름(정규화 전). 없으면 키를 그대로 사용합니다.
	Names map[ItemKey]string `json:"names,omitempty"`

	Results ResultMapping `json:"results"`
	SavedAt time.Time     `json:"saved_at"`
}

// CacheStore 검색 결과 캐시 저장소입니다.
type CacheStore interface {
	// Load query의 캐시 항목을 반환합니다. 없거나, 검색어가 다르거나, 해석할 수 없으면 ErrCacheMiss를 반환합니다.
	Load(ctx context.Context, query string) (*CacheEntry, error)

	// Save entry.Query를 키로 항목을 저장(덮어쓰기)합니다.
	Save(ctx context.Context, entry *CacheEntry) error

	// Clear 모든 항목을 삭제합니다.
	Clear(ctx context.Context) error
}

// CachePurger 오래된 캐시 항목을 정리할 수 있는 저장소입니다.
type CachePurger interface {
	// Purge SavedAt이 olderThan 이전인 항목을 삭제하고 삭제한 개수를 반환합니다.
	Purge(ctx context.Context, olderThan time.Time) (int, error)
}
