package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/darkkaiser/domain-sync/internal/service/contract"
)

// envelopeVersion 직렬화 형식의 버전. 형식이 바뀌면 올리고, 다른 버전의 항목은 캐시 미스로 처리한다.
const envelopeVersion = 1

type envelope struct {
	Version int                  `json:"version"`
	Entry   *contract.CacheEntry `json:"entry"`
}

// encode 캐시 항목을 버전 정보가 포함된 JSON으로 직렬화합니다.
func encode(entry *contract.CacheEntry) ([]byte, error) {
	data, err := json.Marshal(envelope{Version: envelopeVersion, Entry: entry})
	if err != nil {
		return nil, newErrEncodeFailed(err)
	}
	return data, nil
}

// decode 직렬화된 데이터를 해석하여 query에 대한 캐시 항목으로 복원합니다.
//
// 해석할 수 없거나, 버전이 다르거나, 검색어가 정확히 일치하지 않거나, 불완전한 레코드가 포함된 경우
// 모두 캐시 미스로 처리합니다.
func decode(data []byte, query string) (*contract.CacheEntry, error) {
	entry, err := decodeAny(data)
	if err != nil {
		return nil, err
	}

	if entry.Query != query {
		return nil, newErrMiss(fmt.Sprintf("검색어 불일치 (저장: %q, 요청: %q)", entry.Query, query))
	}

	return entry, nil
}

// decodeAny 검색어 검사 없이 항목의 구조만 검증합니다. 만료 항목 정리에 사용됩니다.
func decodeAny(data []byte) (*contract.CacheEntry, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, newErrMiss(fmt.Sprintf("손상된 캐시 데이터: %v", err))
	}

	if env.Version != envelopeVersion {
		return nil, newErrMiss(fmt.Sprintf("지원하지 않는 캐시 버전: %d", env.Version))
	}

	entry := env.Entry
	if entry == nil || entry.Query == "" || len(entry.Items) == 0 {
		return nil, newErrMiss("캐시 항목의 필수 필드가 비어 있습니다")
	}

	for key, record := range entry.Results {
		if err := record.Validate(); err != nil {
			return nil, newErrMiss(fmt.Sprintf("불완전한 레코드(%s): %v", key, err))
		}
		if record.Key() != key {
			return nil, newErrMiss(fmt.Sprintf("레코드 키 불일치 (키: %s, 레코드: %s)", key, record.DomainName))
		}
	}

	if entry.Results == nil {
		entry.Results = contract.ResultMapping{}
	}

	return entry, nil
}

// isExpired SavedAt이 olderThan 이전이면 true를 반환합니다.
func isExpired(entry *contract.CacheEntry, olderThan time.Time) bool {
	return entry.SavedAt.Before(olderThan)
}
