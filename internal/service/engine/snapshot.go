package engine

import (
	"slices"
	"time"

	"github.com/darkkaiser/domain-sync/internal/service/contract"
)

// Snapshot 특정 시점의 엔진 상태를 나타내는 읽기 전용 사본입니다.
//
// 이벤트 루프가 상태를 바꿀 때마다 새 Snapshot을 만들어 게시하므로, 받은 값은 이후 변경되지 않습니다.
// 호출자도 필드를 수정해서는 안 됩니다.
type Snapshot struct {
	// Generation 작업이 새로 시작될 때마다 1씩 증가하는 세대 번호. 0이면 아직 작업이 없다.
	Generation uint64 `json:"generation"`

	Query string         `json:"query"`
	Task  *contract.Task `json:"task"`

	Items   []contract.ItemKey          `json:"items"`
	Names   map[contract.ItemKey]string `json:"-"`
	Results contract.ResultMapping      `json:"results"`

	// Visible 화면에 노출 중인 항목 수 (Items 앞에서부터)
	Visible int `json:"visible"`

	Mode          ChannelMode `json:"channel_mode"`
	LastError     ErrorKind   `json:"last_error"`
	PushConnected bool        `json:"push_connected"`
	Polling       bool        `json:"polling"`
	PollFailures  int         `json:"poll_failures"`
	PollGaveUp    bool        `json:"poll_gave_up"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Status 작업 전체의 상태를 반환합니다.
// 작업 ID 없이 항목만 있는 경우(동기 전용 모드)는 백그라운드로 기다릴 결과가 없으므로 완료로 봅니다.
func (s *Snapshot) Status() contract.TaskStatus {
	switch {
	case s.Task != nil:
		return s.Task.Status
	case len(s.Items) > 0:
		return contract.TaskStatusCompleted
	default:
		return ""
	}
}

// SyncOnly 작업 ID 없이 항목별 동기 요청으로만 결과를 채우는 모드인지 확인합니다.
func (s *Snapshot) SyncOnly() bool {
	return s.Task == nil && len(s.Items) > 0
}

func (s *Snapshot) Has(key contract.ItemKey) bool {
	return slices.Contains(s.Items, key)
}

// NameOf 항목의 원래 도메인 이름을 반환합니다. 기록이 없으면 키를 그대로 사용합니다.
func (s *Snapshot) NameOf(key contract.ItemKey) string {
	if name, ok := s.Names[key]; ok && name != "" {
		return name
	}
	return string(key)
}

// VisibleItems 화면에 노출 중인 항목 목록을 반환합니다.
func (s *Snapshot) VisibleItems() []contract.ItemKey {
	return s.Items[:min(s.Visible, len(s.Items))]
}

// Missing 아직 결과가 없는 항목 목록을 순서대로 반환합니다.
func (s *Snapshot) Missing() []contract.ItemKey {
	return missingKeys(s.Items, s.Results)
}

func missingKeys(items []contract.ItemKey, results contract.ResultMapping) []contract.ItemKey {
	var missing []contract.ItemKey
	for _, key := range items {
		if _, ok := results[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
