package contract

import (
	"strings"

	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
)

// TaskID 백엔드가 생성 작업마다 부여하는 불투명한 식별자입니다.
type TaskID string

func (id TaskID) IsEmpty() bool {
	return strings.TrimSpace(string(id)) == ""
}

func (id TaskID) String() string {
	return string(id)
}

// TaskStatus 백그라운드 생성 작업의 진행 상태입니다.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal 더 이상 상태가 바뀌지 않는 종료 상태인지 확인합니다.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

func (s TaskStatus) String() string {
	return string(s)
}

// ParseTaskStatus 백엔드가 보고한 상태 문자열을 해석합니다. 대소문자와 앞뒤 공백은 무시합니다.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	switch s := TaskStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return s, nil
	default:
		return "", apperrors.Newf(apperrors.ParsingFailed, "알 수 없는 작업 상태입니다: '%s'", raw)
	}
}

// Task 백엔드의 생성 작업 하나를 나타냅니다.
//
// TotalItems가 nil이면 전체 항목 수를 아직 모르는 상태이며, 0과 구분됩니다.
type Task struct {
	ID             TaskID     `json:"task_id"`
	Status         TaskStatus `json:"status"`
	TotalItems     *int       `json:"total_items"`
	ProcessedItems int        `json:"processed_items"`
}

// Clone TotalItems 포인터까지 복사한 사본을 반환합니다.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}

	c := *t
	if t.TotalItems != nil {
		total := *t.TotalItems
		c.TotalItems = &total
	}

	return &c
}
