package contract

import "context"

// Backend 도메인 생성 백엔드의 요청/응답 API입니다.
type Backend interface {
	// Generate query에 대한 도메인 이름 목록을 생성합니다.
	// 백그라운드 설명 생성 작업이 시작되면 TaskID가 함께 반환됩니다.
	Generate(ctx context.Context, query string) (*GenerateResult, error)

	// PollStatus 작업의 현재 집계 상태를 조회합니다.
	PollStatus(ctx context.Context, taskID TaskID) (*StatusReport, error)

	// FetchResults 작업이 생성한 전체 결과를 조회합니다. 상태가 completed일 때만 의미가 있습니다.
	FetchResults(ctx context.Context, taskID TaskID) (*ResultBatch, error)

	// GenerateOne 항목 하나의 상세 정보를 동기적으로 생성합니다.
	GenerateOne(ctx context.Context, query, itemName string) (*ResultRecord, error)
}

// GenerateResult Generate 응답입니다.
type GenerateResult struct {
	Items      []string `json:"domains"`
	TaskID     TaskID   `json:"task_id,omitempty"`
	TotalItems *int     `json:"total_domains,omitempty"`
}

// StatusReport PollStatus 응답입니다.
type StatusReport struct {
	Status         TaskStatus `json:"status"`
	ProcessedItems int        `json:"processed_items"`
	TotalItems     *int       `json:"total_items"`
}

// ResultBatch FetchResults 응답입니다.
type ResultBatch struct {
	Status  TaskStatus     `json:"status"`
	Results []ResultRecord `json:"results"`
}
