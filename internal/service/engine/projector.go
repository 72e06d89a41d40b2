package engine

import "github.com/darkkaiser/domain-sync/internal/service/contract"

// Project 엔진 상태로부터 항목 하나의 표시 상태를 계산합니다.
//
// 규칙은 위에서부터 차례로 적용되며, 먼저 일치한 규칙이 우선합니다.
//
//  1. 결과가 있으면 Completed (작업 상태와 무관)
//  2. 작업이 Processing이면 Processing
//  3. 작업이 Failed이거나 치명적인 채널 오류가 기록되었으면 Failed
//  4. 작업이 Completed인데 결과가 없으면 Failed
//  5. 그 밖에는 Pending
//
// 치명적인 채널 오류는 BackgroundGenerationFailed와 허용 횟수를 모두 소진한 PollFailed입니다.
// 일시적인 ConnectionLost와 PollFailed는 기록만 될 뿐 항목을 실패로 만들지 않습니다.
func Project(snap *Snapshot, key contract.ItemKey) ItemStatus {
	if snap == nil {
		return ItemPending
	}

	if _, ok := snap.Results[key]; ok {
		return ItemCompleted
	}

	var status contract.TaskStatus
	if snap.Task != nil {
		status = snap.Task.Status
	}

	switch {
	case status == contract.TaskStatusProcessing:
		return ItemProcessing
	case status == contract.TaskStatusFailed, isFatal(snap):
		return ItemFailed
	case status == contract.TaskStatusCompleted:
		return ItemFailed
	default:
		return ItemPending
	}
}

// ProjectAll Items 순서대로 모든 항목의 표시 상태를 계산합니다.
func ProjectAll(snap *Snapshot) map[contract.ItemKey]ItemStatus {
	statuses := make(map[contract.ItemKey]ItemStatus, len(snap.Items))
	for _, key := range snap.Items {
		statuses[key] = Project(snap, key)
	}
	return statuses
}

func isFatal(snap *Snapshot) bool {
	switch snap.LastError {
	case ErrorBackgroundGenerationFailed:
		return true
	case ErrorPollFailed:
		return snap.PollGaveUp
	default:
		return false
	}
}
