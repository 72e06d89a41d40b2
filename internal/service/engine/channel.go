package engine

import (
	"context"
	"errors"
	"time"

	"github.com/darkkaiser/domain-sync/internal/service/contract"
	applog "github.com/darkkaiser/domain-sync/pkg/log"
)

// runPush 푸시 채널을 열고 이벤트를 이벤트 루프로 전달합니다.
//
// 형식이 잘못된 메시지와 다른 작업의 이벤트는 건너뛴다.
// 연결 실패, 끊김, error 이벤트는 모두 evPushClosed 또는 evPushEvent로 전달된 뒤 고루틴이 끝난다.
func (e *Engine) runPush(ctx context.Context, gen uint64, taskID contract.TaskID) {
	stream, err := e.dialer.Dial(ctx, taskID)
	if err != nil {
		if ctx.Err() == nil {
			e.post(ctx, evPushClosed{tag: tag{gen}, err: err})
		}
		return
	}
	defer stream.Close()

	if !e.post(ctx, evPushConnected{tag: tag{gen}}) {
		return
	}

	for {
		event, err := stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			if errors.Is(err, contract.ErrMalformedEvent) {
				applog.WithComponentAndFields(component, applog.Fields{
					"task_id":    taskID,
					"error_kind": ErrorMalformedEvent,
					"error":      err,
				}).Warn("해석할 수 없는 푸시 메시지를 무시합니다")
				continue
			}

			e.post(ctx, evPushClosed{tag: tag{gen}, err: err})
			return
		}

		if !event.TaskID.IsEmpty() && event.TaskID != taskID {
			applog.WithComponentAndFields(component, applog.Fields{
				"task_id":       taskID,
				"event_task_id": event.TaskID,
				"event_type":    event.Type,
			}).Warn("다른 작업의 푸시 이벤트를 무시합니다")
			continue
		}

		if !e.post(ctx, evPushEvent{tag: tag{gen}, event: event}) {
			return
		}

		if event.Type == contract.PushCompleted || event.Type == contract.PushError {
			return
		}
	}
}

// runFallbackTimer delay 안에 핸드셰이크가 끝나지 않았을 때 폴링으로 전환하도록 알립니다.
func (e *Engine) runFallbackTimer(ctx context.Context, gen uint64, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
		e.post(ctx, evFallbackTimeout{tag: tag{gen}})
	}
}

// runBulkFetch 작업의 전체 결과를 한 번 조회합니다.
func (e *Engine) runBulkFetch(ctx context.Context, gen uint64, taskID contract.TaskID) {
	batch, err := e.backend.FetchResults(ctx, taskID)
	if ctx.Err() != nil {
		return
	}

	e.post(ctx, evBulkResult{tag: tag{gen}, batch: batch, err: err})
}
