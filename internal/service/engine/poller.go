package engine

import (
	"context"
	"time"

	"github.com/darkkaiser/domain-sync/internal/service/contract"
)

// runPoller 작업 상태를 주기적으로 조회하여 이벤트 루프로 전달합니다.
//
// 첫 조회는 즉시 수행하고, 이후 간격은 Backoff가 연속 실패 횟수에 따라 정한다.
// 종료 조건(종료 상태, 실패 허용 횟수 초과)은 이벤트 루프가 판단하여 ctx를 취소한다.
func (e *Engine) runPoller(ctx context.Context, gen, epoch uint64, taskID contract.TaskID) {
	failures := 0

	for {
		report, err := e.backend.PollStatus(ctx, taskID)
		if ctx.Err() != nil {
			return
		}

		if !e.post(ctx, evPullStatus{tag: tag{gen}, epoch: epoch, report: report, err: err}) {
			return
		}

		if err != nil {
			failures++
		} else {
			failures = 0
		}

		timer := time.NewTimer(e.opts.Backoff.Next(failures))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
