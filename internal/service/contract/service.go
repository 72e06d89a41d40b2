package contract

import (
	"context"
	"sync"
)

// Service 프로세스와 생명주기를 같이하는 백그라운드 서비스입니다.
//
// Start는 즉시 반환해야 하며, serviceStopCtx가 취소되어 정리가 끝나면 serviceStopWG.Done()을 호출합니다.
// 이미 실행 중이거나 시작에 실패한 경우에도 Done은 반드시 한 번 호출됩니다.
type Service interface {
	Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error
}
