package engine

import (
	"context"
	"sync"
)

// session 작업 하나에 딸린 생산자 고루틴(푸시 수신, 전환 타이머, 폴러, 일괄 조회)의 수명을 묶습니다.
//
// spawn과 close는 이벤트 루프 고루틴에서만 호출한다.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	gen uint64
}

func newSession(parent context.Context, gen uint64) *session {
	ctx, cancel := context.WithCancel(parent)

	return &session{
		ctx:    ctx,
		cancel: cancel,
		gen:    gen,
	}
}

func (s *session) spawn(fn func()) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// close 모든 생산자에게 취소를 알리고 종료될 때까지 기다립니다.
func (s *session) close() {
	s.cancel()
	s.wg.Wait()
}
