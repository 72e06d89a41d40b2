// Package fetcher 백엔드 API 호출에 사용하는 HTTP 요청 미들웨어 체인을 제공합니다.
//
// 각 미들웨어는 Fetcher 인터페이스를 구현하며 데코레이터 방식으로 조합됩니다.
//
//	HTTPFetcher -> StatusCodeFetcher -> RetryFetcher -> RateLimitFetcher -> RequestIDFetcher -> LoggingFetcher
package fetcher

import (
	"io"
	"net/http"
	"sync"
)

// component Fetcher 로깅용 컴포넌트 이름
const component = "backend.fetcher"

// Fetcher HTTP 요청을 수행하는 인터페이스입니다.
//
// 구현 시 주의사항:
//   - 반환된 응답 객체의 Body는 호출자가 닫아야 합니다.
//   - 에러를 반환할 때는 응답 객체의 Body를 스스로 정리하고 nil 응답을 반환합니다.
//   - 요청 Context가 취소되면 즉시 중단해야 합니다.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetcherFunc 일반 함수를 Fetcher로 사용할 수 있게 하는 어댑터입니다.
type FetcherFunc func(req *http.Request) (*http.Response, error)

func (f FetcherFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// maxDrainBytes 커넥션 재사용을 위해 응답 본문을 비울 때 읽는 최대 바이트 수
const maxDrainBytes = 64 * 1024

var drainBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 32*1024)
		return &b
	},
}

// drainAndCloseBody Keep-Alive 커넥션을 재사용할 수 있도록 본문을 일정량 읽어 버린 뒤 닫습니다.
// maxDrainBytes를 넘는 본문을 가진 커넥션은 재사용되지 않습니다.
func drainAndCloseBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	defer body.Close()

	bufPtr := drainBufPool.Get().(*[]byte)
	defer drainBufPool.Put(bufPtr)

	_, _ = io.CopyBuffer(io.Discard, io.LimitReader(body, maxDrainBytes), *bufPtr)
}
