package fetcher

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitFetcher 백엔드로 나가는 요청의 초당 횟수를 토큰 버킷으로 제한하는 미들웨어입니다.
// 토큰이 없으면 요청 Context가 허용하는 동안 기다립니다.
type RateLimitFetcher struct {
	delegate Fetcher
	limiter  *rate.Limiter
}

var _ Fetcher = (*RateLimitFetcher)(nil)

// NewRateLimitFetcher 초당 rps개, 최대 burst개까지 허용하는 RateLimitFetcher를 생성합니다.
// rps가 0 이하이면 제한하지 않습니다.
func NewRateLimitFetcher(delegate Fetcher, rps float64, burst int) *RateLimitFetcher {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}

	return &RateLimitFetcher{
		delegate: delegate,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

func (f *RateLimitFetcher) Do(req *http.Request) (*http.Response, error) {
	if err := f.limiter.Wait(req.Context()); err != nil {
		return nil, newErrRateLimitWait(err)
	}
	return f.delegate.Do(req)
}
