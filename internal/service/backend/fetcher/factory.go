package fetcher

import "time"

// Options 미들웨어 체인 구성 옵션입니다.
type Options struct {
	// Timeout 요청 하나(재시도 제외)의 최대 소요 시간
	Timeout time.Duration

	MaxRetries    int
	MinRetryDelay time.Duration
	MaxRetryDelay time.Duration

	// RateLimit 초당 허용 요청 수. 0 이하이면 제한하지 않는다.
	RateLimit float64
	RateBurst int
}

// New 옵션에 따라 전체 미들웨어 체인을 조립합니다.
//
// 로깅은 가장 바깥에서 재시도를 포함한 전체 소요 시간을 기록하고,
// 속도 제한은 재시도 바깥에서 호출 단위로 토큰을 소비합니다.
func New(opts Options) Fetcher {
	var f Fetcher = NewHTTPFetcher(opts.Timeout)
	f = NewStatusCodeFetcher(f)
	f = NewRetryFetcher(f, opts.MaxRetries, opts.MinRetryDelay, opts.MaxRetryDelay)
	f = NewRateLimitFetcher(f, opts.RateLimit, opts.RateBurst)
	f = NewRequestIDFetcher(f)
	f = NewLoggingFetcher(f)

	return f
}
