package fetcher

import (
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID 요청 추적 ID를 전달하는 헤더 이름
const HeaderRequestID = "X-Request-ID"

// RequestIDFetcher 요청마다 추적 ID 헤더를 채우는 미들웨어입니다.
// 이미 헤더가 있으면 그대로 둡니다.
type RequestIDFetcher struct {
	delegate Fetcher
}

var _ Fetcher = (*RequestIDFetcher)(nil)

func NewRequestIDFetcher(delegate Fetcher) *RequestIDFetcher {
	return &RequestIDFetcher{delegate: delegate}
}

func (f *RequestIDFetcher) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get(HeaderRequestID) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}
	return f.delegate.Do(req)
}
