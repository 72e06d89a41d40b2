package fetcher

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "domain-sync/1.0"
)

// HTTPFetcher 전용 Transport와 요청 타임아웃을 가진 기본 HTTP 클라이언트입니다.
type HTTPFetcher struct {
	client *http.Client
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher 요청 하나의 최대 소요 시간을 timeout으로 하는 HTTPFetcher를 생성합니다.
// timeout이 0 이하이면 30초를 사용합니다.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Do User-Agent가 없으면 기본값을 채운 뒤 요청을 전송합니다.
func (h *HTTPFetcher) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", defaultUserAgent)
	}
	return h.client.Do(req)
}

// CloseIdleConnections 유휴 커넥션을 정리합니다. 종료 시 호출합니다.
func (h *HTTPFetcher) CloseIdleConnections() {
	h.client.CloseIdleConnections()
}
