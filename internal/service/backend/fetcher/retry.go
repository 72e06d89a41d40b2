package fetcher

import (
	"context"
	"crypto/x509"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
	applog "github.com/darkkaiser/domain-sync/pkg/log"
)

const (
	minAllowedRetries = 0
	maxAllowedRetries = 10

	defaultMinRetryDelay = time.Second
	defaultMaxRetryDelay = 30 * time.Second
)

// RetryFetcher 일시적인 오류로 실패한 멱등 요청을 지수 백오프와 Full Jitter로 재시도하는 미들웨어입니다.
//
// 서버가 Retry-After 헤더를 보내면 그 값을 우선하며, 허용된 최대 대기 시간보다 길면 재시도를 포기합니다.
// POST 같은 비멱등 요청은 재시도하지 않습니다.
type RetryFetcher struct {
	delegate Fetcher

	maxRetries    int
	minRetryDelay time.Duration
	maxRetryDelay time.Duration
}

var _ Fetcher = (*RetryFetcher)(nil)

// NewRetryFetcher 새로운 RetryFetcher를 생성합니다.
// maxRetries는 0~10 범위로 보정되며, 대기 시간이 0 이하이면 기본값(1초, 30초)을 사용합니다.
func NewRetryFetcher(delegate Fetcher, maxRetries int, minRetryDelay, maxRetryDelay time.Duration) *RetryFetcher {
	maxRetries = min(max(maxRetries, minAllowedRetries), maxAllowedRetries)

	if minRetryDelay <= 0 {
		minRetryDelay = defaultMinRetryDelay
	}
	if maxRetryDelay <= 0 {
		maxRetryDelay = defaultMaxRetryDelay
	}
	if maxRetryDelay < minRetryDelay {
		maxRetryDelay = minRetryDelay
	}

	return &RetryFetcher{
		delegate:      delegate,
		maxRetries:    maxRetries,
		minRetryDelay: minRetryDelay,
		maxRetryDelay: maxRetryDelay,
	}
}

func (f *RetryFetcher) Do(req *http.Request) (*http.Response, error) {
	effectiveMaxRetries := f.maxRetries
	if !isIdempotentMethod(req.Method) {
		effectiveMaxRetries = 0
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil && effectiveMaxRetries > 0 {
		applog.WithComponentAndFields(component, applog.Fields{
			"url":    redactURL(req.URL),
			"method": req.Method,
		}).Warn("재시도 비활성화: 요청 본문을 다시 만들 수 없습니다 (GetBody nil)")

		effectiveMaxRetries = 0
	}

	var lastErr error

	for attempt := 0; attempt <= effectiveMaxRetries; attempt++ {
		if attempt > 0 {
			delay, err := f.nextDelay(attempt, lastErr)
			if err != nil {
				return nil, err
			}

			applog.WithComponentAndFields(component, applog.Fields{
				"url":               redactURL(req.URL),
				"retry":             attempt,
				"remaining_retries": effectiveMaxRetries - attempt,
				"delay":             delay.String(),
				"error":             lastErr,
			}).Warn("재시도 대기 중: 일시적 오류로 인해 요청 재시도를 준비합니다")

			if err := sleepContext(req.Context(), delay); err != nil {
				return nil, err
			}

			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, newErrGetBodyFailed(err)
				}
				req = req.Clone(req.Context())
				req.Body = body
			}
		}

		resp, err := f.delegate.Do(req)
		if err == nil {
			return resp, nil
		}
		if resp != nil {
			drainAndCloseBody(resp.Body)
		}

		if req.Context().Err() != nil {
			return nil, err
		}
		if !isRetriable(err) {
			return nil, err
		}

		lastErr = err
	}

	if effectiveMaxRetries == 0 {
		return nil, lastErr
	}

	return nil, newErrMaxRetriesExceeded(lastErr)
}

// nextDelay attempt번째 재시도 전에 기다릴 시간을 계산합니다.
func (f *RetryFetcher) nextDelay(attempt int, lastErr error) (time.Duration, error) {
	var statusErr *HTTPStatusError
	if errors.As(lastErr, &statusErr) && statusErr.Header != nil {
		if retryAfter, ok := parseRetryAfter(statusErr.Header.Get("Retry-After")); ok {
			if retryAfter > f.maxRetryDelay {
				return 0, newErrRetryAfterExceeded(retryAfter.String(), f.maxRetryDelay.String())
			}
			return retryAfter, nil
		}
	}

	delay := f.minRetryDelay << (attempt - 1)
	if delay <= 0 || delay > f.maxRetryDelay {
		delay = f.maxRetryDelay
	}

	delay = time.Duration(rand.Int64N(int64(delay) + 1))
	if delay < time.Millisecond {
		delay = f.minRetryDelay
	}

	return delay, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRetriable 재시도로 해결될 가능성이 있는 일시적인 오류인지 판단합니다.
func isRetriable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		msg := urlErr.Error()
		if strings.Contains(msg, "unsupported protocol scheme") ||
			strings.Contains(msg, "invalid control character in URL") ||
			strings.Contains(msg, "stopped after 10 redirects") {
			return false
		}
	}

	var hostnameErr x509.HostnameError
	var unknownAuthorityErr x509.UnknownAuthorityError
	var certificateInvalidErr x509.CertificateInvalidError
	if errors.As(err, &hostnameErr) || errors.As(err, &unknownAuthorityErr) || errors.As(err, &certificateInvalidErr) {
		return false
	}

	if apperrors.Is(err, apperrors.Unavailable) {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) {
			switch statusErr.StatusCode {
			case http.StatusNotImplemented, http.StatusHTTPVersionNotSupported, http.StatusNetworkAuthenticationRequired:
				return false
			}
		}
		return true
	}

	if apperrors.Is(err, apperrors.ExecutionFailed) ||
		apperrors.Is(err, apperrors.InvalidInput) ||
		apperrors.Is(err, apperrors.Forbidden) ||
		apperrors.Is(err, apperrors.NotFound) {
		return false
	}

	// 분류되지 않은 에러(연결 거부, DNS 실패 등)는 일시적인 네트워크 문제로 본다.
	return true
}

func isIdempotentMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// parseRetryAfter 초 단위 정수 또는 HTTP-date 형식의 Retry-After 값을 해석합니다.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}

	if date, err := http.ParseTime(value); err == nil {
		return max(time.Until(date), 0), true
	}

	return 0, false
}
