package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/darkkaiser/domain-sync/internal/service/api/constants"
	applog "github.com/darkkaiser/domain-sync/pkg/log"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	// maxIPRateLimiters 메모리에 유지하는 IP별 Limiter의 최대 개수
	maxIPRateLimiters = 10000

	// retryAfter 429 응답에 포함하는 재시도 대기 시간 헤더 (RFC 7231, Section 7.1.3)
	retryAfter = "Retry-After"

	// retryAfterSeconds 429 응답 시 클라이언트에게 제안하는 대기 시간(초)
	retryAfterSeconds = "1"
)

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter IP 주소별 Token Bucket Limiter를 관리합니다.
//
// 최대 개수에 도달하면 가장 오래 요청이 없었던 IP의 Limiter를 제거하고 새 IP를 받습니다.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiterEntry

	rate       rate.Limit
	burst      int
	maxEntries int

	now func() time.Time
}

func newIPRateLimiter(requestsPerSecond int, burst int, maxEntries int) *ipRateLimiter {
	return &ipRateLimiter{
		limiters: make(map[string]*ipLimiterEntry),

		rate:       rate.Limit(requestsPerSecond),
		burst:      burst,
		maxEntries: maxEntries,

		now: time.Now,
	}
}

// allow ip의 토큰을 하나 소비할 수 있는지 확인합니다.
func (i *ipRateLimiter) allow(ip string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()

	entry, exists := i.limiters[ip]
	if !exists {
		if len(i.limiters) >= i.maxEntries {
			i.evictOldest()
		}

		entry = &ipLimiterEntry{limiter: rate.NewLimiter(i.rate, i.burst)}
		i.limiters[ip] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

func (i *ipRateLimiter) evictOldest() {
	var (
		oldestIP   string
		oldestSeen time.Time
	)
	for ip, entry := range i.limiters {
		if oldestIP == "" || entry.lastSeen.Before(oldestSeen) {
			oldestIP, oldestSeen = ip, entry.lastSeen
		}
	}

	delete(i.limiters, oldestIP)
}

func (i *ipRateLimiter) size() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return len(i.limiters)
}

// RateLimit IP 기반 Rate Limiting 미들웨어를 반환합니다.
//
// Token Bucket 알고리즘(golang.org/x/time/rate)으로 IP별 요청 속도를 제한하며,
// 제한 초과 시 429 (Too Many Requests)와 Retry-After 헤더를 반환합니다.
//
// Panics:
//   - requestsPerSecond 또는 burst가 0 이하인 경우
func RateLimit(requestsPerSecond int, burst int) echo.MiddlewareFunc {
	if requestsPerSecond <= 0 {
		panic(fmt.Sprintf(constants.PanicMsgRateLimitRequestsPerSecondInvalid, requestsPerSecond))
	}
	if burst <= 0 {
		panic(fmt.Sprintf(constants.PanicMsgRateLimitBurstInvalid, burst))
	}

	return rateLimit(newIPRateLimiter(requestsPerSecond, burst, maxIPRateLimiters))
}

func rateLimit(limiter *ipRateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			if !limiter.allow(ip) {
				applog.WithComponentAndFields(constants.ComponentMiddlewareRateLimit, applog.Fields{
					"remote_ip": ip,
					"path":      c.Request().URL.Path,
					"method":    c.Request().Method,
				}).Warn("요청 차단: 속도 제한(Rate Limit)을 초과하였습니다")

				c.Response().Header().Set(retryAfter, retryAfterSeconds)

				return ErrRateLimitExceeded
			}

			return next(c)
		}
	}
}
