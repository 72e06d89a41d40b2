package engine

import (
	"time"

	"github.com/darkkaiser/domain-sync/internal/config"
)

// Options 엔진 동작 옵션입니다.
type Options struct {
	// FallbackDelay 푸시 핸드셰이크를 기다리는 최대 시간. 지나면 폴링으로 전환한다.
	FallbackDelay time.Duration

	// Backoff 폴링 간격 정책
	Backoff Backoff

	// MaxPollFailures 연속 폴링 실패 허용 횟수. 도달하면 폴링을 중단하고 남은 항목을 실패로 본다. 0이면 무제한.
	MaxPollFailures int

	// PageSize 처음 보이는 항목 수이자 RequestMore의 기본 증가량
	PageSize int

	// DetailConcurrency 상세 정보 미리 불러오기의 동시 요청 수
	DetailConcurrency int

	// Now 테스트에서 시각을 고정할 때 사용한다.
	Now func() time.Time
}

// NewOptions 설정으로부터 Options를 만듭니다.
func NewOptions(c config.SyncConfig) Options {
	var backoff Backoff = FixedBackoff{Interval: c.PollInterval}
	if c.PollBackoff == config.PollBackoffExponential {
		backoff = ExponentialBackoff{Base: c.PollInterval, Max: c.MaxPollInterval, Factor: 2}
	}

	return Options{
		FallbackDelay:     c.FallbackDelay,
		Backoff:           backoff,
		MaxPollFailures:   c.MaxPollFailures,
		PageSize:          c.PageSize,
		DetailConcurrency: c.DetailConcurrency,
	}
}

func (o Options) withDefaults() Options {
	if o.FallbackDelay <= 0 {
		o.FallbackDelay = 3 * time.Second
	}
	if o.Backoff == nil {
		o.Backoff = FixedBackoff{Interval: 2 * time.Second}
	}
	if o.MaxPollFailures < 0 {
		o.MaxPollFailures = 0
	}
	if o.PageSize <= 0 {
		o.PageSize = 6
	}
	if o.DetailConcurrency <= 0 {
		o.DetailConcurrency = 3
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
