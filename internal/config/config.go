package config

import (
	"time"
)

const (
	// AppName 애플리케이션 식별자 (로그 파일명, 설정 파일명에 사용)
	AppName string = "domain-sync"

	// DefaultFilename 실행 인자로 경로가 주어지지 않을 때 읽는 설정 파일명
	DefaultFilename = AppName + ".json"

	// CacheDriverMemory 프로세스 메모리에만 보관하는 캐시 (기본값)
	CacheDriverMemory = "memory"

	// CacheDriverFile 디렉토리에 JSON 파일로 보관하는 캐시
	CacheDriverFile = "file"

	// PollBackoffFixed 항상 poll_interval 간격으로 폴링 (기본값)
	PollBackoffFixed = "fixed"

	// PollBackoffExponential 연속 실패 시 max_poll_interval까지 간격을 두 배씩 늘림
	PollBackoffExponential = "exponential"
)

// AppConfig 애플리케이션 설정의 루트 구조체
type AppConfig struct {
	Debug     bool            `json:"debug"`
	Backend   BackendConfig   `json:"backend"`
	HTTPRetry HTTPRetryConfig `json:"http_retry"`
	Sync      SyncConfig      `json:"sync"`
	Cache     CacheConfig     `json:"cache"`
	StatusAPI StatusAPIConfig `json:"status_api"`
}

// BackendConfig 도메인 생성 백엔드(HTTP API, WebSocket 푸시 채널) 접속 설정
type BackendConfig struct {
	BaseURL        string        `json:"base_url" validate:"required,http_endpoint"`
	PushURL        string        `json:"push_url" validate:"required,ws_endpoint"`
	RequestTimeout time.Duration `json:"request_timeout" validate:"gt=0"`

	// RateLimit 백엔드로 나가는 요청의 초당 허용량, RateBurst 순간 허용량
	RateLimit float64 `json:"rate_limit" validate:"gt=0"`
	RateBurst int     `json:"rate_burst" validate:"min=1"`
}

// HTTPRetryConfig 멱등 요청(GET)의 재시도 정책
type HTTPRetryConfig struct {
	MaxRetries int           `json:"max_retries" validate:"min=0,max=10"`
	RetryDelay time.Duration `json:"retry_delay" validate:"gt=0"`
	MaxDelay   time.Duration `json:"max_delay" validate:"gtefield=RetryDelay"`
}

// SyncConfig 푸시/풀 채널 중재 및 목록 페이징 설정
type SyncConfig struct {
	// FallbackDelay 푸시 채널 연결이 이 시간 안에 완료되지 않으면 폴링으로 전환합니다.
	FallbackDelay time.Duration `json:"fallback_delay" validate:"gt=0"`

	// PollInterval 폴링 주기
	PollInterval time.Duration `json:"poll_interval" validate:"gt=0"`

	// PollBackoff 폴링 간격 정책 (fixed, exponential)
	PollBackoff string `json:"poll_backoff" validate:"oneof=fixed exponential"`

	// MaxPollInterval exponential 정책에서 폴링 간격의 상한
	MaxPollInterval time.Duration `json:"max_poll_interval" validate:"gtefield=PollInterval"`

	// MaxPollFailures 연속 폴링 실패 허용 횟수 (0: 무제한)
	MaxPollFailures int `json:"max_poll_failures" validate:"min=0"`

	// PageSize '더 보기' 한 번에 노출하는 항목 수
	PageSize int `json:"page_size" validate:"min=1,max=50"`

	// DetailConcurrency 동기 모드에서 상세 설명을 동시에 요청하는 최대 개수
	DetailConcurrency int `json:"detail_concurrency" validate:"min=1,max=16"`
}

// CacheConfig 검색 결과 캐시 설정
type CacheConfig struct {
	Driver      string        `json:"driver" validate:"oneof=memory file"`
	Dir         string        `json:"dir" validate:"required_if=Driver file"`
	TTL         time.Duration `json:"ttl" validate:"gt=0"`
	CleanupSpec string        `json:"cleanup_spec" validate:"cron_spec"`
}

// StatusAPIConfig 상태 조회/명령 API 서버 설정
type StatusAPIConfig struct {
	ListenPort   int      `json:"listen_port" validate:"port"`
	AllowOrigins []string `json:"allow_origins" validate:"min=1,dive,cors_origin"`
}

// VerifyRecommendations 강제하지는 않지만 권장하지 않는 설정에 대한 경고 목록을 반환합니다.
func (c *AppConfig) VerifyRecommendations() []string {
	var warnings []string

	if c.StatusAPI.ListenPort < 1024 {
		warnings = append(warnings, "시스템 예약 포트(1-1023)를 사용하도록 설정되었습니다. 관리자 권한이 필요할 수 있습니다")
	}
	if c.Sync.PollInterval < time.Second {
		warnings = append(warnings, "폴링 주기(sync.poll_interval)가 1초보다 짧아 백엔드에 부하를 줄 수 있습니다")
	}
	if c.Sync.FallbackDelay > 30*time.Second {
		warnings = append(warnings, "폴링 전환 대기 시간(sync.fallback_delay)이 30초를 넘어 진행 상황 표시가 지연될 수 있습니다")
	}

	return warnings
}
