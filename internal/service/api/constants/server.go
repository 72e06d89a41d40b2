package constants

import "time"

// HTTP 서버 기본값 상수입니다.
const (
	// DefaultReadTimeout 요청 본문 읽기 최대 대기 시간
	DefaultReadTimeout = 10 * time.Second

	// DefaultReadHeaderTimeout HTTP 헤더 읽기 최대 대기 시간.
	// 헤더를 매우 느리게 전송하는 클라이언트(Slowloris)가 연결을 점유하지 못하도록 제한합니다.
	DefaultReadHeaderTimeout = 5 * time.Second

	// DefaultWriteTimeout 응답 쓰기 최대 대기 시간.
	// /api/v1/search는 백엔드의 Generate 응답을 기다리므로 요청 타임아웃보다 길어야 합니다.
	DefaultWriteTimeout = 90 * time.Second

	// DefaultIdleTimeout Keep-Alive 연결의 유휴 시간 제한
	DefaultIdleTimeout = 120 * time.Second

	// DefaultRequestTimeout 요청 하나의 최대 처리 시간
	DefaultRequestTimeout = 60 * time.Second

	// DefaultMaxBodySize 요청 본문의 최대 크기
	DefaultMaxBodySize = "64K"

	// DefaultRateLimitPerSecond IP별 초당 허용 요청 수
	DefaultRateLimitPerSecond = 20

	// DefaultRateLimitBurst IP별 순간 허용량
	DefaultRateLimitBurst = 40
)
