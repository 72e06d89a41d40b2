package constants

// 클라이언트에게 반환되는 에러 메시지 상수입니다.
const (
	// 400 Bad Request
	ErrMsgBadRequest            = "잘못된 요청입니다"
	ErrMsgBadRequestInvalidBody = "요청 본문을 파싱할 수 없습니다. JSON 형식을 확인해주세요"

	// 404 Not Found
	ErrMsgNotFound = "요청한 리소스를 찾을 수 없습니다"

	// 409 Conflict
	ErrMsgConflict = "현재 상태에서는 요청을 처리할 수 없습니다"

	// 413 Request Entity Too Large
	ErrMsgRequestEntityTooLarge = "요청 본문이 너무 큽니다"

	// 429 Too Many Requests
	ErrMsgTooManyRequests = "요청이 너무 많습니다. 잠시 후 다시 시도해주세요"

	// 500 Internal Server Error
	ErrMsgInternalServer = "내부 서버 오류가 발생했습니다"

	// 502 Bad Gateway
	ErrMsgBadGateway = "도메인 생성 백엔드가 요청을 처리하지 못했습니다"

	// 503 Service Unavailable
	ErrMsgServiceUnavailable = "서비스를 일시적으로 사용할 수 없습니다. 잠시 후 다시 시도해주세요"

	// 504 Gateway Timeout
	ErrMsgGatewayTimeout = "도메인 생성 백엔드의 응답 시간이 초과되었습니다"
)

// 헬스체크 및 시스템 상태 관련 상수입니다.
const (
	// HealthStatusHealthy 헬스체크 상태: 정상
	HealthStatusHealthy = "healthy"

	// HealthStatusUnhealthy 헬스체크 상태: 비정상
	HealthStatusUnhealthy = "unhealthy"

	// DependencySyncEngine 외부 의존성 ID: 동기화 엔진
	DependencySyncEngine = "sync_engine"

	// MsgDepStatusHealthy 외부 의존성 상태: 정상
	MsgDepStatusHealthy = "정상 작동 중"

	// MsgDepStatusStopped 외부 의존성 상태: 중지됨
	MsgDepStatusStopped = "동기화 엔진이 실행 중이 아님"
)
