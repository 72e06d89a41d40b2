package errors

import "strconv"

// ErrorType 에러를 성격별로 분류하는 타입입니다.
type ErrorType int

const (
	// Unknown 분류되지 않은 에러
	Unknown ErrorType = iota

	// Internal 내부 로직 오류 (잘못된 상태 전이, 예상하지 못한 nil 등)
	Internal

	// System 디스크/파일시스템 등 인프라 수준의 오류
	System

	// InvalidInput 잘못된 입력값
	InvalidInput

	// Conflict 현재 상태와 충돌하는 요청
	Conflict

	// NotFound 대상을 찾을 수 없음
	NotFound

	// Forbidden 인증 또는 권한 부족 (401, 403)
	Forbidden

	// ExecutionFailed 외부 API 호출 또는 작업 실행 실패
	ExecutionFailed

	// ParsingFailed 응답/메시지 디코딩 실패
	ParsingFailed

	// Timeout 시간 초과
	Timeout

	// Unavailable 일시적으로 사용할 수 없는 상태 (5xx, 429, 연결 끊김 등)
	Unavailable
)

var errorTypeNames = [...]string{
	Unknown:         "Unknown",
	Internal:        "Internal",
	System:          "System",
	InvalidInput:    "InvalidInput",
	Conflict:        "Conflict",
	NotFound:        "NotFound",
	Forbidden:       "Forbidden",
	ExecutionFailed: "ExecutionFailed",
	ParsingFailed:   "ParsingFailed",
	Timeout:         "Timeout",
	Unavailable:     "Unavailable",
}

// String fmt.Stringer 인터페이스를 구현합니다.
func (t ErrorType) String() string {
	if t < 0 || int(t) >= len(errorTypeNames) {
		return "ErrorType(" + strconv.Itoa(int(t)) + ")"
	}
	return errorTypeNames[t]
}
