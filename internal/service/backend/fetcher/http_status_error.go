package fetcher

import (
	"fmt"
	"net/http"
)

// HTTPStatusError 허용되지 않은 HTTP 상태 코드를 받았을 때의 응답 정보를 담는 에러입니다.
//
//	var statusErr *HTTPStatusError
//	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
//	    ...
//	}
type HTTPStatusError struct {
	StatusCode int
	Status     string

	// URL 민감 정보가 마스킹된 요청 URL
	URL string

	// Header 민감 헤더가 마스킹된 응답 헤더
	Header http.Header

	// BodySnippet 응답 본문 앞부분(최대 4KB)
	BodySnippet string

	// Cause 상태 코드를 apperrors 분류로 옮긴 원인 에러
	Cause error
}

func (e *HTTPStatusError) Error() string {
	msg := fmt.Sprintf("HTTP %d (%s)", e.StatusCode, e.Status)
	if e.URL != "" {
		msg += fmt.Sprintf(" URL: %s", e.URL)
	}
	if e.BodySnippet != "" {
		msg += fmt.Sprintf(", Body: %s", e.BodySnippet)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *HTTPStatusError) Unwrap() error {
	return e.Cause
}
