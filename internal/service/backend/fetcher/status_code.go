package fetcher

import (
	"io"
	"net/http"
	"slices"

	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
)

// maxBodySnippetBytes 에러 정보에 포함할 응답 본문의 최대 바이트 수
const maxBodySnippetBytes = 4096

// StatusCodeFetcher 허용된 HTTP 상태 코드만 성공으로 처리하는 미들웨어입니다.
// 허용되지 않은 응답은 본문을 정리하고 HTTPStatusError로 변환합니다.
type StatusCodeFetcher struct {
	delegate Fetcher

	// allowedStatusCodes 비어 있으면 200 OK만 허용한다.
	allowedStatusCodes []int
}

var _ Fetcher = (*StatusCodeFetcher)(nil)

// NewStatusCodeFetcher 200 OK만 허용하는 StatusCodeFetcher를 생성합니다.
func NewStatusCodeFetcher(delegate Fetcher, allowedStatusCodes ...int) *StatusCodeFetcher {
	return &StatusCodeFetcher{
		delegate:           delegate,
		allowedStatusCodes: allowedStatusCodes,
	}
}

func (f *StatusCodeFetcher) Do(req *http.Request) (*http.Response, error) {
	resp, err := f.delegate.Do(req)
	if err != nil {
		if resp != nil {
			drainAndCloseBody(resp.Body)
		}
		return nil, err
	}

	if statusErr := checkResponseStatus(resp, f.allowedStatusCodes...); statusErr != nil {
		drainAndCloseBody(resp.Body)
		return nil, statusErr
	}

	return resp, nil
}

// checkResponseStatus 상태 코드가 허용 목록에 없으면 HTTPStatusError를 반환합니다.
// 에러 정보에 넣기 위해 본문 일부를 읽으므로, 에러가 반환되면 호출자는 본문을 즉시 닫아야 합니다.
func checkResponseStatus(resp *http.Response, allowedStatusCodes ...int) error {
	if len(allowedStatusCodes) == 0 {
		if resp.StatusCode == http.StatusOK {
			return nil
		}
	} else if slices.Contains(allowedStatusCodes, resp.StatusCode) {
		return nil
	}

	urlStr := ""
	if resp.Request != nil && resp.Request.URL != nil {
		urlStr = redactURL(resp.Request.URL)
	}

	var bodySnippet string
	if resp.Body != nil {
		if b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippetBytes)); err == nil {
			bodySnippet = string(b)
		}
	}

	return &HTTPStatusError{
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		URL:         urlStr,
		Header:      redactHeaders(resp.Header),
		BodySnippet: bodySnippet,
		Cause:       newErrHTTPStatus(statusErrorType(resp.StatusCode), resp.Status, urlStr),
	}
}

// statusErrorType HTTP 상태 코드를 에러 분류로 옮깁니다.
func statusErrorType(code int) apperrors.ErrorType {
	switch code {
	case http.StatusNotFound:
		return apperrors.NotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return apperrors.Forbidden
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.InvalidInput
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return apperrors.Unavailable
	}

	if code >= 500 {
		return apperrors.Unavailable
	}
	return apperrors.ExecutionFailed
}
