package fetcher

import (
	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
)

const msgMaxRetriesExceeded = "최대 재시도 횟수를 초과하여 요청이 실패했습니다"

var (
	// ErrMaxRetriesExceeded 최대 재시도 횟수를 모두 소진했을 때 반환됩니다.
	ErrMaxRetriesExceeded = apperrors.New(apperrors.Unavailable, msgMaxRetriesExceeded)
)

func newErrHTTPStatus(errType apperrors.ErrorType, status, url string) error {
	return apperrors.Newf(errType, "HTTP 요청이 실패했습니다 (상태: %s, URL: %s)", status, url)
}

func newErrMaxRetriesExceeded(lastErr error) error {
	if lastErr == nil {
		return ErrMaxRetriesExceeded
	}
	return apperrors.Wrap(lastErr, apperrors.Unavailable, msgMaxRetriesExceeded)
}

func newErrRetryAfterExceeded(retryAfter, maxDelay string) error {
	return apperrors.Newf(apperrors.Unavailable, "서버가 요구한 재시도 대기 시간(%s)이 허용된 최대값(%s)을 초과하여 재시도를 중단합니다", retryAfter, maxDelay)
}

func newErrGetBodyFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "재시도를 위한 요청 본문 재생성에 실패했습니다")
}

func newErrRateLimitWait(err error) error {
	return apperrors.Wrap(err, apperrors.Unavailable, "요청 속도 제한 대기 중 요청이 취소되었습니다")
}
