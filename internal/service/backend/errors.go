package backend

import (
	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
)

var (
	// ErrEmptyTaskID 작업 ID 없이 작업 API를 호출했을 때 반환됩니다.
	ErrEmptyTaskID = apperrors.New(apperrors.InvalidInput, "작업 ID(task_id)가 비어 있습니다")
)

func newErrRequestBuildFailed(err error, endpoint string) error {
	return apperrors.Wrapf(err, apperrors.Internal, "백엔드 요청 생성 실패 (%s)", endpoint)
}

// newErrRequestFailed 전송 단계의 에러를 감쌉니다. 원인 에러의 분류(NotFound 등)를 유지하며,
// 분류가 없는 네트워크 에러는 Unavailable로 봅니다.
func newErrRequestFailed(err error, endpoint string) error {
	errType := apperrors.UnderlyingType(err)
	if errType == apperrors.Unknown {
		errType = apperrors.Unavailable
	}
	return apperrors.Wrapf(err, errType, "백엔드 요청 실패 (%s)", endpoint)
}

func newErrDecodeFailed(err error, endpoint string) error {
	return apperrors.Wrapf(err, apperrors.ParsingFailed, "백엔드 응답 해석 실패 (%s)", endpoint)
}

func newErrInvalidResponse(endpoint, reason string) error {
	return apperrors.Newf(apperrors.ParsingFailed, "백엔드 응답이 올바르지 않습니다 (%s): %s", endpoint, reason)
}

func newErrUnsupportedCharset(name string) error {
	return apperrors.Newf(apperrors.ParsingFailed, "지원하지 않는 문자 인코딩입니다: '%s'", name)
}
