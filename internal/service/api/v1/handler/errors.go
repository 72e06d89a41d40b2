package handler

import (
	"github.com/darkkaiser/domain-sync/internal/service/api/constants"
	"github.com/darkkaiser/domain-sync/internal/service/api/httputil"
)

// NewErrInvalidBody 요청 본문을 파싱하지 못했을 때의 에러를 생성합니다.
func NewErrInvalidBody() error {
	return httputil.NewBadRequestError(constants.ErrMsgBadRequestInvalidBody)
}

// NewErrValidationFailed 요청 값 검증에 실패했을 때의 에러를 생성합니다.
func NewErrValidationFailed(msg string) error {
	return httputil.NewBadRequestError(msg)
}

// NewErrInvalidItemKey 경로의 항목 키가 비어 있을 때의 에러를 생성합니다.
func NewErrInvalidItemKey() error {
	return httputil.NewBadRequestError("항목 키가 비어 있습니다")
}
