package contract

import (
	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
)

var (
	// ErrCacheMiss 사용할 수 있는 캐시 항목이 없을 때 반환됩니다.
	ErrCacheMiss = apperrors.New(apperrors.NotFound, "캐시 항목이 없습니다")

	// ErrMalformedEvent 푸시 채널 메시지의 형식이 올바르지 않을 때 반환됩니다.
	ErrMalformedEvent = apperrors.New(apperrors.ParsingFailed, "잘못된 형식의 이벤트입니다")
)

// NewErrMalformedEvent 원인을 덧붙인 ErrMalformedEvent를 생성합니다.
func NewErrMalformedEvent(reason string) error {
	return apperrors.Wrap(ErrMalformedEvent, apperrors.ParsingFailed, reason)
}
