package push

import (
	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
)

var (
	// ErrStreamClosed 이미 닫힌 스트림에서 읽으려 할 때 반환됩니다.
	ErrStreamClosed = apperrors.New(apperrors.Unavailable, "푸시 채널이 이미 닫혔습니다")
)

func newErrDialFailed(err error, url string, status int) error {
	if status != 0 {
		return apperrors.Wrapf(err, apperrors.Unavailable, "푸시 채널 연결 실패 (URL: %s, HTTP %d)", url, status)
	}
	return apperrors.Wrapf(err, apperrors.Unavailable, "푸시 채널 연결 실패 (URL: %s)", url)
}

func newErrConnectionLost(err error) error {
	return apperrors.Wrap(err, apperrors.Unavailable, "푸시 채널 연결이 끊어졌습니다")
}

func newErrInvalidEndpoint(err error, raw string) error {
	if err == nil {
		return apperrors.Newf(apperrors.InvalidInput, "푸시 채널 주소는 ws 또는 wss 스킴이어야 합니다 (%s)", raw)
	}
	return apperrors.Wrapf(err, apperrors.InvalidInput, "푸시 채널 주소가 올바르지 않습니다 (%s)", raw)
}
