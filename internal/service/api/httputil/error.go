package httputil

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
	"github.com/darkkaiser/domain-sync/internal/service/api/constants"
	"github.com/darkkaiser/domain-sync/internal/service/api/model/response"
	applog "github.com/darkkaiser/domain-sync/pkg/log"
	"github.com/labstack/echo/v4"
)

// ErrorHandler Echo 프레임워크의 전역 에러 핸들러입니다.
//
// 모든 HTTP 에러를 가로채서 표준 ErrorResponse JSON 형식으로 변환하여 반환합니다.
// 핸들러가 echo.HTTPError가 아닌 에러를 그대로 반환한 경우 FromError로 상태 코드를 결정합니다.
func ErrorHandler(err error, c echo.Context) {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		errors.As(FromError(err), &he)
	}

	code := he.Code
	message := constants.ErrMsgInternalServer
	switch m := he.Message.(type) {
	case string:
		message = m
	case response.ErrorResponse:
		message = m.Message
	}

	// Echo가 만든 기본 메시지(http.StatusText)는 한국어 안내로 바꾼다.
	if localized, ok := defaultMessages[code]; ok && message == http.StatusText(code) {
		message = localized
	}

	fields := applog.Fields{
		"path":        c.Request().URL.Path,
		"method":      c.Request().Method,
		"status_code": code,
		"error":       err,
		"remote_ip":   c.RealIP(),
		"request_id":  c.Response().Header().Get(echo.HeaderXRequestID),
	}

	if code >= http.StatusInternalServerError {
		applog.WithComponentAndFields(constants.ComponentErrorHandler, fields).Error(constants.LogMsgHTTP5xxServerError)
	} else if code >= http.StatusBadRequest {
		applog.WithComponentAndFields(constants.ComponentErrorHandler, fields).Warn(constants.LogMsgHTTP4xxClientError)
	}

	// 이미 응답이 전송된 경우 추가 응답 시도하지 않음
	if c.Response().Committed {
		return
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}

	_ = c.JSON(code, response.ErrorResponse{
		ResultCode: code,
		Message:    message,
	})
}

// defaultMessages Echo 내장 에러(라우팅 실패, 본문 크기 초과 등)에 대응하는 사용자 안내 문구
var defaultMessages = map[int]string{
	http.StatusNotFound:              constants.ErrMsgNotFound,
	http.StatusRequestEntityTooLarge: constants.ErrMsgRequestEntityTooLarge,
	http.StatusTooManyRequests:       constants.ErrMsgTooManyRequests,
}

// FromError 애플리케이션 에러를 분류(ErrorType)에 맞는 HTTP 에러로 변환합니다.
//
// 4xx로 변환되는 에러는 에러 메시지를 클라이언트에 그대로 전달하고,
// 5xx로 변환되는 에러는 내부 정보가 노출되지 않도록 고정된 메시지를 사용합니다.
func FromError(err error) error {
	if err == nil {
		return nil
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewGatewayTimeoutError(constants.ErrMsgGatewayTimeout)
	case errors.Is(err, context.Canceled):
		return NewServiceUnavailableError(constants.ErrMsgServiceUnavailable)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return NewInternalServerError(constants.ErrMsgInternalServer)
	}

	switch appErr.Type() {
	case apperrors.InvalidInput:
		return NewBadRequestError(messageOf(err, constants.ErrMsgBadRequest))
	case apperrors.NotFound:
		return NewNotFoundError(messageOf(err, constants.ErrMsgNotFound))
	case apperrors.Conflict:
		return NewConflictError(messageOf(err, constants.ErrMsgConflict))
	case apperrors.Timeout:
		return NewGatewayTimeoutError(constants.ErrMsgGatewayTimeout)
	case apperrors.Unavailable:
		return NewServiceUnavailableError(constants.ErrMsgServiceUnavailable)
	case apperrors.ExecutionFailed, apperrors.ParsingFailed, apperrors.Forbidden:
		return NewBadGatewayError(constants.ErrMsgBadGateway)
	default:
		return NewInternalServerError(constants.ErrMsgInternalServer)
	}
}

// messageOf 에러 체인에 있는 AppError들의 메시지를 바깥쪽부터 ": "로 이어 붙입니다.
// 분류 접두사([NotFound] 등)와 외부 라이브러리 에러 문자열은 포함하지 않으며, 메시지가 하나도 없으면 fallback을 사용합니다.
func messageOf(err error, fallback string) string {
	var parts []string
	for err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Message() != "" {
			parts = append(parts, appErr.Message())
		}
		err = errors.Unwrap(err)
	}

	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ": ")
}
