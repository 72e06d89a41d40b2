package config

import (
	"fmt"
	"reflect"
	"strings"

	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
	"github.com/darkkaiser/domain-sync/pkg/cronx"
	"github.com/darkkaiser/domain-sync/pkg/validation"
	"github.com/go-playground/validator/v10"
)

// newValidator 설정 검증용 Validator를 생성하고 커스텀 태그를 등록합니다.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// 에러 메시지에 Go 필드명 대신 설정 파일의 JSON 키를 노출합니다.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	register := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("초기화 치명적 오류: '%s' 커스텀 유효성 검사 함수 등록에 실패했습니다: %v", tag, err))
		}
	}

	register("http_endpoint", func(fl validator.FieldLevel) bool {
		return validation.ValidateEndpoint(fl.Field().String(), "http", "https") == nil
	})
	register("ws_endpoint", func(fl validator.FieldLevel) bool {
		return validation.ValidateEndpoint(fl.Field().String(), "ws", "wss") == nil
	})
	register("cors_origin", func(fl validator.FieldLevel) bool {
		return validation.ValidateOrigin(fl.Field().String()) == nil
	})
	register("cron_spec", func(fl validator.FieldLevel) bool {
		return cronx.Validate(fl.Field().String()) == nil
	})
	register("port", func(fl validator.FieldLevel) bool {
		return validation.ValidatePort(int(fl.Field().Int())) == nil
	})

	return v
}

// tagMessages 검증 태그별 사용자 안내 문구
var tagMessages = map[string]string{
	"required":      "필수 항목입니다",
	"required_if":   "현재 설정 조합에서 필수 항목입니다",
	"http_endpoint": "http(s)://host[:port][/path] 형식이어야 합니다",
	"ws_endpoint":   "ws(s)://host[:port][/path] 형식이어야 합니다",
	"cors_origin":   "Scheme://Host[:Port] 형식이거나 '*'이어야 합니다",
	"cron_spec":     "6필드 Cron 표현식 또는 @every 형식이어야 합니다 (예: @every 10m)",
	"port":          "1에서 65535 사이의 값이어야 합니다",
	"oneof":         "허용된 값 중 하나여야 합니다",
	"gt":            "0보다 커야 합니다 (기간은 '3s', '500ms' 형식)",
	"gtefield":      "비교 대상 설정값 이상이어야 합니다",
}

// checkStruct 구조체를 검증하고, 첫 번째 위반 항목을 사용자 친화적인 메시지로 변환합니다.
func checkStruct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return apperrors.Wrap(err, apperrors.InvalidInput, "설정 유효성 검증에 실패했습니다")
	}

	fieldErr := validationErrors[0]

	// "AppConfig.backend.base_url" -> "backend.base_url"
	path := fieldErr.Namespace()
	if idx := strings.Index(path, "."); idx != -1 {
		path = path[idx+1:]
	}

	if msg, exists := tagMessages[fieldErr.Tag()]; exists {
		if fieldErr.Param() != "" && fieldErr.Tag() == "oneof" {
			msg = fmt.Sprintf("%s: [%s]", msg, fieldErr.Param())
		}
		return apperrors.Newf(apperrors.InvalidInput, "설정 항목 '%s'의 값이 올바르지 않습니다: %s (입력값: '%v')", path, msg, fieldErr.Value())
	}

	return apperrors.Newf(apperrors.InvalidInput, "설정 항목 '%s'의 값이 올바르지 않습니다 (조건: %s)", path, fieldErr.Tag())
}
