// Package log 애플리케이션 전역 로거를 구성하고, 컴포넌트 단위의 구조화된 로깅 헬퍼를 제공합니다.
//
// 내부적으로 logrus 표준 로거를 사용하며, 실제 출력은 Setup()에서 등록하는 Hook이 담당합니다.
package log

import "github.com/sirupsen/logrus"

// componentField 로그를 남긴 컴포넌트를 식별하는 필드명
const componentField = "component"

// StandardLogger 전역 logrus 로거를 반환합니다.
func StandardLogger() *Logger {
	return logrus.StandardLogger()
}

// WithComponent component 필드가 설정된 Entry를 반환합니다.
func WithComponent(component string) *Entry {
	return logrus.WithField(componentField, component)
}

// WithComponentAndFields component 필드와 추가 필드가 설정된 Entry를 반환합니다.
func WithComponentAndFields(component string, fields Fields) *Entry {
	merged := make(Fields, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged[componentField] = component

	return logrus.WithFields(merged)
}

// WithFields logrus.WithFields의 별칭입니다.
func WithFields(fields Fields) *Entry {
	return logrus.WithFields(fields)
}

// SetLevel 전역 로그 레벨을 변경합니다.
func SetLevel(level Level) {
	logrus.SetLevel(level)
}
