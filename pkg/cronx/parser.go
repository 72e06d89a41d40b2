// Package cronx robfig/cron 기반 스케줄 표현식 처리를 애플리케이션 표준 형식으로 통일합니다.
package cronx

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// StandardParser 초 단위를 포함하는 6필드 표현식과 Descriptor(@every, @daily 등)를 해석하는 파서를 반환합니다.
//
//	"0 */5 * * * *"  매 5분 0초
//	"@every 10m"     10분 간격
func StandardParser() cron.Parser {
	return cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// Validate spec이 StandardParser로 해석 가능한지 검사합니다.
func Validate(spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return fmt.Errorf("Cron 표현식이 비어 있습니다")
	}

	if _, err := StandardParser().Parse(spec); err != nil {
		return fmt.Errorf("Cron 표현식 파싱 실패(%q): %w", spec, err)
	}

	return nil
}
