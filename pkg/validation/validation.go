// Package validation 설정 값 검증에 사용하는 순수 함수들을 제공합니다.
package validation

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// ValidatePort 포트 번호가 1-65535 범위인지 검사합니다.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("포트 번호는 1에서 65535 사이여야 합니다 (port=%d)", port)
	}
	return nil
}

// ValidateEndpoint raw가 허용된 스키마를 사용하는 절대 URL인지 검사합니다.
//
// 경로는 허용하지만 쿼리, 프래그먼트, 사용자 자격 증명(UserInfo)은 허용하지 않습니다.
func ValidateEndpoint(raw string, schemes ...string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("엔드포인트 URL은 비어있을 수 없습니다")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("엔드포인트 URL 파싱 실패 (input=%q): %w", trimmed, err)
	}

	if !slices.Contains(schemes, u.Scheme) {
		return fmt.Errorf("지원하지 않는 스키마입니다: %q (허용: %s)", u.Scheme, strings.Join(schemes, ", "))
	}
	if u.Hostname() == "" {
		return fmt.Errorf("호스트(Host) 정보가 누락되었습니다 (input=%q)", trimmed)
	}
	if u.User != nil {
		return fmt.Errorf("사용자 자격 증명(UserInfo)을 포함할 수 없습니다 (input=%q)", trimmed)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("쿼리 또는 프래그먼트를 포함할 수 없습니다 (input=%q)", trimmed)
	}

	if portStr := u.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("포트 번호가 유효하지 않습니다 (input=%q)", trimmed)
		}
		if err := ValidatePort(port); err != nil {
			return err
		}
	}

	return nil
}

// ValidateOrigin CORS Origin 형식(Scheme://Host[:Port])인지 검사합니다. "*"는 유효합니다.
func ValidateOrigin(origin string) error {
	trimmed := strings.TrimSpace(origin)
	if trimmed == "*" {
		return nil
	}

	if strings.HasSuffix(trimmed, "/") {
		return fmt.Errorf("CORS Origin은 '/'로 끝날 수 없습니다 (input=%q)", trimmed)
	}
	if err := ValidateEndpoint(trimmed, "http", "https"); err != nil {
		return fmt.Errorf("CORS Origin 형식 오류: %w", err)
	}

	u, _ := url.Parse(trimmed)
	if u.Path != "" {
		return fmt.Errorf("CORS Origin은 경로를 포함할 수 없습니다 (input=%q)", trimmed)
	}

	return nil
}
