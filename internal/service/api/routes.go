package api

import (
	"github.com/darkkaiser/domain-sync/internal/service/api/handler/system"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes 버전에 속하지 않는 전역 라우트를 등록합니다.
//
//   - GET /health  - 서버와 동기화 엔진의 상태
//   - GET /version - 빌드 정보
func RegisterRoutes(e *echo.Echo, h *system.Handler) {
	e.GET("/health", h.HealthCheckHandler)
	e.GET("/version", h.VersionHandler)
}
