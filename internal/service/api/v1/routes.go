// Package v1 /api/v1 경로 하위의 동기화 API 라우트를 정의합니다.
//
// 주요 엔드포인트:
//   - POST   /api/v1/search                - 검색어로 새 작업 시작
//   - POST   /api/v1/more                  - 노출 항목 수 늘리기
//   - GET    /api/v1/state                 - 현재 상태 조회
//   - GET    /api/v1/items/:key            - 항목 하나의 상태 조회
//   - POST   /api/v1/items/:key/details    - 항목 상세 정보 요청
//   - POST   /api/v1/items/:key/retry      - 실패한 항목 재시도
//   - DELETE /api/v1/cache                 - 검색 결과 캐시 삭제
package v1

import (
	"github.com/darkkaiser/domain-sync/internal/service/api/v1/handler"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes Echo 인스턴스에 v1 API 라우트를 등록합니다.
func RegisterRoutes(e *echo.Echo, h *handler.Handler) {
	g := e.Group("/api/v1")

	g.POST("/search", h.SearchHandler)
	g.POST("/more", h.MoreHandler)
	g.GET("/state", h.StateHandler)

	g.GET("/items/:key", h.ItemHandler)
	g.POST("/items/:key/details", h.DetailsHandler)
	g.POST("/items/:key/retry", h.RetryHandler)

	g.DELETE("/cache", h.ClearCacheHandler)
}
