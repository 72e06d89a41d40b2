// Package handler v1 API의 HTTP 요청 핸들러를 제공합니다.
//
// 요청을 바인딩하고 검증한 뒤 동기화 엔진을 호출하고, 엔진이 게시한 Snapshot을 응답으로 변환합니다.
package handler

import (
	"context"

	"github.com/darkkaiser/domain-sync/internal/service/api/constants"
	"github.com/darkkaiser/domain-sync/internal/service/contract"
	"github.com/darkkaiser/domain-sync/internal/service/engine"
	applog "github.com/darkkaiser/domain-sync/pkg/log"
	"github.com/labstack/echo/v4"
)

// SyncEngine 핸들러가 사용하는 동기화 엔진의 기능입니다.
type SyncEngine interface {
	Snapshot() *engine.Snapshot
	Search(ctx context.Context, query string) (*engine.Snapshot, error)
	RequestMore(ctx context.Context, n int) (*engine.Snapshot, error)
	Retry(ctx context.Context, key contract.ItemKey) (*contract.ResultRecord, error)
	RequestDetails(ctx context.Context, key contract.ItemKey) (*contract.ResultRecord, error)
	ClearCache(ctx context.Context) error
}

// Handler v1 API 요청을 처리합니다.
type Handler struct {
	syncEngine SyncEngine
}

// NewHandler Handler 인스턴스를 생성합니다.
func NewHandler(syncEngine SyncEngine) *Handler {
	if syncEngine == nil {
		panic(constants.PanicMsgSyncEngineRequired)
	}

	return &Handler{
		syncEngine: syncEngine,
	}
}

// log 공통 로깅 필드가 설정된 로거 엔트리를 반환합니다.
func (h *Handler) log(c echo.Context) *applog.Entry {
	return applog.WithComponentAndFields(constants.ComponentHandler, applog.Fields{
		"endpoint":   c.Path(),
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
	})
}
