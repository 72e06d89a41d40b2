// Package system 시스템 엔드포인트 핸들러를 제공합니다.
//
// 헬스체크, 버전 정보 등 동기화 작업과 무관한 시스템 수준의 API를 처리합니다.
package system

import (
	"net/http"
	"runtime"
	"time"

	"github.com/darkkaiser/domain-sync/internal/pkg/version"
	"github.com/darkkaiser/domain-sync/internal/service/api/constants"
	"github.com/darkkaiser/domain-sync/internal/service/api/model/system"
	applog "github.com/darkkaiser/domain-sync/pkg/log"
	"github.com/labstack/echo/v4"
)

// HealthChecker 헬스체크 대상 의존성의 실행 상태를 알려줍니다.
type HealthChecker interface {
	Running() bool
}

// Handler 시스템 엔드포인트 핸들러 (헬스체크, 버전 정보)
type Handler struct {
	healthChecker HealthChecker

	buildInfo version.Info

	serverStartTime time.Time
}

// New Handler 인스턴스를 생성합니다.
func New(healthChecker HealthChecker, buildInfo version.Info) *Handler {
	if healthChecker == nil {
		panic(constants.PanicMsgHealthCheckerRequired)
	}

	return &Handler{
		healthChecker: healthChecker,

		buildInfo: buildInfo,

		serverStartTime: time.Now(),
	}
}

// HealthCheckHandler 서버와 동기화 엔진의 상태를 반환합니다.
//
// 동기화 엔진이 중지된 경우에도 200을 반환하며, 본문의 status 필드로 상태를 구분합니다.
func (h *Handler) HealthCheckHandler(c echo.Context) error {
	applog.WithComponentAndFields(constants.ComponentHandler, applog.Fields{
		"endpoint":  "/health",
		"method":    c.Request().Method,
		"remote_ip": c.RealIP(),
	}).Debug(constants.LogMsgHealthCheck)

	dep := system.DependencyStatus{
		Status:  constants.HealthStatusHealthy,
		Message: constants.MsgDepStatusHealthy,
	}
	if !h.healthChecker.Running() {
		dep = system.DependencyStatus{
			Status:  constants.HealthStatusUnhealthy,
			Message: constants.MsgDepStatusStopped,
		}
	}

	return c.JSON(http.StatusOK, system.HealthResponse{
		Status: dep.Status,
		Uptime: int64(time.Since(h.serverStartTime).Seconds()),
		Dependencies: map[string]system.DependencyStatus{
			constants.DependencySyncEngine: dep,
		},
	})
}

// VersionHandler 서버의 빌드 정보를 반환합니다.
func (h *Handler) VersionHandler(c echo.Context) error {
	applog.WithComponentAndFields(constants.ComponentHandler, applog.Fields{
		"endpoint":  "/version",
		"method":    c.Request().Method,
		"remote_ip": c.RealIP(),
	}).Debug(constants.LogMsgVersionInfo)

	goVersion := h.buildInfo.GoVersion
	if goVersion == "" {
		goVersion = runtime.Version()
	}

	return c.JSON(http.StatusOK, system.VersionResponse{
		Version:     h.buildInfo.Version,
		Commit:      h.buildInfo.Commit,
		BuildDate:   h.buildInfo.BuildDate,
		BuildNumber: h.buildInfo.BuildNumber,
		GoVersion:   goVersion,
	})
}
