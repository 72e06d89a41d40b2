package system

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/darkkaiser/domain-sync/internal/pkg/version"
	"github.com/darkkaiser/domain-sync/internal/service/api/model/system"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHealthChecker struct {
	running atomic.Bool
}

func (f *fakeHealthChecker) Running() bool { return f.running.Load() }

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("성공: 올바른 의존성으로 핸들러 생성", func(t *testing.T) {
		t.Parallel()

		checker := &fakeHealthChecker{}
		h := New(checker, version.Info{Version: "1.0.0"})

		assert.Equal(t, checker, h.healthChecker)
		assert.WithinDuration(t, time.Now(), h.serverStartTime, time.Second)
	})

	t.Run("실패: HealthChecker가 nil이면 패닉", func(t *testing.T) {
		t.Parallel()

		assert.PanicsWithValue(t, "HealthChecker는 필수입니다", func() {
			New(nil, version.Info{})
		})
	})
}

func TestHandler_HealthCheckHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		running    bool
		wantStatus string
		wantDepMsg string
	}{
		{"엔진 실행 중", true, "healthy", "정상 작동 중"},
		{"엔진 중지됨", false, "unhealthy", "동기화 엔진이 실행 중이 아님"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			checker := &fakeHealthChecker{}
			checker.running.Store(tt.running)
			h := New(checker, version.Info{})

			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

			require.NoError(t, h.HealthCheckHandler(c))
			assert.Equal(t, http.StatusOK, rec.Code)

			var resp system.HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.GreaterOrEqual(t, resp.Uptime, int64(0))
			require.Contains(t, resp.Dependencies, "sync_engine")
			assert.Equal(t, tt.wantStatus, resp.Dependencies["sync_engine"].Status)
			assert.Equal(t, tt.wantDepMsg, resp.Dependencies["sync_engine"].Message)
		})
	}
}

func TestHandler_VersionHandler(t *testing.T) {
	t.Parallel()

	t.Run("빌드 정보 반환", func(t *testing.T) {
		t.Parallel()

		h := New(&fakeHealthChecker{}, version.Info{
			Version:     "v1.2.3",
			Commit:      "f25b8bf",
			BuildDate:   "2025-12-01T14:00:00Z",
			BuildNumber: "100",
			GoVersion:   "go1.24.0",
		})

		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/version", nil), rec)

		require.NoError(t, h.VersionHandler(c))
		assert.JSONEq(t, `{
			"version": "v1.2.3",
			"commit": "f25b8bf",
			"build_date": "2025-12-01T14:00:00Z",
			"build_number": "100",
			"go_version": "go1.24.0"
		}`, rec.Body.String())
	})

	t.Run("Go 버전이 없으면 런타임 버전 사용", func(t *testing.T) {
		t.Parallel()

		h := New(&fakeHealthChecker{}, version.Info{Version: "dev"})

		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/version", nil), rec)

		require.NoError(t, h.VersionHandler(c))

		var resp system.VersionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, runtime.Version(), resp.GoVersion)
	})
}
