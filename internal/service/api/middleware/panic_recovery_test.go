package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload any
		check   func(t *testing.T, err error)
	}{
		{
			name:    "문자열 패닉",
			payload: "치명적인 오류 발생",
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.Is(err, apperrors.Internal))
				assert.Contains(t, err.Error(), "치명적인 오류 발생")
			},
		},
		{
			name:    "에러 패닉은 그대로 전달",
			payload: errors.New("연결 실패"),
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "연결 실패")
			},
		},
		{
			name:    "정수 패닉",
			payload: 12345,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "12345")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var handled error

			e := echo.New()
			e.HTTPErrorHandler = func(err error, c echo.Context) {
				handled = err
				_ = c.NoContent(http.StatusInternalServerError)
			}
			e.Use(PanicRecovery())
			e.GET("/panic", func(echo.Context) error {
				panic(tt.payload)
			})

			rec := httptest.NewRecorder()
			assert.NotPanics(t, func() {
				e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
			})

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			require.Error(t, handled)
			tt.check(t, handled)
		})
	}
}
