package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Validate(t *testing.T) {
	t.Parallel()

	fileAsDir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(fileAsDir, []byte("x"), 0o644))

	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{"정상", Options{Name: "domain-sync"}, ""},
		{"Name 누락", Options{}, "Name"},
		{"Dir이 파일", Options{Name: "a", Dir: fileAsDir}, "파일로 존재"},
		{"MaxAge 음수", Options{Name: "a", MaxAge: -1}, "MaxAge"},
		{"MaxSizeMB 음수", Options{Name: "a", MaxSizeMB: -1}, "MaxSizeMB"},
		{"MaxBackups 음수", Options{Name: "a", MaxBackups: -1}, "MaxBackups"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetup_WritesRoutedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger := logrus.New()

	opts := NewProductionOptions("domain-sync")
	opts.Dir = dir
	opts.Level = TraceLevel

	c, err := setup(logger, opts)
	require.NoError(t, err)

	logger.WithField(componentField, "engine").Info("작업 시작")
	logger.WithField(componentField, "engine").Error("작업 실패")
	logger.WithField(componentField, "engine").Debug("상세 정보")

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "Close는 여러 번 호출해도 안전해야 합니다")

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		return string(data)
	}

	mainLog := read("domain-sync.log")
	assert.Contains(t, mainLog, "작업 시작")
	assert.Contains(t, mainLog, "작업 실패")
	assert.NotContains(t, mainLog, "상세 정보")

	assert.Contains(t, read("domain-sync.critical.log"), "작업 실패")
	assert.Contains(t, read("domain-sync.verbose.log"), "상세 정보")
}

func TestSetup_InvalidOptions(t *testing.T) {
	t.Parallel()

	_, err := setup(logrus.New(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "유효하지 않은 로그 설정")
}

func TestWithComponentAndFields(t *testing.T) {
	t.Parallel()

	entry := WithComponentAndFields("cache", Fields{"query": "finance"})

	assert.Equal(t, "cache", entry.Data[componentField])
	assert.Equal(t, "finance", entry.Data["query"])
}
