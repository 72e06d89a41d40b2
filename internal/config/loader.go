package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix 설정을 덮어쓰는 환경 변수의 접두사
// 예: DOMAINSYNC_SYNC__POLL_INTERVAL=5s -> sync.poll_interval
const envPrefix = "DOMAINSYNC_"

// defaults 설정 파일에 값이 없을 때 적용되는 기본값
func defaults() map[string]any {
	return map[string]any{
		"backend.base_url":        "http://127.0.0.1:8000",
		"backend.push_url":        "ws://127.0.0.1:8000/ws/tasks",
		"backend.request_timeout": "30s",
		"backend.rate_limit":      10,
		"backend.rate_burst":      20,

		"http_retry.max_retries": 3,
		"http_retry.retry_delay": "1s",
		"http_retry.max_delay":   "30s",

		"sync.fallback_delay":     "3s",
		"sync.poll_interval":      "2s",
		"sync.poll_backoff":       PollBackoffFixed,
		"sync.max_poll_interval":  "30s",
		"sync.max_poll_failures":  5,
		"sync.page_size":          6,
		"sync.detail_concurrency": 3,

		"cache.driver":       CacheDriverMemory,
		"cache.dir":          "data/cache",
		"cache.ttl":          "24h",
		"cache.cleanup_spec": "@every 10m",

		"status_api.listen_port":   8080,
		"status_api.allow_origins": []string{"*"},
	}
}

// Load 기본 설정 파일을 읽어 설정을 로드합니다.
func Load() (*AppConfig, error) {
	return LoadWithFile(DefaultFilename)
}

// LoadWithFile 기본값, 설정 파일, 환경 변수 순으로 설정을 병합한 뒤 검증합니다.
// 뒤에 로드된 값이 앞의 값을 덮어씁니다.
func LoadWithFile(filename string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "기본 설정 로드에 실패했습니다")
	}

	if err := k.Load(file.Provider(filename), json.Parser()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Wrap(err, apperrors.NotFound, fmt.Sprintf("설정 파일을 찾을 수 없습니다: '%s'", filename))
		}
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("설정 파일 로드 중 오류가 발생했습니다: '%s'", filename))
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "환경 변수 로드에 실패했습니다")
	}

	var appConfig AppConfig
	if err := k.UnmarshalWithConf("", &appConfig, koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			Result:           &appConfig,
			TagName:          "json",
		},
	}); err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, "설정 데이터를 구조체로 변환하는데 실패했습니다")
	}

	if err := checkStruct(newValidator(), &appConfig); err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("설정 파일('%s')의 유효성 검증에 실패했습니다", filename))
	}

	return &appConfig, nil
}
