package main

import (
	"context"
	"sync"

	"github.com/darkkaiser/domain-sync/internal/config"
	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
	"github.com/darkkaiser/domain-sync/internal/pkg/version"
	"github.com/darkkaiser/domain-sync/internal/service/api"
	"github.com/darkkaiser/domain-sync/internal/service/backend"
	"github.com/darkkaiser/domain-sync/internal/service/backend/fetcher"
	"github.com/darkkaiser/domain-sync/internal/service/cache"
	"github.com/darkkaiser/domain-sync/internal/service/contract"
	"github.com/darkkaiser/domain-sync/internal/service/engine"
	"github.com/darkkaiser/domain-sync/internal/service/push"
)

// app 설정으로부터 조립된 서비스 묶음
type app struct {
	engine *engine.Engine

	// services 시작 순서대로 나열된 서비스 목록. 엔진이 API보다 먼저 시작되어야 한다.
	services []contract.Service

	// stop 시작된 서비스에 종료 신호를 보낸다. 부모 Context가 취소되어도 같은 효과가 난다.
	stop context.CancelFunc
}

// newApp 설정을 바탕으로 백엔드 클라이언트, 푸시 채널, 캐시 저장소, 동기화 엔진, API 서비스를 조립합니다.
func newApp(appConfig *config.AppConfig, buildInfo version.Info) (*app, error) {
	f := fetcher.New(fetcher.Options{
		Timeout: appConfig.Backend.RequestTimeout,

		MaxRetries:    appConfig.HTTPRetry.MaxRetries,
		MinRetryDelay: appConfig.HTTPRetry.RetryDelay,
		MaxRetryDelay: appConfig.HTTPRetry.MaxDelay,

		RateLimit: appConfig.Backend.RateLimit,
		RateBurst: appConfig.Backend.RateBurst,
	})

	client, err := backend.NewClient(appConfig.Backend.BaseURL, f)
	if err != nil {
		return nil, err
	}

	dialer, err := push.NewDialer(appConfig.Backend.PushURL, appConfig.Backend.RequestTimeout)
	if err != nil {
		return nil, err
	}

	store, purger, err := newCacheStore(appConfig.Cache)
	if err != nil {
		return nil, err
	}

	syncEngine := engine.New(client, dialer, store, engine.NewOptions(appConfig.Sync))

	return &app{
		engine: syncEngine,
		services: []contract.Service{
			syncEngine,
			cache.NewJanitor(purger, appConfig.Cache.TTL, appConfig.Cache.CleanupSpec),
			api.NewService(appConfig, syncEngine, buildInfo),
		},
	}, nil
}

// cacheStore Janitor가 정리할 수 있는 캐시 저장소
type cacheStore interface {
	contract.CacheStore
	contract.CachePurger
}

func newCacheStore(c config.CacheConfig) (contract.CacheStore, contract.CachePurger, error) {
	var store cacheStore

	switch c.Driver {
	case config.CacheDriverMemory, "":
		store = cache.NewMemoryStore()

	case config.CacheDriverFile:
		fs, err := cache.NewFileStore(c.Dir)
		if err != nil {
			return nil, nil, err
		}
		store = fs

	default:
		return nil, nil, apperrors.Newf(apperrors.InvalidInput, "지원하지 않는 캐시 드라이버입니다: '%s'", c.Driver)
	}

	return store, store, nil
}

// start 서비스를 순서대로 시작합니다.
// 하나라도 실패하면 이미 시작된 서비스를 모두 종료시킨 뒤 에러를 반환합니다.
func (a *app) start(ctx context.Context, wg *sync.WaitGroup) error {
	ctx, cancel := context.WithCancel(ctx)

	for _, s := range a.services {
		wg.Add(1)
		if err := s.Start(ctx, wg); err != nil {
			cancel()
			wg.Wait()

			return err
		}
	}

	a.stop = cancel

	return nil
}
