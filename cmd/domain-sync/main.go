package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/darkkaiser/domain-sync/internal/config"
	"github.com/darkkaiser/domain-sync/internal/pkg/version"
	applog "github.com/darkkaiser/domain-sync/pkg/log"
)

const (
	banner = `
  ____                        _          ____
 |  _ \  ___  _ __ ___   __ _(_)_ __    / ___| _   _ _ __   ___
 | | | |/ _ \| '_ ` + "`" + ` _ \ / _` + "`" + ` | | '_ \   \___ \| | | | '_ \ / __|
 | |_| | (_) | | | | | | (_| | | | | |   ___) | |_| | | | | (__
 |____/ \___/|_| |_| |_|\__,_|_|_| |_|  |____/ \__, |_| |_|\___|
                                               |___/   %s
                                                        developed by DarkKaiser
--------------------------------------------------------------------------------
`
)

func main() {
	// 1. 환경설정 로드 (로그 설정에 필요하므로 가장 먼저 수행한다)
	appConfig, err := config.Load()
	if err != nil {
		// 로거 초기화 전이므로 표준 에러에 출력
		fmt.Fprintf(os.Stderr, "[FATAL] 환경설정 로드 실패: %v\n", err)
		os.Exit(1)
	}

	// 2. 로그 시스템 초기화
	logOpts := applog.NewProductionOptions(config.AppName)
	if appConfig.Debug {
		logOpts = applog.NewDevelopmentOptions(config.AppName)
	}

	appLogCloser, err := applog.Setup(logOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] 로그 시스템 초기화 실패. 서버 구동을 중단합니다. (Cause: %v)\n", err)
		os.Exit(1)
	}
	defer appLogCloser.Close()

	buildInfo := version.Get()

	// 아스키아트 출력(https://ko.rakko.tools/tools/68/, 폰트:standard)
	fmt.Printf(banner, buildInfo.Version)

	fields := applog.Fields(buildInfo.Fields())
	fields["env"] = map[bool]string{true: "development", false: "production"}[appConfig.Debug]
	applog.WithComponentAndFields("main", fields).Info("서버 초기화 시작")

	for _, warning := range appConfig.VerifyRecommendations() {
		applog.WithComponent("main").Warn(warning)
	}

	a, err := newApp(appConfig, buildInfo)
	if err != nil {
		applog.WithComponentAndFields("main", applog.Fields{
			"error": err,
		}).Error("서비스 구성 실패")

		appLogCloser.Close()
		os.Exit(1)
	}

	// SIGINT, SIGTERM을 받으면 serviceStopCtx가 취소된다.
	serviceStopCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	serviceStopWG := &sync.WaitGroup{}

	if err := a.start(serviceStopCtx, serviceStopWG); err != nil {
		applog.WithComponentAndFields("main", applog.Fields{
			"error": err,
		}).Error("서비스 초기화 실패로 프로그램을 종료합니다")

		appLogCloser.Close()
		os.Exit(1)
	}

	applog.WithComponent("main").Info("서버 가동 완료")

	<-serviceStopCtx.Done()

	applog.WithComponent("main").Info("종료 신호를 받았습니다")
	a.stop()
	serviceStopWG.Wait()
}
