package cache

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
	"github.com/darkkaiser/domain-sync/internal/service/contract"
	"github.com/darkkaiser/domain-sync/pkg/cronx"
	applog "github.com/darkkaiser/domain-sync/pkg/log"
	"github.com/robfig/cron/v3"
)

// janitorComponent Janitor 서비스의 로깅용 컴포넌트 이름
const janitorComponent = "cache.janitor"

// purgeTimeout 한 번의 정리 작업에 허용되는 최대 시간
const purgeTimeout = 30 * time.Second

// Janitor 보존 기간(TTL)이 지난 캐시 항목을 Cron 스케줄에 맞춰 주기적으로 삭제하는 서비스입니다.
type Janitor struct {
	purger contract.CachePurger
	ttl    time.Duration
	spec   string

	now func() time.Time

	cron *cron.Cron

	running   bool
	runningMu sync.Mutex
}

// NewJanitor 새로운 Janitor 서비스를 생성합니다. ttl이 0 이하이면 정리를 수행하지 않습니다.
func NewJanitor(purger contract.CachePurger, ttl time.Duration, spec string) *Janitor {
	if purger == nil {
		panic("CachePurger는 필수입니다")
	}

	return &Janitor{
		purger: purger,
		ttl:    ttl,
		spec:   spec,

		now: time.Now,
	}
}

// Start 정리 작업을 Cron 엔진에 등록하고 서비스를 시작합니다.
//
// 매개변수:
//   - serviceStopCtx: 서비스 종료 신호를 받기 위한 Context
//   - serviceStopWG: 서비스 종료 완료를 알리기 위한 WaitGroup
func (j *Janitor) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	j.runningMu.Lock()
	defer j.runningMu.Unlock()

	if j.running {
		serviceStopWG.Done()
		applog.WithComponent(janitorComponent).Warn("Janitor 서비스가 이미 실행 중입니다 (중복 호출)")
		return nil
	}

	if j.ttl <= 0 {
		serviceStopWG.Done()
		applog.WithComponent(janitorComponent).Info("캐시 보존 기간이 설정되지 않아 Janitor 서비스를 시작하지 않습니다")
		return nil
	}

	if err := cronx.Validate(j.spec); err != nil {
		serviceStopWG.Done()
		return apperrors.Wrapf(err, apperrors.InvalidInput, "캐시 정리 스케줄이 올바르지 않습니다 (spec: %s)", j.spec)
	}

	j.cron = cron.New(
		cron.WithParser(cronx.StandardParser()),
		cron.WithLogger(cron.VerbosePrintfLogger(applog.StandardLogger())),
		cron.WithChain(
			cron.Recover(cron.VerbosePrintfLogger(applog.StandardLogger())),
			cron.SkipIfStillRunning(cron.VerbosePrintfLogger(applog.StandardLogger())),
		),
	)

	if _, err := j.cron.AddFunc(j.spec, func() {
		// cron.Stop()이 실행 중인 작업을 기다리므로 서비스 종료 컨텍스트와 분리한다.
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()

		_, _ = j.RunOnce(ctx)
	}); err != nil {
		serviceStopWG.Done()
		j.cron = nil
		return apperrors.Wrapf(err, apperrors.InvalidInput, "캐시 정리 스케줄 등록 실패 (spec: %s)", j.spec)
	}

	j.cron.Start()
	j.running = true

	applog.WithComponentAndFields(janitorComponent, applog.Fields{
		"ttl":  j.ttl.String(),
		"spec": j.spec,
	}).Info("서비스 시작 완료: Janitor 서비스가 정상적으로 초기화되었습니다")

	go func() {
		defer serviceStopWG.Done()

		<-serviceStopCtx.Done()

		j.Stop()
	}()

	return nil
}

// Stop 실행 중인 정리 작업이 끝날 때까지 기다린 뒤 서비스를 중지합니다.
func (j *Janitor) Stop() {
	j.runningMu.Lock()
	defer j.runningMu.Unlock()

	if !j.running {
		return
	}

	if j.cron != nil {
		<-j.cron.Stop().Done()
	}

	j.cron = nil
	j.running = false

	applog.WithComponent(janitorComponent).Info("Janitor 서비스 종료 완료")
}

// RunOnce 보존 기간이 지난 항목을 즉시 한 번 정리하고 삭제한 항목 수를 반환합니다.
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	olderThan := j.now().Add(-j.ttl)

	removed, err := j.purger.Purge(ctx, olderThan)
	if err != nil {
		applog.WithComponentAndFields(janitorComponent, applog.Fields{
			"older_than": olderThan,
			"removed":    removed,
			"error":      err,
		}).Error("캐시 정리 실패")

		return removed, err
	}

	if removed > 0 {
		applog.WithComponentAndFields(janitorComponent, applog.Fields{
			"older_than": olderThan,
			"removed":    removed,
		}).Info("만료된 캐시 항목을 삭제했습니다")
	}

	return removed, nil
}
