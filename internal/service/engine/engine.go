// Package engine 검색어 하나에 대한 도메인 생성 작업을 추적하여 결과를 모으는 동기화 엔진을 제공합니다.
//
// 결과는 푸시 채널(WebSocket)과 상태 폴링 두 경로로 들어올 수 있으며, 두 경로가 동시에 동작해도
// 하나의 이벤트 루프 고루틴이 모든 상태를 소유하므로 결과는 키 단위로 덮어쓰기만 됩니다.
//
//	Search / StartTask
//	   │
//	   ├─ 푸시 수신 ──────┐
//	   ├─ 전환 타이머 ────┤
//	   ├─ 상태 폴러 ──────┼──► 이벤트 루프 ──► Snapshot 게시 ──► Status / Snapshot
//	   ├─ 일괄 조회 ──────┤         │
//	   └─ Retry/Details ─┘         └──► 캐시 저장
//
// 새 작업이 시작되면 이전 작업의 생산자 고루틴을 모두 취소하고 종료를 기다린 뒤에 상태를 교체합니다.
// 모든 메시지에는 작업 세대가 기록되어 있어, 늦게 도착한 이전 작업의 메시지는 버려집니다.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
	"github.com/darkkaiser/domain-sync/internal/service/contract"
	applog "github.com/darkkaiser/domain-sync/pkg/log"
	"golang.org/x/sync/errgroup"
)

const component = "engine"

// inboxSize 이벤트 루프 수신함의 크기
const inboxSize = 64

// Engine 작업 동기화 엔진입니다.
type Engine struct {
	backend contract.Backend
	dialer  contract.PushDialer
	store   contract.CacheStore

	opts Options

	inbox    chan message
	snapshot atomic.Pointer[Snapshot]

	cancel context.CancelFunc
	done   chan struct{}

	running   bool
	runningMu sync.Mutex
}

// New 새로운 Engine을 생성합니다. Start를 호출하기 전에는 요청을 처리하지 않습니다.
func New(backend contract.Backend, dialer contract.PushDialer, store contract.CacheStore, opts Options) *Engine {
	if backend == nil {
		panic("Backend는 필수입니다")
	}
	if dialer == nil {
		panic("PushDialer는 필수입니다")
	}
	if store == nil {
		panic("CacheStore는 필수입니다")
	}

	e := &Engine{
		backend: backend,
		dialer:  dialer,
		store:   store,

		opts: opts.withDefaults(),
	}
	e.snapshot.Store(&Snapshot{Mode: ModeSettled, Results: contract.ResultMapping{}})

	return e
}

// Start 이벤트 루프를 시작합니다.
//
// 매개변수:
//   - serviceStopCtx: 서비스 종료 신호를 받기 위한 Context
//   - serviceStopWG: 서비스 종료 완료를 알리기 위한 WaitGroup
func (e *Engine) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	e.runningMu.Lock()
	defer e.runningMu.Unlock()

	applog.WithComponent(component).Info("동기화 엔진 시작중...")

	if e.running {
		serviceStopWG.Done()
		applog.WithComponent(component).Warn("동기화 엔진이 이미 실행 중입니다 (중복 호출)")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.inbox = make(chan message, inboxSize)
	e.done = make(chan struct{})
	e.running = true

	go e.run(ctx, e.inbox, e.done)

	go func() {
		defer serviceStopWG.Done()

		<-serviceStopCtx.Done()

		e.Stop()
	}()

	applog.WithComponentAndFields(component, applog.Fields{
		"fallback_delay":     e.opts.FallbackDelay.String(),
		"max_poll_failures":  e.opts.MaxPollFailures,
		"page_size":          e.opts.PageSize,
		"detail_concurrency": e.opts.DetailConcurrency,
	}).Info("동기화 엔진 시작됨")

	return nil
}

// Stop 진행 중인 작업의 채널을 모두 닫고 이벤트 루프를 종료합니다.
// 마지막으로 게시된 Snapshot은 계속 조회할 수 있습니다.
func (e *Engine) Stop() {
	e.runningMu.Lock()
	defer e.runningMu.Unlock()

	if !e.running {
		return
	}

	applog.WithComponent(component).Info("동기화 엔진 중지중...")

	e.cancel()
	<-e.done

	e.running = false

	applog.WithComponent(component).Info("동기화 엔진 중지됨")
}

// Running 이벤트 루프가 요청을 처리할 수 있는 상태인지 확인합니다.
func (e *Engine) Running() bool {
	e.runningMu.Lock()
	defer e.runningMu.Unlock()

	return e.running
}

// loop 실행 중인 이벤트 루프의 수신함과 종료 채널을 반환합니다.
func (e *Engine) loop() (chan<- message, <-chan struct{}, error) {
	e.runningMu.Lock()
	defer e.runningMu.Unlock()

	if !e.running {
		return nil, nil, ErrEngineNotRunning
	}
	return e.inbox, e.done, nil
}

// post 생산자 고루틴이 메시지를 보낼 때 사용합니다. ctx가 취소되면 false를 반환합니다.
// 생산자는 세션 안에서만 실행되므로 e.inbox는 실행 중인 루프의 수신함이다.
func (e *Engine) post(ctx context.Context, msg message) bool {
	select {
	case e.inbox <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// send 호출자 고루틴이 메시지를 보냅니다.
func (e *Engine) send(ctx context.Context, msg message) (<-chan struct{}, error) {
	inbox, done, err := e.loop()
	if err != nil {
		return nil, err
	}

	select {
	case inbox <- msg:
		return done, nil
	case <-done:
		return nil, ErrEngineNotRunning
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// call 메시지를 보내고 이벤트 루프의 응답을 기다립니다.
func call[T any](ctx context.Context, e *Engine, msg message, reply chan T) (T, error) {
	var zero T

	done, err := e.send(ctx, msg)
	if err != nil {
		return zero, err
	}

	select {
	case r := <-reply:
		return r, nil
	case <-done:
		return zero, ErrEngineNotRunning
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Snapshot 가장 최근에 게시된 상태를 반환합니다.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Status 항목 하나의 표시 상태를 반환합니다.
func (e *Engine) Status(key contract.ItemKey) (ItemStatus, error) {
	snap := e.Snapshot()
	if !snap.Has(key) {
		return "", ErrItemNotFound
	}
	return Project(snap, key), nil
}

// Search 검색어에 대한 작업을 시작합니다.
//
// 같은 검색어의 캐시가 있으면 백엔드에 생성을 요청하지 않고 복원하며, 아직 받지 못한 결과가 있으면
// 저장된 작업 ID로 추적을 재개합니다. 캐시가 없으면 Generate를 호출한 뒤 StartTask로 이어집니다.
// Generate가 실패하면 에러를 반환하고 현재 상태는 그대로 둡니다.
func (e *Engine) Search(ctx context.Context, query string) (*Snapshot, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if _, _, err := e.loop(); err != nil {
		return nil, err
	}

	entry, err := e.store.Load(ctx, query)
	if err == nil {
		return e.restore(ctx, entry)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if !errors.Is(err, contract.ErrCacheMiss) {
		applog.WithComponentAndFields(component, applog.Fields{
			"query": query,
			"error": err,
		}).Warn("캐시를 읽지 못해 새로 생성합니다")
	}

	result, err := e.backend.Generate(ctx, query)
	if err != nil {
		return nil, newErrGenerateFailed(err, query)
	}

	return e.StartTask(ctx, query, result.Items, result.TaskID, result.TotalItems)
}

func (e *Engine) restore(ctx context.Context, entry *contract.CacheEntry) (*Snapshot, error) {
	raws := make([]string, len(entry.Items))
	for i, key := range entry.Items {
		raws[i] = string(key)
	}

	items := contract.NormalizeItemKeys(raws)
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	results := make(contract.ResultMapping, len(entry.Results))
	for key, record := range entry.Results {
		if record.Validate() != nil || record.IsFailurePlaceholder() {
			continue
		}
		results[contract.NormalizeItemKey(string(key))] = record.Clone()
	}

	names := make(map[contract.ItemKey]string, len(items))
	for _, key := range items {
		if name := entry.Names[key]; name != "" {
			names[key] = name
		}
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"query":   entry.Query,
		"task_id": entry.TaskID,
		"items":   len(items),
		"results": len(results),
	}).Info("캐시에서 작업을 복원합니다")

	return e.install(ctx, cmdInstall{
		query:    entry.Query,
		items:    items,
		names:    names,
		taskID:   entry.TaskID,
		results:  results,
		restored: true,
	})
}

// StartTask 현재 상태를 버리고 새 작업을 시작합니다.
//
// items는 백엔드가 생성한 원시 도메인 이름이며 정규화된 키로 저장됩니다.
// taskID가 있으면 푸시 채널을 열고 전환 타이머를 설정합니다. 없으면 처음 노출되는 항목의 상세 정보를
// GenerateOne으로 미리 불러온 뒤 반환합니다.
func (e *Engine) StartTask(ctx context.Context, query string, items []string, taskID contract.TaskID, totalItems *int) (*Snapshot, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	keys := contract.NormalizeItemKeys(items)
	if len(keys) == 0 {
		return nil, ErrNoItems
	}

	names := make(map[contract.ItemKey]string, len(keys))
	for _, raw := range items {
		key := contract.NormalizeItemKey(raw)
		if _, ok := names[key]; !ok && key != "" {
			names[key] = strings.TrimSpace(raw)
		}
	}

	return e.install(ctx, cmdInstall{
		query:  query,
		items:  keys,
		names:  names,
		taskID: taskID,
		total:  totalItems,
	})
}

func (e *Engine) install(ctx context.Context, cmd cmdInstall) (*Snapshot, error) {
	reply := make(chan installResult, 1)
	cmd.reply = reply

	result, err := call(ctx, e, cmd, reply)
	if err != nil {
		return nil, err
	}

	if len(result.preload) > 0 {
		e.preload(ctx, result.gen, result.preload)
	}

	return e.Snapshot(), nil
}

// RequestMore 노출 항목 수를 n만큼 늘립니다. n이 0 이하이면 PageSize만큼 늘립니다.
// 동기 전용 모드에서는 새로 노출된 항목 중 결과가 없는 항목의 상세 정보를 미리 불러옵니다.
func (e *Engine) RequestMore(ctx context.Context, n int) (*Snapshot, error) {
	if n <= 0 {
		n = e.opts.PageSize
	}

	reply := make(chan widenResult, 1)
	result, err := call(ctx, e, cmdWiden{n: n, reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	if result.err != nil {
		return nil, result.err
	}

	if len(result.preload) > 0 {
		e.preload(ctx, result.gen, result.preload)
	}

	return e.Snapshot(), nil
}

// preload 항목들의 상세 정보를 DetailConcurrency개씩 동시에 요청합니다.
// 개별 항목의 실패는 기록만 하며, 그 항목은 Pending으로 남습니다.
func (e *Engine) preload(ctx context.Context, gen uint64, keys []contract.ItemKey) {
	snap := e.Snapshot()
	if snap.Generation != gen {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.DetailConcurrency)

	for _, key := range keys {
		g.Go(func() error {
			record, err := e.fetchDetails(gctx, snap.Query, key, snap.NameOf(key))
			if err != nil {
				if gctx.Err() == nil {
					applog.WithComponentAndFields(component, applog.Fields{
						"key":   key,
						"error": err,
					}).Warn("상세 정보를 미리 불러오지 못했습니다")
				}
				return nil
			}

			return e.upsert(gctx, gen, key, record)
		})
	}

	if err := g.Wait(); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"generation": gen,
			"error":      err,
		}).Debug("상세 정보 미리 불러오기를 중단합니다")
	}
}

// Retry 실패 상태인 항목의 상세 정보를 다시 요청하여 반영합니다. 작업 전체의 상태는 바꾸지 않습니다.
func (e *Engine) Retry(ctx context.Context, key contract.ItemKey) (*contract.ResultRecord, error) {
	if _, _, err := e.loop(); err != nil {
		return nil, err
	}

	snap := e.Snapshot()
	if !snap.Has(key) {
		return nil, ErrItemNotFound
	}
	if status := Project(snap, key); status != ItemFailed {
		return nil, apperrors.Wrapf(ErrRetryNotApplicable, apperrors.Conflict, "'%s'의 현재 상태: %s", key, status)
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"key":   key,
		"query": snap.Query,
	}).Info("실패한 항목의 상세 정보를 다시 요청합니다")

	return e.requestAndUpsert(ctx, snap, key)
}

// RequestDetails 항목의 상세 정보를 반환합니다. 아직 결과가 없으면 GenerateOne으로 생성하여 반영합니다.
func (e *Engine) RequestDetails(ctx context.Context, key contract.ItemKey) (*contract.ResultRecord, error) {
	if _, _, err := e.loop(); err != nil {
		return nil, err
	}

	snap := e.Snapshot()
	if !snap.Has(key) {
		return nil, ErrItemNotFound
	}
	if record, ok := snap.Results[key]; ok {
		c := record.Clone()
		return &c, nil
	}

	return e.requestAndUpsert(ctx, snap, key)
}

func (e *Engine) requestAndUpsert(ctx context.Context, snap *Snapshot, key contract.ItemKey) (*contract.ResultRecord, error) {
	record, err := e.fetchDetails(ctx, snap.Query, key, snap.NameOf(key))
	if err != nil {
		return nil, err
	}

	if err := e.upsert(ctx, snap.Generation, key, record); err != nil {
		return nil, err
	}

	c := record.Clone()
	return &c, nil
}

// fetchDetails GenerateOne을 호출하고 저장할 수 있는 레코드인지 검사합니다.
func (e *Engine) fetchDetails(ctx context.Context, query string, key contract.ItemKey, name string) (contract.ResultRecord, error) {
	record, err := e.backend.GenerateOne(ctx, query, name)
	if err != nil {
		return contract.ResultRecord{}, apperrors.Wrapf(err, apperrors.UnderlyingType(err), "'%s'의 상세 정보 요청 실패", key)
	}
	if record == nil {
		return contract.ResultRecord{}, newErrDetailsUnavailable(key, "응답이 비어 있습니다")
	}
	if record.IsFailurePlaceholder() {
		return contract.ResultRecord{}, newErrDetailsUnavailable(key, record.Description)
	}
	if err := record.Validate(); err != nil {
		return contract.ResultRecord{}, newErrDetailsUnavailable(key, err.Error())
	}

	return record.Clone(), nil
}

// upsert 동기 요청으로 받은 레코드를 gen 세대의 결과에 반영합니다.
// 그 사이 새 작업이 시작되었으면 ErrTaskSuperseded를 반환합니다.
func (e *Engine) upsert(ctx context.Context, gen uint64, key contract.ItemKey, record contract.ResultRecord) error {
	reply := make(chan error, 1)

	upsertErr, err := call(ctx, e, evUpsert{tag: tag{gen}, key: key, record: record, reply: reply}, reply)
	if err != nil {
		return err
	}
	return upsertErr
}

// IngestPushEvent 푸시 이벤트 하나를 현재 작업에 반영합니다.
// 형식이 잘못된 이벤트는 반영하지 않고 contract.ErrMalformedEvent로 감싼 에러를 반환합니다.
func (e *Engine) IngestPushEvent(ctx context.Context, event contract.PushEvent) error {
	reply := make(chan error, 1)

	ingestErr, err := call(ctx, e, evPushEvent{event: event, reply: reply}, reply)
	if err != nil {
		return err
	}
	return ingestErr
}

// IngestPullStatus 폴링으로 얻은 작업 상태를 현재 작업에 반영합니다.
func (e *Engine) IngestPullStatus(ctx context.Context, report *contract.StatusReport) error {
	reply := make(chan error, 1)

	ingestErr, err := call(ctx, e, evPullStatus{report: report, reply: reply}, reply)
	if err != nil {
		return err
	}
	return ingestErr
}

// ClearCache 저장된 캐시를 모두 삭제합니다. 진행 중인 작업에는 영향을 주지 않습니다.
func (e *Engine) ClearCache(ctx context.Context) error {
	if err := e.store.Clear(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.UnderlyingType(err), "캐시 삭제 실패")
	}

	applog.WithComponent(component).Info("캐시를 모두 삭제했습니다")

	return nil
}
