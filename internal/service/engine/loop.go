package engine

import (
	"context"
	"time"

	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
	"github.com/darkkaiser/domain-sync/internal/service/contract"
	applog "github.com/darkkaiser/domain-sync/pkg/log"
)

// cacheSaveTimeout 결과를 반영한 뒤 캐시에 기록할 때 허용되는 최대 시간
const cacheSaveTimeout = 5 * time.Second

// state 이벤트 루프 고루틴만 읽고 쓰는 엔진 상태입니다.
type state struct {
	// base 세션 컨텍스트의 부모. 엔진이 중지되면 취소된다.
	base context.Context

	gen   uint64
	query string
	task  *contract.Task

	items   []contract.ItemKey
	names   map[contract.ItemKey]string
	results contract.ResultMapping
	visible int

	mode          ChannelMode
	lastError     ErrorKind
	pushConnected bool
	bulkIssued    bool

	pollCancel   context.CancelFunc
	pollEpoch    uint64
	pollFailures int
	pollGaveUp   bool

	session *session
}

func (s *state) nameOf(key contract.ItemKey) string {
	if name := s.names[key]; name != "" {
		return name
	}
	return string(key)
}

func (s *state) taskActive() bool {
	return s.task != nil && !s.task.Status.IsTerminal()
}

// run 이벤트 루프. ctx가 취소되면 세션을 정리하고 종료한다.
func (e *Engine) run(ctx context.Context, inbox chan message, done chan struct{}) {
	defer close(done)
	defer drainInbox(inbox)

	s := &state{
		base:    ctx,
		results: make(contract.ResultMapping),
		mode:    ModeSettled,
	}
	defer e.closeSession(s)

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-inbox:
			if gen := msg.generation(); gen != 0 && gen != s.gen {
				applog.WithComponentAndFields(component, applog.Fields{
					"message_generation": gen,
					"generation":         s.gen,
				}).Debug("이전 작업의 메시지를 폐기합니다")

				rejectStale(msg)
				continue
			}

			// 응답은 새 Snapshot을 게시한 뒤에 보내야 호출자가 변경된 상태를 읽는다.
			respond := e.handle(s, msg)
			e.publish(s)
			if respond != nil {
				respond()
			}
		}
	}
}

// drainInbox 루프가 끝난 뒤 남은 메시지를 비운다.
// 이 뒤에 도착한 메시지는 버려진 수신함에 남으며, 다음 Start는 새 수신함을 만든다.
func drainInbox(inbox chan message) {
	for {
		select {
		case msg := <-inbox:
			rejectStale(msg)
		default:
			return
		}
	}
}

// rejectStale 응답을 기다리는 호출자가 있는 폐기 메시지에 ErrTaskSuperseded를 돌려준다.
func rejectStale(msg message) {
	switch m := msg.(type) {
	case evUpsert:
		m.reply <- ErrTaskSuperseded
	case evPushEvent:
		if m.reply != nil {
			m.reply <- ErrTaskSuperseded
		}
	case evPullStatus:
		if m.reply != nil {
			m.reply <- ErrTaskSuperseded
		}
	}
}

func (e *Engine) handle(s *state, msg message) func() {
	switch m := msg.(type) {
	case cmdInstall:
		result := e.installState(s, m)
		return func() { m.reply <- result }

	case cmdWiden:
		result := e.widen(s, m.n)
		return func() { m.reply <- result }

	case evPushConnected:
		e.onPushConnected(s)

	case evPushEvent:
		err := e.onPushEvent(s, m.event)
		if m.reply != nil {
			return func() { m.reply <- err }
		}

	case evPushClosed:
		e.onPushLost(s, m.err)

	case evFallbackTimeout:
		e.onFallbackTimeout(s)

	case evPullStatus:
		err := e.onPullStatus(s, m)
		if m.reply != nil {
			return func() { m.reply <- err }
		}

	case evBulkResult:
		e.onBulkResult(s, m)

	case evUpsert:
		s.results[m.key] = bindRecord(m.key, s.nameOf(m.key), m.record)
		e.saveCache(s)
		return func() { m.reply <- nil }
	}

	return nil
}

func (e *Engine) installState(s *state, c cmdInstall) installResult {
	e.closeSession(s)

	s.gen++
	s.query = c.query
	s.items = c.items
	s.names = c.names
	s.results = c.results
	if s.results == nil {
		s.results = make(contract.ResultMapping)
	}
	s.visible = min(e.opts.PageSize, len(s.items))

	s.lastError = ErrorNone
	s.pushConnected = false
	s.bulkIssued = false
	s.pollFailures = 0
	s.pollGaveUp = false

	missing := missingKeys(s.items, s.results)

	switch {
	case c.taskID.IsEmpty():
		s.task = nil
		s.mode = ModeSettled

	case c.restored && len(missing) == 0:
		n := len(s.items)
		s.task = &contract.Task{ID: c.taskID, Status: contract.TaskStatusCompleted, TotalItems: &n, ProcessedItems: n}
		s.mode = ModeSettled

	default:
		s.task = &contract.Task{ID: c.taskID, Status: contract.TaskStatusPending}
		if c.total != nil {
			total := *c.total
			s.task.TotalItems = &total
		}
		s.mode = ModeUnconnected
		e.openSession(s)
	}

	if !c.restored {
		e.saveCache(s)
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"generation": s.gen,
		"query":      s.query,
		"task_id":    c.taskID,
		"items":      len(s.items),
		"results":    len(s.results),
		"restored":   c.restored,
		"mode":       s.mode,
	}).Info("새 작업 상태를 설치했습니다")

	result := installResult{gen: s.gen}
	if s.task == nil {
		result.preload = missingKeys(s.items[:s.visible], s.results)
	}

	return result
}

func (e *Engine) widen(s *state, n int) widenResult {
	if len(s.items) == 0 {
		return widenResult{err: ErrNoItems}
	}

	old := s.visible
	s.visible = min(len(s.items), s.visible+n)

	result := widenResult{gen: s.gen}
	if s.task == nil {
		result.preload = missingKeys(s.items[old:s.visible], s.results)
	}

	return result
}

func (e *Engine) openSession(s *state) {
	sess := newSession(s.base, s.gen)
	s.session = sess

	gen, taskID := s.gen, s.task.ID

	sess.spawn(func() { e.runPush(sess.ctx, gen, taskID) })
	sess.spawn(func() { e.runFallbackTimer(sess.ctx, gen, e.opts.FallbackDelay) })
}

func (e *Engine) closeSession(s *state) {
	e.stopPolling(s)

	if s.session != nil {
		s.session.close()
		s.session = nil
	}
}

func (e *Engine) startPolling(s *state) {
	if s.session == nil || s.pollCancel != nil || !s.taskActive() {
		return
	}

	ctx, cancel := context.WithCancel(s.session.ctx)
	s.pollCancel = cancel
	s.pollEpoch++
	s.mode = ModePullActive

	gen, epoch, taskID := s.gen, s.pollEpoch, s.task.ID
	s.session.spawn(func() { e.runPoller(ctx, gen, epoch, taskID) })

	applog.WithComponentAndFields(component, applog.Fields{
		"task_id": taskID,
		"epoch":   epoch,
	}).Info("상태 폴링을 시작합니다")
}

// stopPolling 폴러를 멈춥니다. 이미 전송 중이던 폴링 결과는 epoch가 달라져 버려진다.
func (e *Engine) stopPolling(s *state) {
	if s.pollCancel == nil {
		return
	}

	s.pollCancel()
	s.pollCancel = nil
	s.pollEpoch++
}

func (e *Engine) startBulkFetch(s *state) {
	if s.bulkIssued {
		s.mode = ModeSettled
		return
	}
	s.bulkIssued = true

	if s.session == nil {
		s.mode = ModeSettled
		return
	}

	gen, taskID := s.gen, s.task.ID
	sess := s.session
	sess.spawn(func() { e.runBulkFetch(sess.ctx, gen, taskID) })

	applog.WithComponentAndFields(component, applog.Fields{
		"task_id": taskID,
		"missing": len(missingKeys(s.items, s.results)),
	}).Info("전체 결과 일괄 조회를 요청합니다")
}

func (e *Engine) onPushConnected(s *state) {
	s.pushConnected = true

	if s.mode == ModeUnconnected {
		s.mode = ModePushActive
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"task_id": s.task.ID,
		"mode":    s.mode,
	}).Debug("푸시 채널이 연결되었습니다")
}

func (e *Engine) onFallbackTimeout(s *state) {
	if s.mode != ModeUnconnected || !s.taskActive() {
		return
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"task_id": s.task.ID,
		"delay":   e.opts.FallbackDelay.String(),
	}).Warn("푸시 채널 연결 대기 시간이 초과되어 상태 폴링으로 전환합니다")

	e.startPolling(s)
}

// onPushLost 푸시 채널이 끊긴 경우. 작업을 실패로 만들지 않고 폴링으로 전환한다.
func (e *Engine) onPushLost(s *state, err error) {
	s.pushConnected = false

	if !s.taskActive() || s.mode == ModeSettled {
		return
	}

	s.lastError = ErrorConnectionLost
	s.mode = ModeUnconnected

	applog.WithComponentAndFields(component, applog.Fields{
		"task_id":    s.task.ID,
		"error_kind": s.lastError,
		"error":      err,
	}).Warn("푸시 채널이 끊겨 상태 폴링으로 전환합니다")

	if s.pollCancel != nil {
		s.mode = ModePullActive
		return
	}
	e.startPolling(s)
}

func (e *Engine) onPushEvent(s *state, event contract.PushEvent) error {
	switch event.Type {
	case contract.PushDomainUpdate:
		key, err := e.ingestRecord(s, event.DomainName, event.Record)
		if err != nil {
			return err
		}
		e.saveCache(s)

		applog.WithComponentAndFields(component, applog.Fields{
			"key":     key,
			"results": len(s.results),
		}).Debug("푸시 채널로 결과를 받았습니다")

	case contract.PushProgressUpdate:
		if event.Processed < 0 || event.Total < 0 || event.Processed > event.Total {
			return e.dropMalformed(s, contract.NewErrMalformedEvent("진행 상황 값이 올바르지 않습니다"), event.Type)
		}
		if !s.taskActive() {
			return nil
		}

		total := event.Total
		s.task.ProcessedItems = event.Processed
		s.task.TotalItems = &total
		if s.task.Status == contract.TaskStatusPending {
			s.task.Status = contract.TaskStatusProcessing
		}

	case contract.PushCompleted:
		if !s.taskActive() {
			return nil
		}

		s.task.Status = contract.TaskStatusCompleted
		e.stopPolling(s)

		if len(missingKeys(s.items, s.results)) > 0 {
			e.startBulkFetch(s)
		} else {
			s.mode = ModeSettled
		}

	case contract.PushError:
		e.onPushLost(s, apperrors.New(apperrors.Unavailable, event.Message))

	default:
		return e.dropMalformed(s, contract.NewErrMalformedEvent("알 수 없는 이벤트 종류입니다: "+string(event.Type)), event.Type)
	}

	return nil
}

func (e *Engine) onPullStatus(s *state, ev evPullStatus) error {
	if ev.epoch != 0 && ev.epoch != s.pollEpoch {
		return nil
	}
	if s.task == nil {
		return nil
	}

	if ev.err != nil {
		s.lastError = ErrorPollFailed
		s.pollFailures++

		fields := applog.Fields{
			"task_id":  s.task.ID,
			"failures": s.pollFailures,
			"error":    ev.err,
		}

		if e.opts.MaxPollFailures > 0 && s.pollFailures >= e.opts.MaxPollFailures {
			s.pollGaveUp = true
			e.stopPolling(s)
			s.mode = ModeSettled

			// 더 이상 상태를 받을 채널이 없으므로 결과가 없는 항목은 실패로 확정한다.
			if s.taskActive() {
				s.task.Status = contract.TaskStatusFailed
			}

			applog.WithComponentAndFields(component, fields).Error("상태 폴링 실패 허용 횟수를 초과하여 폴링을 중단합니다")
			return nil
		}

		applog.WithComponentAndFields(component, fields).Warn("상태 폴링에 실패했습니다. 다음 주기에 다시 시도합니다")
		return nil
	}

	report := ev.report
	if report == nil {
		return apperrors.New(apperrors.InvalidInput, "상태 보고가 비어 있습니다")
	}
	status, err := contract.ParseTaskStatus(string(report.Status))
	if err != nil {
		return e.dropMalformed(s, err, "status")
	}
	if report.ProcessedItems < 0 || (report.TotalItems != nil && *report.TotalItems < 0) {
		return e.dropMalformed(s, contract.NewErrMalformedEvent("진행 상황 값이 올바르지 않습니다"), "status")
	}

	s.pollFailures = 0
	if s.lastError == ErrorPollFailed {
		s.lastError = ErrorNone
	}

	if !s.taskActive() {
		return nil
	}

	s.task.Status = status
	s.task.ProcessedItems = report.ProcessedItems
	if report.TotalItems != nil {
		total := *report.TotalItems
		s.task.TotalItems = &total
	}

	switch status {
	case contract.TaskStatusCompleted:
		e.stopPolling(s)
		e.startBulkFetch(s)

	case contract.TaskStatusFailed:
		s.lastError = ErrorBackgroundGenerationFailed
		e.stopPolling(s)
		s.mode = ModeSettled

		applog.WithComponentAndFields(component, applog.Fields{
			"task_id": s.task.ID,
		}).Error("백엔드가 작업 실패를 보고했습니다")
	}

	return nil
}

func (e *Engine) onBulkResult(s *state, ev evBulkResult) {
	s.mode = ModeSettled

	if ev.err != nil {
		s.lastError = ErrorPollFailed

		applog.WithComponentAndFields(component, applog.Fields{
			"task_id": s.task.ID,
			"error":   ev.err,
		}).Warn("전체 결과 일괄 조회에 실패했습니다")
		return
	}

	if ev.batch == nil {
		return
	}

	stored := 0
	for i := range ev.batch.Results {
		record := ev.batch.Results[i]
		if _, err := e.ingestRecord(s, record.DomainName, &record); err == nil {
			stored++
		}
	}
	e.saveCache(s)

	applog.WithComponentAndFields(component, applog.Fields{
		"task_id":  s.task.ID,
		"received": len(ev.batch.Results),
		"stored":   stored,
		"missing":  len(missingKeys(s.items, s.results)),
	}).Info("전체 결과 일괄 조회를 반영했습니다")
}

// ingestRecord 레코드를 검사한 뒤 결과에 반영합니다. 같은 키는 덮어쓴다.
func (e *Engine) ingestRecord(s *state, name string, record *contract.ResultRecord) (contract.ItemKey, error) {
	if record == nil {
		return "", e.dropMalformed(s, contract.NewErrMalformedEvent("레코드가 비어 있습니다"), contract.PushDomainUpdate)
	}

	key := contract.NormalizeItemKey(name)
	if key == "" {
		key = record.Key()
	}

	if record.IsFailurePlaceholder() {
		applog.WithComponentAndFields(component, applog.Fields{
			"key":         key,
			"description": record.Description,
		}).Warn("생성 실패를 알리는 레코드는 저장하지 않습니다")
		return "", newErrDetailsUnavailable(key, record.Description)
	}

	if err := record.Validate(); err != nil {
		return "", e.dropMalformed(s, contract.NewErrMalformedEvent(err.Error()), contract.PushDomainUpdate)
	}

	s.results[key] = bindRecord(key, name, record.Clone())

	return key, nil
}

// bindRecord 레코드의 도메인 이름이 key와 다른 항목을 가리키면 name으로 바로잡는다.
// 저장된 결과는 항상 자신의 키로 정규화되는 이름을 가진다.
func bindRecord(key contract.ItemKey, name string, record contract.ResultRecord) contract.ResultRecord {
	if record.Key() != key {
		record.DomainName = name
	}
	return record
}

func (e *Engine) dropMalformed(s *state, err error, kind any) error {
	fields := applog.Fields{
		"error_kind": ErrorMalformedEvent,
		"kind":       kind,
		"error":      err,
	}
	if s.task != nil {
		fields["task_id"] = s.task.ID
	}

	applog.WithComponentAndFields(component, fields).Warn("잘못된 형식의 이벤트를 무시합니다")

	return err
}

// saveCache 현재 항목 목록과 결과를 캐시에 기록합니다. 실패해도 상태에는 영향을 주지 않는다.
func (e *Engine) saveCache(s *state) {
	if s.query == "" {
		return
	}

	entry := &contract.CacheEntry{
		Query:   s.query,
		Items:   s.items,
		Names:   s.names,
		Results: s.results,
		SavedAt: e.opts.Now(),
	}
	if s.task != nil {
		entry.TaskID = s.task.ID
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheSaveTimeout)
	defer cancel()

	if err := e.store.Save(ctx, entry); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"query": s.query,
			"error": err,
		}).Warn("캐시 저장에 실패했습니다")
	}
}

func (e *Engine) publish(s *state) {
	snap := &Snapshot{
		Generation:    s.gen,
		Query:         s.query,
		Task:          s.task.Clone(),
		Items:         s.items,
		Names:         s.names,
		Results:       s.results.Clone(),
		Visible:       s.visible,
		Mode:          s.mode,
		LastError:     s.lastError,
		PushConnected: s.pushConnected,
		Polling:       s.pollCancel != nil,
		PollFailures:  s.pollFailures,
		PollGaveUp:    s.pollGaveUp,
		UpdatedAt:     e.opts.Now(),
	}

	e.snapshot.Store(snap)
}
