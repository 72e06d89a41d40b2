package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
	"github.com/darkkaiser/domain-sync/internal/service/cache"
	"github.com/darkkaiser/domain-sync/internal/service/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Lifecycle
// =============================================================================

func TestNew_PanicsOnNilDependency(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()

	assert.PanicsWithValue(t, "Backend는 필수입니다", func() { New(nil, newFakeDialer(), store, Options{}) })
	assert.PanicsWithValue(t, "PushDialer는 필수입니다", func() { New(newBackend(), nil, store, Options{}) })
	assert.PanicsWithValue(t, "CacheStore는 필수입니다", func() { New(newBackend(), newFakeDialer(), nil, Options{}) })
}

func TestEngine_NotRunning(t *testing.T) {
	t.Parallel()

	e := New(newBackend(), newFakeDialer(), cache.NewMemoryStore(), testOptions())
	ctx := context.Background()

	_, err := e.Search(ctx, "finance")
	assert.ErrorIs(t, err, ErrEngineNotRunning)

	_, err = e.StartTask(ctx, "finance", []string{"Alpha"}, "t1", nil)
	assert.ErrorIs(t, err, ErrEngineNotRunning)

	assert.ErrorIs(t, e.IngestPushEvent(ctx, completedEvent()), ErrEngineNotRunning)

	_, err = e.Retry(ctx, "Alpha")
	assert.ErrorIs(t, err, ErrEngineNotRunning)

	snap := e.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, ModeSettled, snap.Mode)
	assert.Zero(t, snap.Generation)
}

func TestEngine_StartStop(t *testing.T) {
	t.Parallel()

	e := New(newBackend(), newHangingDialer(), cache.NewMemoryStore(), testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}

	assert.False(t, e.Running())

	wg.Add(1)
	require.NoError(t, e.Start(ctx, wg))
	assert.True(t, e.Running())

	t.Run("중복 시작은 무시된다", func(t *testing.T) {
		wg.Add(1)
		require.NoError(t, e.Start(ctx, wg))
	})

	_, err := e.StartTask(context.Background(), "finance", []string{"Alpha"}, "t1", nil)
	require.NoError(t, err)

	cancel()
	wg.Wait()
	assert.False(t, e.Running())

	_, err = e.StartTask(context.Background(), "finance", []string{"Alpha"}, "t1", nil)
	assert.ErrorIs(t, err, ErrEngineNotRunning)
	assert.Equal(t, "finance", e.Snapshot().Query, "중지 후에도 마지막 상태는 조회할 수 있어야 합니다")
}

func TestEngine_RestartUsesFreshInbox(t *testing.T) {
	t.Parallel()

	e := New(newBackend(), newHangingDialer(), cache.NewMemoryStore(), testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1)
	require.NoError(t, e.Start(ctx, wg))

	stale := e.inbox
	cancel()
	wg.Wait()

	// 루프가 끝난 뒤 도착한 메시지가 이전 수신함에 남아 있는 경우
	reply := make(chan installResult, 1)
	stale <- cmdInstall{query: "stale", items: []contract.ItemKey{"Alpha"}, reply: reply}

	ctx2, cancel2 := context.WithCancel(context.Background())
	wg2 := &sync.WaitGroup{}
	wg2.Add(1)
	require.NoError(t, e.Start(ctx2, wg2))
	t.Cleanup(func() {
		cancel2()
		wg2.Wait()
	})

	assert.NotEqual(t, stale, e.inbox)

	_, err := e.StartTask(context.Background(), "finance", []string{"Beta"}, "t1", nil)
	require.NoError(t, err)

	snap := e.Snapshot()
	assert.Equal(t, uint64(1), snap.Generation, "이전 수신함의 메시지는 처리되지 않아야 합니다")
	assert.Equal(t, "finance", snap.Query)
	assert.Empty(t, reply)
}

// =============================================================================
// StartTask
// =============================================================================

func TestStartTask_Validation(t *testing.T) {
	t.Parallel()

	e, _ := startEngine(t, newBackend(), newHangingDialer(), testOptions())
	ctx := context.Background()

	_, err := e.StartTask(ctx, "  ", []string{"Alpha"}, "t1", nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = e.StartTask(ctx, "finance", []string{"", "  "}, "t1", nil)
	assert.ErrorIs(t, err, ErrNoItems)

	assert.Zero(t, e.Snapshot().Generation, "검증에 실패하면 상태를 바꾸지 않아야 합니다")
}

func TestStartTask_InitialState(t *testing.T) {
	t.Parallel()

	e, store := startEngine(t, newBackend(), newHangingDialer(), testOptions())

	snap, err := e.StartTask(context.Background(), "finance app", []string{"Alpha.lk", "Beta", "Alpha", "Gamma.com", "Delta"}, "t1", intPtr(4))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), snap.Generation)
	assert.Equal(t, []contract.ItemKey{"Alpha", "Beta", "Gamma", "Delta"}, snap.Items)
	assert.Equal(t, "Alpha.lk", snap.NameOf("Alpha"))
	assert.Equal(t, "Beta", snap.NameOf("Beta"))
	assert.Equal(t, 3, snap.Visible)
	assert.Equal(t, []contract.ItemKey{"Alpha", "Beta", "Gamma"}, snap.VisibleItems())

	require.NotNil(t, snap.Task)
	assert.Equal(t, contract.TaskStatusPending, snap.Task.Status)
	require.NotNil(t, snap.Task.TotalItems)
	assert.Equal(t, 4, *snap.Task.TotalItems)
	assert.Equal(t, ModeUnconnected, snap.Mode)
	assert.Equal(t, ErrorNone, snap.LastError)
	assert.Empty(t, snap.Results)

	for _, key := range snap.Items {
		assert.Equal(t, ItemPending, Project(snap, key))
	}

	entry, err := store.Load(context.Background(), "finance app")
	require.NoError(t, err, "작업을 시작하면 캐시를 새로 기록해야 합니다")
	assert.Equal(t, contract.TaskID("t1"), entry.TaskID)
	assert.Equal(t, snap.Items, entry.Items)
	assert.Empty(t, entry.Results)
}

// =============================================================================
// Push Channel
// =============================================================================

// 진행 상황 -> 결과 하나 -> 완료(한 항목 누락) 시나리오
func TestPush_Scenario(t *testing.T) {
	t.Parallel()

	backend := newBackend()
	backend.On("FetchResults", mock.Anything, contract.TaskID("t1")).
		Return(&contract.ResultBatch{Status: contract.TaskStatusCompleted, Results: []contract.ResultRecord{*record("Alpha.lk", "재무 관리 앱")}}, nil)

	dialer := newFakeDialer()
	e, store := startEngine(t, backend, dialer, testOptions())
	ctx := context.Background()

	_, err := e.StartTask(ctx, "finance app", []string{"Alpha", "Beta"}, "t1", nil)
	require.NoError(t, err)

	stream := dialer.nextStream(t)
	waitFor(t, e, func(s *Snapshot) bool { return s.Mode == ModePushActive })

	stream.push(progressUpdate(1, 2))
	waitFor(t, e, func(s *Snapshot) bool { return s.Task.ProcessedItems == 1 })

	// 진행 상황을 받은 뒤의 항목은 Pending이 아니라 Processing으로 표시한다.
	// 작업 상태가 Processing으로 바뀌므로 결과가 없는 항목에는 두 번째 표시 규칙이 적용된다.
	snap := e.Snapshot()
	assert.Equal(t, contract.TaskStatusProcessing, snap.Task.Status, "진행 상황을 받으면 Pending에서 Processing으로 바뀌어야 합니다")
	assert.Equal(t, 2, *snap.Task.TotalItems)
	assert.Equal(t, ModePushActive, snap.Mode)
	assert.Equal(t, ItemProcessing, Project(snap, "Alpha"))
	assert.Equal(t, ItemProcessing, Project(snap, "Beta"))

	stream.push(domainUpdate("Alpha.lk"))
	waitFor(t, e, func(s *Snapshot) bool { return len(s.Results) == 1 })

	status, err := e.Status("Alpha")
	require.NoError(t, err)
	assert.Equal(t, ItemCompleted, status)

	stream.push(completedEvent())
	waitFor(t, e, func(s *Snapshot) bool { return s.Mode == ModeSettled })

	snap = e.Snapshot()
	assert.Equal(t, contract.TaskStatusCompleted, snap.Task.Status)
	assert.Equal(t, ItemCompleted, Project(snap, "Alpha"))
	assert.Equal(t, ItemFailed, Project(snap, "Beta"), "완료 후에도 결과가 없는 항목은 실패로 표시되어야 합니다")
	backend.AssertNumberOfCalls(t, "FetchResults", 1)

	entry, err := store.Load(ctx, "finance app")
	require.NoError(t, err)
	assert.Contains(t, entry.Results, contract.ItemKey("Alpha"))

	require.Eventually(t, stream.isClosed, waitTimeout, waitTick, "completed 이후 푸시 채널을 닫아야 합니다")
}

func TestPush_CrossChannelConvergence(t *testing.T) {
	t.Parallel()

	bulkC := record("Gamma", "일괄 조회로 받은 설명")

	backend := newBackend()
	backend.On("FetchResults", mock.Anything, contract.TaskID("t1")).
		Return(&contract.ResultBatch{
			Status:  contract.TaskStatusCompleted,
			Results: []contract.ResultRecord{*record("Alpha", "Alpha 설명"), *record("Beta", "Beta 설명"), *bulkC},
		}, nil)

	dialer := newFakeDialer()
	e, _ := startEngine(t, backend, dialer, testOptions())

	_, err := e.StartTask(context.Background(), "finance", []string{"Alpha", "Beta", "Gamma"}, "t1", nil)
	require.NoError(t, err)

	stream := dialer.nextStream(t)
	stream.push(domainUpdate("Alpha"))
	stream.push(domainUpdate("Beta"))
	stream.push(completedEvent())

	waitFor(t, e, func(s *Snapshot) bool { return s.Mode == ModeSettled })

	snap := e.Snapshot()
	assert.Len(t, snap.Results, 3)
	assert.ElementsMatch(t, []contract.ItemKey{"Alpha", "Beta", "Gamma"}, keysOf(snap.Results))
	assert.Equal(t, bulkC.Description, snap.Results["Gamma"].Description)
	assert.Empty(t, snap.Missing())
}

func TestPush_CompletedWithoutMissingSkipsBulkFetch(t *testing.T) {
	t.Parallel()

	backend := newBackend()
	dialer := newFakeDialer()
	e, _ := startEngine(t, backend, dialer, testOptions())

	_, err := e.StartTask(context.Background(), "finance", []string{"Alpha"}, "t1", nil)
	require.NoError(t, err)

	stream := dialer.nextStream(t)
	stream.push(domainUpdate("Alpha"))
	stream.push(completedEvent())

	waitFor(t, e, func(s *Snapshot) bool { return s.Mode == ModeSettled })
	backend.AssertNotCalled(t, "FetchResults", mock.Anything, mock.Anything)
}

func TestPush_MalformedFrameDoesNotCloseStream(t *testing.T) {
	t.Parallel()

	dialer := newFakeDialer()
	e, _ := startEngine(t, newBackend(), dialer, testOptions())

	_, err := e.StartTask(context.Background(), "finance", []string{"Alpha", "Beta"}, "t1", nil)
	require.NoError(t, err)

	stream := dialer.nextStream(t)
	stream.fail(contract.NewErrMalformedEvent("type 필드가 없습니다"))
	stream.push(contract.PushEvent{Type: contract.PushDomainUpdate, TaskID: "other", DomainName: "Beta", Record: record("Beta", "다른 작업")})
	stream.push(domainUpdate("Alpha"))

	waitFor(t, e, func(s *Snapshot) bool { return len(s.Results) == 1 })

	snap := e.Snapshot()
	assert.Contains(t, snap.Results, contract.ItemKey("Alpha"))
	assert.NotContains(t, snap.Results, contract.ItemKey("Beta"), "다른 작업의 이벤트는 반영하지 않아야 합니다")
	assert.Equal(t, ModePushActive, snap.Mode)
	assert.Equal(t, ErrorNone, snap.LastError)
}

func TestPush_ErrorFallsBackToPolling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		fail  func(*fakeStream)
		setup func(*fakeDialer)
	}{
		{
			name: "error 이벤트",
			fail: func(s *fakeStream) {
				s.push(contract.PushEvent{Type: contract.PushError, Message: "worker crashed"})
			},
		},
		{
			name: "연결 끊김",
			fail: func(s *fakeStream) { s.fail(errors.New("connection reset by peer")) },
		},
		{
			name:  "핸드셰이크 실패",
			setup: func(d *fakeDialer) { d.err = errors.New("dial tcp: connection refused") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			backend := newBackend()
			backend.On("PollStatus", mock.Anything, contract.TaskID("t1")).
				Return(&contract.StatusReport{Status: contract.TaskStatusProcessing, ProcessedItems: 0, TotalItems: intPtr(2)}, nil)

			dialer := newFakeDialer()
			if tt.setup != nil {
				tt.setup(dialer)
			}

			e, _ := startEngine(t, backend, dialer, testOptions())

			_, err := e.StartTask(context.Background(), "finance", []string{"Alpha", "Beta"}, "t1", nil)
			require.NoError(t, err)

			if tt.fail != nil {
				tt.fail(dialer.nextStream(t))
			}

			waitFor(t, e, func(s *Snapshot) bool { return s.Mode == ModePullActive && s.Polling })

			snap := e.Snapshot()
			assert.Equal(t, ErrorConnectionLost, snap.LastError)
			assert.False(t, snap.PushConnected)
			assert.NotEqual(t, contract.TaskStatusFailed, snap.Task.Status, "연결이 끊겨도 작업을 실패로 만들지 않아야 합니다")
			assert.NotEqual(t, ItemFailed, Project(snap, "Alpha"))

			waitFor(t, e, func(s *Snapshot) bool {
				return s.Task.Status == contract.TaskStatusProcessing
			}, "전환 지연 없이 즉시 폴링해야 합니다")
			backend.AssertCalled(t, "PollStatus", mock.Anything, contract.TaskID("t1"))
		})
	}
}

// =============================================================================
// Fallback Arbitration & Pull Channel
// =============================================================================

func TestFallback_PollsWhenPushNeverConnects(t *testing.T) {
	t.Parallel()

	backend := newBackend()
	backend.On("PollStatus", mock.Anything, contract.TaskID("t1")).
		Return(&contract.StatusReport{Status: contract.TaskStatusProcessing, ProcessedItems: 1, TotalItems: intPtr(2)}, nil).Once()
	backend.On("PollStatus", mock.Anything, contract.TaskID("t1")).
		Return(&contract.StatusReport{Status: contract.TaskStatusCompleted, ProcessedItems: 2, TotalItems: intPtr(2)}, nil)
	backend.On("FetchResults", mock.Anything, contract.TaskID("t1")).
		Return(&contract.ResultBatch{
			Status:  contract.TaskStatusCompleted,
			Results: []contract.ResultRecord{*record("Alpha.lk", "Alpha 설명"), *record("Beta.lk", "Beta 설명")},
		}, nil)

	opts := testOptions()
	opts.FallbackDelay = 20 * time.Millisecond

	e, _ := startEngine(t, backend, newHangingDialer(), opts)

	started := time.Now()
	_, err := e.StartTask(context.Background(), "finance", []string{"Alpha", "Beta"}, "t1", nil)
	require.NoError(t, err)

	waitFor(t, e, func(s *Snapshot) bool { return s.Mode == ModePullActive || s.Mode == ModeSettled })
	assert.GreaterOrEqual(t, time.Since(started), opts.FallbackDelay)

	waitFor(t, e, func(s *Snapshot) bool { return s.Mode == ModeSettled })

	snap := e.Snapshot()
	assert.Equal(t, contract.TaskStatusCompleted, snap.Task.Status)
	assert.False(t, snap.Polling)
	assert.Equal(t, ItemCompleted, Project(snap, "Alpha"))
	assert.Equal(t, ItemCompleted, Project(snap, "Beta"))
	backend.AssertCalled(t, "PollStatus", mock.Anything, contract.TaskID("t1"))
	backend.AssertNumberOfCalls(t, "FetchResults", 1)
}

func TestFallback_LatePushConnectKeepsPolling(t *testing.T) {
	t.Parallel()

	backend := newBackend()
	backend.On("PollStatus", mock.Anything, contract.TaskID("t1")).
		Return(&contract.StatusReport{Status: contract.TaskStatusProcessing}, nil)
	backend.On("FetchResults", mock.Anything, contract.TaskID("t1")).
		Return(&contract.ResultBatch{Status: contract.TaskStatusCompleted}, nil)

	opts := testOptions()
	opts.FallbackDelay = 10 * time.Millisecond

	dialer := newHangingDialer()
	e, _ := startEngine(t, backend, dialer, opts)

	_, err := e.StartTask(context.Background(), "finance", []string{"Alpha", "Beta"}, "t1", nil)
	require.NoError(t, err)

	waitFor(t, e, func(s *Snapshot) bool { return s.Mode == ModePullActive })

	close(dialer.hold)
	stream := dialer.nextStream(t)
	waitFor(t, e, func(s *Snapshot) bool { return s.PushConnected })

	snap := e.Snapshot()
	assert.Equal(t, ModePullActive, snap.Mode, "폴링 중에 늦게 연결된 푸시 채널은 모드를 바꾸지 않아야 합니다")
	assert.True(t, snap.Polling)

	stream.push(domainUpdate("Alpha"))
	waitFor(t, e, func(s *Snapshot) bool { return len(s.Results) == 1 })

	stream.push(completedEvent())
	waitFor(t, e, func(s *Snapshot) bool { return !s.Polling })
}

func TestPull_FailedStatus(t *testing.T) {
	t.Parallel()

	backend := newBackend()
	backend.On("PollStatus", mock.Anything, contract.TaskID("t1")).
		Return(&contract.StatusReport{Status: contract.TaskStatusFailed, ProcessedItems: 1, TotalItems: intPtr(2)}, nil)

	dialer := newFakeDialer()
	dialer.err = errors.New("handshake rejected")

	e, _ := startEngine(t, backend, dialer, testOptions())

	_, err := e.StartTask(context.Background(), "finance", []string{"Alpha", "Beta"}, "t1", nil)
	require.NoError(t, err)

	waitFor(t, e, func(s *Snapshot) bool { return s.Mode == ModeSettled })

	snap := e.Snapshot()
	assert.Equal(t, contract.TaskStatusFailed, snap.Task.Status)
	assert.Equal(t, ErrorBackgroundGenerationFailed, snap.LastError)
	assert.False(t, snap.Polling)
	assert.Equal(t, ItemFailed, Project(snap, "Alpha"))
	assert.Equal(t, ItemFailed, Project(snap, "Beta"))
	backend.AssertNotCalled(t, "FetchResults", mock.Anything, mock.Anything)
}

func TestPull_TransientFailureRecovers(t *testing.T) {
	t.Parallel()

	backend := newBackend()
	backend.On("PollStatus", mock.Anything, contract.TaskID("t1")).
		Return(nil, apperrors.New(apperrors.Unavailable, "503")).Once()
	backend.On("PollStatus", mock.Anything, contract.TaskID("t1")).
		Return(&contract.StatusReport{Status: contract.TaskStatusProcessing, ProcessedItems: 1, TotalItems: intPtr(2)}, nil)

	dialer := newFakeDialer()
	dialer.err = errors.New("handshake rejected")

	e, _ := startEngine(t, backend, dialer, testOptions())

	_, err := e.StartTask(context.Background(), "finance", []string{"Alpha", "Beta"}, "t1", nil)
	require.NoError(t, err)

	waitFor(t, e, func(s *Snapshot) bool {
		return s.Task.Status == contract.TaskStatusProcessing && s.PollFailures == 0
	})

	snap := e.Snapshot()
	assert.NotEqual(t, ErrorPollFailed, snap.LastError)
	assert.False(t, snap.PollGaveUp)
	assert.True(t, snap.Polling)
	assert.Equal(t, ItemProcessing, Project(snap, "Alpha"))
}

func TestPull_GivesUpAfterMaxFailures(t *testing.T) {
	t.Parallel()

	backend := newBackend()
	backend.On("PollStatus", mock.Anything, contract.TaskID("t1")).
		Return(nil, apperrors.New(apperrors.Unavailable, "503"))

	dialer := newFakeDialer()
	dialer.err = errors.New("handshake rejected")

	opts := testOptions()
	opts.MaxPollFailures = 3

	e, _ := startEngine(t, backend, dialer, opts)

	_, err := e.StartTask(context.Background(), "finance", []string{"Alpha"}, "t1", nil)
	require.NoError(t, err)

	waitFor(t, e, func(s *Snapshot) bool { return s.PollGaveUp })

	snap := e.Snapshot()
	assert.Equal(t, ErrorPollFailed, snap.LastError)
	assert.Equal(t, 3, snap.PollFailures)
	assert.Equal(t, ModeSettled, snap.Mode)
	assert.False(t, snap.Polling)
	assert.Equal(t, ItemFailed, Project(snap, "Alpha"))
}

func TestPull_GivesUpWhileProcessing(t *testing.T) {
	t.Parallel()

	backend := newBackend()
	backend.On("PollStatus", mock.Anything, contract.TaskID("t1")).
		Return(&contract.StatusReport{Status: contract.TaskStatusProcessing, ProcessedItems: 1, TotalItems: intPtr(2)}, nil).Once()
	backend.On("PollStatus", mock.Anything, contract.TaskID("t1")).
		Return(nil, apperrors.New(apperrors.Unavailable, "503"))

	dialer := newFakeDialer()
	dialer.err = errors.New("handshake rejected")

	opts := testOptions()
	opts.FallbackDelay = 10 * time.Millisecond
	opts.MaxPollFailures = 3

	e, _ := startEngine(t, backend, dialer, opts)

	_, err := e.StartTask(context.Background(), "finance", []string{"Alpha", "Beta"}, "t1", nil)
	require.NoError(t, err)

	waitFor(t, e, func(s *Snapshot) bool { return s.PollGaveUp })

	snap := e.Snapshot()
	assert.Equal(t, ErrorPollFailed, snap.LastError)
	assert.Equal(t, ModeSettled, snap.Mode)
	assert.False(t, snap.Polling)
	assert.False(t, snap.PushConnected)
	assert.Equal(t, contract.TaskStatusFailed, snap.Task.Status, "폴링을 포기하면 진행 중이던 작업도 실패로 확정해야 합니다")
	assert.Equal(t, 1, snap.Task.ProcessedItems)
	assert.Equal(t, ItemFailed, Project(snap, "Alpha"))
	assert.Equal(t, ItemFailed, Project(snap, "Beta"))
}

func TestPull_BulkFetchFailure(t *testing.T) {
	t.Parallel()

	backend := newBackend()
	backend.On("FetchResults", mock.Anything, contract.TaskID("t1")).
		Return(nil, apperrors.New(apperrors.Unavailable, "502"))

	e, _ := startEngine(t, backend, newHangingDialer(), testOptions())
	ctx := context.Background()

	_, err := e.StartTask(ctx, "finance", []string{"Alpha", "Beta"}, "t1", nil)
	require.NoError(t, err)

	require.NoError(t, e.IngestPullStatus(ctx, &contract.StatusReport{Status: contract.TaskStatusCompleted, ProcessedItems: 2, TotalItems: intPtr(2)}))

	waitFor(t, e, func(s *Snapshot) bool { return s.Mode == ModeSettled })

	snap := e.Snapshot()
	assert.Equal(t, ErrorPollFailed, snap.LastError)
	assert.Equal(t, ItemFailed, Project(snap, "Alpha"), "완료된 작업에서 결과를 받지 못한 항목은 실패입니다")
}

func TestIngestPullStatus(t *testing.T) {
	t.Parallel()

	e, _ := startEngine(t, newBackend(), newHangingDialer(), testOptions())
	ctx := context.Background()

	require.NoError(t, e.IngestPullStatus(ctx, &contract.StatusReport{Status: contract.TaskStatusProcessing}), "작업이 없으면 무시합니다")

	_, err := e.StartTask(ctx, "finance", []string{"Alpha", "Beta"}, "t1", nil)
	require.NoError(t, err)

	err = e.IngestPullStatus(ctx, nil)
	assert.True(t, apperrors.Is(err, apperrors.InvalidInput))

	err = e.IngestPullStatus(ctx, &contract.StatusReport{Status: "done"})
	assert.Error(t, err)

	err = e.IngestPullStatus(ctx, &contract.StatusReport{Status: contract.TaskStatusProcessing, ProcessedItems: -1})
	assert.ErrorIs(t, err, contract.ErrMalformedEvent)

	require.NoError(t, e.IngestPullStatus(ctx, &contract.StatusReport{Status: contract.TaskStatusProcessing, ProcessedItems: 1, TotalItems: intPtr(2)}))

	snap := e.Snapshot()
	assert.Equal(t, contract.TaskStatusProcessing, snap.Task.Status)
	assert.Equal(t, 1, snap.Task.ProcessedItems)

	require.NoError(t, e.IngestPullStatus(ctx, &contract.StatusReport{Status: contract.TaskStatusFailed}))
	require.NoError(t, e.IngestPullStatus(ctx, &contract.StatusReport{Status: contract.TaskStatusProcessing}))

	snap = e.Snapshot()
	assert.Equal(t, contract.TaskStatusFailed, snap.Task.Status, "종료 상태는 되돌리지 않아야 합니다")
	assert.Equal(t, ErrorBackgroundGenerationFailed, snap.LastError)
}

func TestIngestPullStatus_NormalizesStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        contract.TaskStatus
		wantStatus    contract.TaskStatus
		wantLastError ErrorKind
		wantItem      ItemStatus
	}{
		{"대문자 실패", "FAILED", contract.TaskStatusFailed, ErrorBackgroundGenerationFailed, ItemFailed},
		{"공백과 대소문자가 섞인 진행 중", " Processing ", contract.TaskStatusProcessing, ErrorNone, ItemProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, _ := startEngine(t, newBackend(), newHangingDialer(), testOptions())
			ctx := context.Background()

			_, err := e.StartTask(ctx, "finance", []string{"Alpha"}, "t1", nil)
			require.NoError(t, err)

			require.NoError(t, e.IngestPullStatus(ctx, &contract.StatusReport{Status: tt.status}))

			snap := e.Snapshot()
			assert.Equal(t, tt.wantStatus, snap.Task.Status)
			assert.Equal(t, tt.wantLastError, snap.LastError)
			assert.Equal(t, tt.wantItem, Project(snap, "Alpha"))
			if tt.wantStatus.IsTerminal() {
				assert.False(t, snap.Polling)
				assert.Equal(t, ModeSettled, snap.Mode)
			}
		})
	}
}

// =============================================================================
// Merge Properties
// =============================================================================

func TestIngestPushEvent_IdempotentMerge(t *testing.T) {
	t.Parallel()

	e, store := startEngine(t, newBackend(), newHangingDialer(), testOptions())
	ctx := context.Background()

	_, err := e.StartTask(ctx, "finance", []string{"Alpha", "Beta"}, "t1", nil)
	require.NoError(t, err)

	event := domainUpdate("Alpha.lk")

	require.NoError(t, e.IngestPushEvent(ctx, event))
	once := e.Snapshot().Results.Clone()

	require.NoError(t, e.IngestPushEvent(ctx, event))
	twice := e.Snapshot().Results

	assert.Equal(t, once, twice)
	assert.Len(t, twice, 1)

	entry, err := store.Load(ctx, "finance")
	require.NoError(t, err)
	assert.Equal(t, twice, entry.Results)
}

func TestIngestPushEvent_OrderIndependence(t *testing.T) {
	t.Parallel()

	e, _ := startEngine(t, newBackend(), newHangingDialer(), testOptions())
	ctx := context.Background()

	items := []string{"Alpha", "Beta", "Gamma", "Delta"}
	orders := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {2, 0, 3, 1}}

	var results []contract.ResultMapping
	for _, order := range orders {
		_, err := e.StartTask(ctx, "finance", items, "t1", nil)
		require.NoError(t, err)

		for _, i := range order {
			require.NoError(t, e.IngestPushEvent(ctx, domainUpdate(items[i])))
		}
		results = append(results, e.Snapshot().Results)
	}

	for i := 1; i < len(results); i++ {
		assert.Equal(t, results[0], results[i])
	}
}

func TestIngestPushEvent_LastWriteWins(t *testing.T) {
	t.Parallel()

	e, _ := startEngine(t, newBackend(), newHangingDialer(), testOptions())
	ctx := context.Background()

	_, err := e.StartTask(ctx, "finance", []string{"Alpha"}, "t1", nil)
	require.NoError(t, err)

	require.NoError(t, e.IngestPushEvent(ctx, contract.PushEvent{Type: contract.PushDomainUpdate, DomainName: "Alpha", Record: record("Alpha", "처음")}))
	require.NoError(t, e.IngestPushEvent(ctx, contract.PushEvent{Type: contract.PushDomainUpdate, DomainName: "Alpha.lk", Record: record("Alpha.lk", "나중")}))

	snap := e.Snapshot()
	assert.Len(t, snap.Results, 1)
	assert.Equal(t, "나중", snap.Results["Alpha"].Description)
}

func TestIngestPushEvent_Rejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		event   contract.PushEvent
		wantErr error
	}{
		{
			name:    "처리 수가 전체보다 큼",
			event:   progressUpdate(3, 2),
			wantErr: contract.ErrMalformedEvent,
		},
		{
			name:    "음수 진행 상황",
			event:   progressUpdate(-1, 2),
			wantErr: contract.ErrMalformedEvent,
		},
		{
			name:    "설명이 없는 레코드",
			event:   contract.PushEvent{Type: contract.PushDomainUpdate, DomainName: "Alpha", Record: &contract.ResultRecord{DomainName: "Alpha"}},
			wantErr: contract.ErrMalformedEvent,
		},
		{
			name:    "레코드 없음",
			event:   contract.PushEvent{Type: contract.PushDomainUpdate, DomainName: "Alpha"},
			wantErr: contract.ErrMalformedEvent,
		},
		{
			name:    "알 수 없는 이벤트 종류",
			event:   contract.PushEvent{Type: "heartbeat"},
			wantErr: contract.ErrMalformedEvent,
		},
		{
			name:    "생성 실패 문구",
			event:   contract.PushEvent{Type: contract.PushDomainUpdate, DomainName: "Alpha", Record: record("Alpha", "Failed to generate description: timeout")},
			wantErr: ErrDetailsUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, _ := startEngine(t, newBackend(), newHangingDialer(), testOptions())
			ctx := context.Background()

			_, err := e.StartTask(ctx, "finance", []string{"Alpha", "Beta"}, "t1", nil)
			require.NoError(t, err)
			before := e.Snapshot()

			err = e.IngestPushEvent(ctx, tt.event)
			assert.ErrorIs(t, err, tt.wantErr)

			after := e.Snapshot()
			assert.Empty(t, after.Results)
			assert.Equal(t, before.Task, after.Task)
			assert.Equal(t, before.Mode, after.Mode)
			assert.Equal(t, ErrorNone, after.LastError, "잘못된 이벤트는 상태를 바꾸지 않아야 합니다")
		})
	}
}

func TestIngestPushEvent_TerminalTaskIgnoresProgress(t *testing.T) {
	t.Parallel()

	backend := newBackend()
	backend.On("FetchResults", mock.Anything, contract.TaskID("t1")).
		Return(&contract.ResultBatch{Status: contract.TaskStatusCompleted}, nil)

	e, _ := startEngine(t, backend, newHangingDialer(), testOptions())
	ctx := context.Background()

	_, err := e.StartTask(ctx, "finance", []string{"Alpha"}, "t1", nil)
	require.NoError(t, err)

	require.NoError(t, e.IngestPushEvent(ctx, completedEvent()))
	require.NoError(t, e.IngestPushEvent(ctx, progressUpdate(0, 1)))
	require.NoError(t, e.IngestPushEvent(ctx, completedEvent()))

	snap := e.Snapshot()
	assert.Equal(t, contract.TaskStatusCompleted, snap.Task.Status)
	assert.Equal(t, 0, snap.Task.ProcessedItems)

	waitFor(t, e, func(s *Snapshot) bool { return s.Mode == ModeSettled })
	backend.AssertNumberOfCalls(t, "FetchResults", 1)
}

// =============================================================================
// Generations
// =============================================================================

func TestStaleGenerationIsDiscarded(t *testing.T) {
	t.Parallel()

	dialer := newFakeDialer()
	e, _ := startEngine(t, newBackend(), dialer, testOptions())
	ctx := context.Background()

	_, err := e.StartTask(ctx, "finance", []string{"Alpha"}, "t1", nil)
	require.NoError(t, err)
	first := dialer.nextStream(t)

	snap, err := e.StartTask(ctx, "marketing", []string{"Alpha"}, "t2", nil)
	require.NoError(t, err)
	require.Equal(t, uint64(2), snap.Generation)

	assert.True(t, first.isClosed(), "새 작업을 설치하기 전에 이전 푸시 채널을 닫아야 합니다")
	dialer.nextStream(t)

	t.Run("이전 세대의 푸시 이벤트", func(t *testing.T) {
		require.True(t, e.post(ctx, evPushEvent{tag: tag{1}, event: domainUpdate("Alpha")}))

		// FIFO 수신함이므로 뒤이은 호출이 끝나면 앞의 메시지도 처리된 상태다.
		_, err := e.RequestMore(ctx, 1)
		require.NoError(t, err)

		assert.Empty(t, e.Snapshot().Results)
	})

	t.Run("이전 세대의 동기 결과", func(t *testing.T) {
		err := e.upsert(ctx, 1, "Alpha", *record("Alpha", "이전 작업"))
		assert.ErrorIs(t, err, ErrTaskSuperseded)
		assert.Empty(t, e.Snapshot().Results)
	})

	t.Run("이전 폴러의 상태 보고", func(t *testing.T) {
		require.True(t, e.post(ctx, evPullStatus{tag: tag{2}, epoch: 99, report: &contract.StatusReport{Status: contract.TaskStatusFailed}}))

		_, err := e.RequestMore(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, contract.TaskStatusPending, e.Snapshot().Task.Status)
	})
}

// =============================================================================
// Retry & Details
// =============================================================================

func TestRetry(t *testing.T) {
	t.Parallel()

	backend := newBackend()
	backend.On("FetchResults", mock.Anything, contract.TaskID("t1")).
		Return(&contract.ResultBatch{Status: contract.TaskStatusCompleted, Results: []contract.ResultRecord{*record("Alpha", "Alpha 설명")}}, nil)
	backend.On("GenerateOne", mock.Anything, "finance", "Beta.lk").
		Return(record("Beta.lk", "다시 생성한 설명"), nil).Once()
	backend.On("GenerateOne", mock.Anything, "finance", "Gamma").
		Return(record("Gamma", "Failed to generate description"), nil)
	backend.On("GenerateOne", mock.Anything, "finance", "Delta").
		Return(nil, apperrors.New(apperrors.Unavailable, "503"))

	e, store := startEngine(t, backend, newHangingDialer(), testOptions())
	ctx := context.Background()

	_, err := e.StartTask(ctx, "finance", []string{"Alpha", "Beta.lk", "Gamma", "Delta"}, "t1", nil)
	require.NoError(t, err)

	require.NoError(t, e.IngestPushEvent(ctx, completedEvent()))
	waitFor(t, e, func(s *Snapshot) bool { return s.Mode == ModeSettled })

	t.Run("목록에 없는 항목", func(t *testing.T) {
		_, err := e.Retry(ctx, "Omega")
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("실패 상태가 아닌 항목", func(t *testing.T) {
		_, err := e.Retry(ctx, "Alpha")
		assert.ErrorIs(t, err, ErrRetryNotApplicable)
	})

	t.Run("재시도 성공", func(t *testing.T) {
		got, err := e.Retry(ctx, "Beta")
		require.NoError(t, err)
		assert.Equal(t, "다시 생성한 설명", got.Description)

		status, err := e.Status("Beta")
		require.NoError(t, err)
		assert.Equal(t, ItemCompleted, status)
		assert.Equal(t, contract.TaskStatusCompleted, e.Snapshot().Task.Status, "재시도는 작업 상태를 바꾸지 않아야 합니다")

		entry, err := store.Load(ctx, "finance")
		require.NoError(t, err)
		assert.Contains(t, entry.Results, contract.ItemKey("Beta"))
	})

	t.Run("생성 실패 문구는 저장하지 않는다", func(t *testing.T) {
		_, err := e.Retry(ctx, "Gamma")
		assert.ErrorIs(t, err, ErrDetailsUnavailable)

		status, _ := e.Status("Gamma")
		assert.Equal(t, ItemFailed, status)
	})

	t.Run("백엔드 에러는 분류를 유지한다", func(t *testing.T) {
		_, err := e.Retry(ctx, "Delta")
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.Unavailable))
	})
}

func TestRequestDetails(t *testing.T) {
	t.Parallel()

	backend := newBackend()
	backend.On("GenerateOne", mock.Anything, "finance", "Beta").
		Return(record("Beta", "Beta 설명"), nil).Once()

	e, _ := startEngine(t, backend, newHangingDialer(), testOptions())
	ctx := context.Background()

	_, err := e.StartTask(ctx, "finance", []string{"Alpha", "Beta"}, "t1", nil)
	require.NoError(t, err)
	require.NoError(t, e.IngestPushEvent(ctx, domainUpdate("Alpha")))

	got, err := e.RequestDetails(ctx, "Alpha")
	require.NoError(t, err)
	assert.Equal(t, "Alpha 설명", got.Description)

	got, err = e.RequestDetails(ctx, "Beta")
	require.NoError(t, err)
	assert.Equal(t, "Beta 설명", got.Description)
	assert.Contains(t, e.Snapshot().Results, contract.ItemKey("Beta"))

	_, err = e.RequestDetails(ctx, "Beta")
	require.NoError(t, err, "이미 받은 결과는 다시 요청하지 않습니다")
	backend.AssertNumberOfCalls(t, "GenerateOne", 1)

	_, err = e.RequestDetails(ctx, "Omega")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

// =============================================================================
// Synchronous-only Mode
// =============================================================================

func TestSyncOnlyMode(t *testing.T) {
	t.Parallel()

	names := []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon", "Zeta", "Eta"}

	backend := newBackend()
	for _, name := range names {
		desc := name + " 설명"
		if name == "Beta" {
			desc = "Failed to generate description"
		}
		backend.On("GenerateOne", mock.Anything, "finance", name).Return(record(name, desc), nil).Once()
	}

	dialer := newFakeDialer()
	e, _ := startEngine(t, backend, dialer, testOptions())
	ctx := context.Background()

	snap, err := e.StartTask(ctx, "finance", names, "", nil)
	require.NoError(t, err)

	assert.Nil(t, snap.Task)
	assert.True(t, snap.SyncOnly())
	assert.Equal(t, contract.TaskStatusCompleted, snap.Status())
	assert.Equal(t, ModeSettled, snap.Mode)
	assert.Zero(t, dialer.dialCount(), "작업 ID가 없으면 푸시 채널을 열지 않습니다")

	assert.Equal(t, ItemCompleted, Project(snap, "Alpha"))
	assert.Equal(t, ItemPending, Project(snap, "Beta"), "생성에 실패한 항목은 대기 상태로 남습니다")
	assert.Equal(t, ItemCompleted, Project(snap, "Gamma"))
	assert.Equal(t, ItemPending, Project(snap, "Delta"), "노출되지 않은 항목은 미리 불러오지 않습니다")
	backend.AssertNumberOfCalls(t, "GenerateOne", 3)

	snap, err = e.RequestMore(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, snap.Visible)
	assert.Equal(t, ItemCompleted, Project(snap, "Delta"))
	assert.Equal(t, ItemCompleted, Project(snap, "Zeta"))
	assert.Equal(t, ItemPending, Project(snap, "Eta"))
	backend.AssertNumberOfCalls(t, "GenerateOne", 6)

	snap, err = e.RequestMore(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, len(names), snap.Visible)
	assert.Len(t, snap.Results, 6)
}

func TestRequestMore_WithoutTask(t *testing.T) {
	t.Parallel()

	e, _ := startEngine(t, newBackend(), newHangingDialer(), testOptions())

	_, err := e.RequestMore(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNoItems)
}

// =============================================================================
// Search & Cache
// =============================================================================

func TestSearch(t *testing.T) {
	t.Parallel()

	t.Run("빈 검색어", func(t *testing.T) {
		t.Parallel()

		e, _ := startEngine(t, newBackend(), newHangingDialer(), testOptions())

		_, err := e.Search(context.Background(), " ")
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("캐시 미스이면 생성 후 시작하고, 같은 검색어는 캐시에서 복원한다", func(t *testing.T) {
		t.Parallel()

		backend := newBackend()
		backend.On("Generate", mock.Anything, "finance").
			Return(&contract.GenerateResult{Items: []string{"Alpha.lk", "Beta.lk"}, TaskID: "t1", TotalItems: intPtr(2)}, nil).Once()

		dialer := newFakeDialer()
		e, _ := startEngine(t, backend, dialer, testOptions())
		ctx := context.Background()

		snap, err := e.Search(ctx, "finance")
		require.NoError(t, err)
		assert.Equal(t, []contract.ItemKey{"Alpha", "Beta"}, snap.Items)

		stream := dialer.nextStream(t)
		stream.push(domainUpdate("Alpha.lk"))
		waitFor(t, e, func(s *Snapshot) bool { return len(s.Results) == 1 })

		snap, err = e.Search(ctx, "finance")
		require.NoError(t, err)

		backend.AssertNumberOfCalls(t, "Generate", 1)
		assert.Equal(t, uint64(2), snap.Generation)
		assert.Contains(t, snap.Results, contract.ItemKey("Alpha"))
		assert.Equal(t, "Beta.lk", snap.NameOf("Beta"))

		require.NotNil(t, snap.Task)
		assert.Equal(t, contract.TaskStatusPending, snap.Task.Status, "결과가 남은 작업은 추적을 재개해야 합니다")
		dialer.nextStream(t)
		assert.Equal(t, 2, dialer.dialCount())
	})

	t.Run("모든 결과가 있는 캐시는 완료 상태로 복원한다", func(t *testing.T) {
		t.Parallel()

		dialer := newFakeDialer()
		e, store := startEngine(t, newBackend(), dialer, testOptions())
		ctx := context.Background()

		require.NoError(t, store.Save(ctx, &contract.CacheEntry{
			Query:   "finance",
			TaskID:  "t1",
			Items:   []contract.ItemKey{"Alpha"},
			Results: contract.ResultMapping{"Alpha": *record("Alpha", "Alpha 설명")},
			SavedAt: time.Now(),
		}))

		snap, err := e.Search(ctx, "finance")
		require.NoError(t, err)

		assert.Equal(t, contract.TaskStatusCompleted, snap.Task.Status)
		assert.Equal(t, ModeSettled, snap.Mode)
		assert.Equal(t, ItemCompleted, Project(snap, "Alpha"))
		assert.Zero(t, dialer.dialCount())
	})

	t.Run("다른 검색어의 캐시는 사용하지 않는다", func(t *testing.T) {
		t.Parallel()

		backend := newBackend()
		backend.On("Generate", mock.Anything, "marketing").
			Return(&contract.GenerateResult{Items: []string{"Gamma"}}, nil).Once()
		backend.On("GenerateOne", mock.Anything, "marketing", "Gamma").
			Return(record("Gamma", "Gamma 설명"), nil).Once()

		e, store := startEngine(t, backend, newHangingDialer(), testOptions())
		ctx := context.Background()

		require.NoError(t, store.Save(ctx, &contract.CacheEntry{
			Query:   "finance",
			Items:   []contract.ItemKey{"Alpha"},
			Results: contract.ResultMapping{"Alpha": *record("Alpha", "Alpha 설명")},
			SavedAt: time.Now(),
		}))

		snap, err := e.Search(ctx, "marketing")
		require.NoError(t, err)

		assert.Equal(t, []contract.ItemKey{"Gamma"}, snap.Items)
		assert.NotContains(t, snap.Results, contract.ItemKey("Alpha"))
		assert.Contains(t, snap.Results, contract.ItemKey("Gamma"))
	})

	t.Run("생성 실패는 호출자에게 반환하고 상태를 유지한다", func(t *testing.T) {
		t.Parallel()

		backend := newBackend()
		backend.On("Generate", mock.Anything, "marketing").
			Return(nil, apperrors.New(apperrors.Unavailable, "backend down")).Once()

		e, _ := startEngine(t, backend, newHangingDialer(), testOptions())
		ctx := context.Background()

		before, err := e.StartTask(ctx, "finance", []string{"Alpha"}, "t1", nil)
		require.NoError(t, err)

		_, err = e.Search(ctx, "marketing")
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.Unavailable))
		assert.Contains(t, err.Error(), "marketing")

		after := e.Snapshot()
		assert.Equal(t, before.Generation, after.Generation)
		assert.Equal(t, "finance", after.Query)
	})

	t.Run("생성된 항목이 없음", func(t *testing.T) {
		t.Parallel()

		backend := newBackend()
		backend.On("Generate", mock.Anything, "finance").
			Return(&contract.GenerateResult{Items: []string{}}, nil).Once()

		e, _ := startEngine(t, backend, newHangingDialer(), testOptions())

		_, err := e.Search(context.Background(), "finance")
		assert.ErrorIs(t, err, ErrNoItems)
	})
}

func TestClearCache(t *testing.T) {
	t.Parallel()

	e, store := startEngine(t, newBackend(), newHangingDialer(), testOptions())
	ctx := context.Background()

	_, err := e.StartTask(ctx, "finance", []string{"Alpha"}, "t1", nil)
	require.NoError(t, err)

	require.NoError(t, e.ClearCache(ctx))

	_, err = store.Load(ctx, "finance")
	assert.ErrorIs(t, err, contract.ErrCacheMiss)
	assert.Equal(t, "finance", e.Snapshot().Query, "캐시 삭제는 진행 중인 작업에 영향을 주지 않습니다")
}

func keysOf(m contract.ResultMapping) []contract.ItemKey {
	keys := make([]contract.ItemKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
