package engine

import "github.com/darkkaiser/domain-sync/internal/service/contract"

// message 이벤트 루프로 전달되는 명령 또는 이벤트입니다.
//
// generation()이 0이 아닌 메시지는 현재 세대와 다르면 처리하지 않고 버린다.
type message interface {
	generation() uint64
}

// tag 생산자가 메시지를 보낼 때 자신이 속한 세대를 기록한다.
type tag struct {
	gen uint64
}

func (t tag) generation() uint64 { return t.gen }

// cmdInstall 상태 전체를 새 작업으로 교체한다.
type cmdInstall struct {
	query   string
	items   []contract.ItemKey
	names   map[contract.ItemKey]string
	taskID  contract.TaskID
	total   *int
	results contract.ResultMapping

	// restored 캐시에서 복원한 경우 true. 복원 직후에는 캐시를 다시 쓰지 않는다.
	restored bool

	reply chan installResult
}

func (cmdInstall) generation() uint64 { return 0 }

type installResult struct {
	gen     uint64
	preload []contract.ItemKey
}

// cmdWiden 노출 항목 수를 늘린다.
type cmdWiden struct {
	n     int
	reply chan widenResult
}

func (cmdWiden) generation() uint64 { return 0 }

type widenResult struct {
	err     error
	gen     uint64
	preload []contract.ItemKey
}

// evPushConnected 푸시 핸드셰이크 완료
type evPushConnected struct {
	tag
}

// evPushEvent 푸시 채널에서 받은 이벤트. reply가 있으면 처리 결과를 돌려준다.
type evPushEvent struct {
	tag
	event contract.PushEvent
	reply chan error
}

// evPushClosed 푸시 채널 연결 실패 또는 끊김
type evPushClosed struct {
	tag
	err error
}

// evFallbackTimeout 푸시 핸드셰이크 대기 시간 초과
type evFallbackTimeout struct {
	tag
}

// evPullStatus 상태 폴링 결과. epoch가 0이 아니면 현재 폴러가 보낸 것만 처리한다.
type evPullStatus struct {
	tag
	epoch  uint64
	report *contract.StatusReport
	err    error
	reply  chan error
}

// evBulkResult 전체 결과 일괄 조회 결과
type evBulkResult struct {
	tag
	batch *contract.ResultBatch
	err   error
}

// evUpsert 동기 요청(재시도, 상세 조회, 미리 불러오기)으로 받은 레코드 하나
type evUpsert struct {
	tag
	key    contract.ItemKey
	record contract.ResultRecord
	reply  chan error
}
