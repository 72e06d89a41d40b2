package contract

import "context"

// PushEventType 푸시 채널 메시지의 종류입니다.
type PushEventType string

const (
	PushDomainUpdate   PushEventType = "domain_update"
	PushProgressUpdate PushEventType = "progress_update"
	PushCompleted      PushEventType = "completed"
	PushError          PushEventType = "error"
)

// PushEvent 푸시 채널로 수신한 메시지 하나를 디코딩한 결과입니다.
// Type에 따라 의미 있는 필드가 다릅니다.
type PushEvent struct {
	Type   PushEventType
	TaskID TaskID

	// domain_update
	DomainName string
	Record     *ResultRecord

	// progress_update
	Processed int
	Total     int

	// error
	Message string
}

// PushStream 작업 하나에 연결된 푸시 채널입니다.
type PushStream interface {
	// Next 다음 이벤트를 기다립니다.
	// 형식이 잘못된 메시지는 ErrMalformedEvent로 감싼 에러를 반환하며, 이 경우 스트림은 계속 사용할 수 있습니다.
	// 그 밖의 에러는 연결이 끊긴 것입니다.
	Next(ctx context.Context) (PushEvent, error)

	Close() error
}

// PushDialer 작업 ID로 푸시 채널을 엽니다. 반환 시점에 핸드셰이크가 완료된 상태여야 합니다.
type PushDialer interface {
	Dial(ctx context.Context, taskID TaskID) (PushStream, error)
}
