package engine

import apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"

// ChannelMode 결과를 어느 채널로 받고 있는지를 나타냅니다.
//
//	Unconnected -> PushActive | PullActive -> Settled
type ChannelMode int

const (
	// ModeUnconnected 푸시 핸드셰이크를 기다리는 중이거나 푸시 채널이 끊긴 상태
	ModeUnconnected ChannelMode = iota

	// ModePushActive 푸시 채널로 결과를 받는 중
	ModePushActive

	// ModePullActive 상태 폴링으로 결과를 받는 중 (늦게 연결된 푸시 채널이 함께 동작할 수 있음)
	ModePullActive

	// ModeSettled 더 이상 백그라운드로 들어올 결과가 없는 상태
	ModeSettled
)

var channelModeNames = [...]string{
	ModeUnconnected: "Unconnected",
	ModePushActive:  "PushActive",
	ModePullActive:  "PullActive",
	ModeSettled:     "Settled",
}

func (m ChannelMode) String() string {
	if m < 0 || int(m) >= len(channelModeNames) {
		return "Unknown"
	}
	return channelModeNames[m]
}

func (m ChannelMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *ChannelMode) UnmarshalText(text []byte) error {
	for i, name := range channelModeNames {
		if name == string(text) {
			*m = ChannelMode(i)
			return nil
		}
	}
	return apperrors.Newf(apperrors.InvalidInput, "알 수 없는 채널 모드입니다: %q", text)
}

// ErrorKind 엔진이 마지막으로 기록한 채널 수준의 오류입니다.
// 채널 오류는 호출자에게 전파되지 않고 이 값과 ChannelMode만 바꿉니다.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota

	// ErrorConnectionLost 푸시 채널이 끊김. 폴링으로 전환된다.
	ErrorConnectionLost

	// ErrorPollFailed 상태 폴링 또는 결과 일괄 조회 실패. 다음 주기에 다시 시도된다.
	ErrorPollFailed

	// ErrorBackgroundGenerationFailed 백엔드가 작업 실패를 명시적으로 알림
	ErrorBackgroundGenerationFailed

	// ErrorMalformedEvent 해석할 수 없는 이벤트를 받음
	ErrorMalformedEvent
)

var errorKindNames = [...]string{
	ErrorNone:                       "",
	ErrorConnectionLost:             "ConnectionLost",
	ErrorPollFailed:                 "PollFailed",
	ErrorBackgroundGenerationFailed: "BackgroundGenerationFailed",
	ErrorMalformedEvent:             "MalformedEvent",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(errorKindNames) {
		return "Unknown"
	}
	return errorKindNames[k]
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ErrorKind) UnmarshalText(text []byte) error {
	for i, name := range errorKindNames {
		if name == string(text) {
			*k = ErrorKind(i)
			return nil
		}
	}
	return apperrors.Newf(apperrors.InvalidInput, "알 수 없는 오류 종류입니다: %q", text)
}

// ItemStatus 항목 하나의 화면 표시 상태입니다.
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemProcessing ItemStatus = "processing"
	ItemCompleted  ItemStatus = "completed"
	ItemFailed     ItemStatus = "failed"
)
