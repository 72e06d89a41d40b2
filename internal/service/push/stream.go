package push

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/darkkaiser/domain-sync/internal/service/contract"
	applog "github.com/darkkaiser/domain-sync/pkg/log"
	"github.com/gorilla/websocket"
)

const closeWriteTimeout = time.Second

// stream 하나의 WebSocket 연결 위에서 이벤트를 차례로 읽습니다. Next는 한 고루틴에서만 호출합니다.
type stream struct {
	conn      *websocket.Conn
	taskID    contract.TaskID
	sessionID string

	closeOnce sync.Once
	closeErr  error
	closed    bool
	mu        sync.Mutex
}

var _ contract.PushStream = (*stream)(nil)

func (s *stream) Next(ctx context.Context) (contract.PushEvent, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return contract.PushEvent{}, ErrStreamClosed
	}

	// 블로킹 읽기는 Context를 모르므로, 취소되면 연결을 닫아 읽기를 깨운다.
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	msgType, data, err := s.conn.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return contract.PushEvent{}, ctxErr
		}

		_ = s.Close()

		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			applog.WithComponentAndFields(component, applog.Fields{
				"task_id":    s.taskID,
				"session_id": s.sessionID,
				"code":       closeErr.Code,
				"reason":     closeErr.Text,
			}).Info("서버가 푸시 채널을 닫았습니다")
		}

		return contract.PushEvent{}, newErrConnectionLost(err)
	}

	if msgType != websocket.TextMessage {
		return contract.PushEvent{}, contract.NewErrMalformedEvent(fmt.Sprintf("텍스트가 아닌 프레임입니다 (type=%d)", msgType))
	}

	return DecodeEvent(data)
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(closeWriteTimeout))
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
