// Package push 작업 단위 WebSocket 푸시 채널 클라이언트를 제공합니다.
package push

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/darkkaiser/domain-sync/internal/service/contract"
	applog "github.com/darkkaiser/domain-sync/pkg/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const component = "push"

const (
	defaultHandshakeTimeout = 10 * time.Second

	// defaultReadLimit 프레임 하나의 최대 크기
	defaultReadLimit = 1 << 20
)

// Dialer contract.PushDialer의 WebSocket 구현체입니다. {baseURL}/{taskID} 주소로 연결합니다.
type Dialer struct {
	baseURL *url.URL
	dialer  *websocket.Dialer

	readLimit int64
}

var _ contract.PushDialer = (*Dialer)(nil)

// NewDialer ws 또는 wss 스킴의 baseURL로 Dialer를 생성합니다.
func NewDialer(baseURL string, handshakeTimeout time.Duration) (*Dialer, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, newErrInvalidEndpoint(err, baseURL)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, newErrInvalidEndpoint(nil, baseURL)
	}

	if handshakeTimeout <= 0 {
		handshakeTimeout = defaultHandshakeTimeout
	}

	return &Dialer{
		baseURL: u,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		readLimit: defaultReadLimit,
	}, nil
}

// Dial 작업 하나의 푸시 채널을 엽니다. 핸드셰이크가 끝나야 반환합니다.
func (d *Dialer) Dial(ctx context.Context, taskID contract.TaskID) (contract.PushStream, error) {
	target := d.baseURL.JoinPath(taskID.String()).String()
	sessionID := uuid.NewString()

	conn, resp, err := d.dialer.DialContext(ctx, target, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
			_ = resp.Body.Close()
		}
		return nil, newErrDialFailed(err, target, status)
	}

	conn.SetReadLimit(d.readLimit)

	applog.WithComponentAndFields(component, applog.Fields{
		"task_id":    taskID,
		"session_id": sessionID,
		"url":        target,
	}).Debug("푸시 채널 연결 완료")

	return &stream{
		conn:      conn,
		taskID:    taskID,
		sessionID: sessionID,
	}, nil
}
