// Package testutil 여러 패키지의 테스트에서 함께 쓰는 헬퍼를 제공합니다.
package testutil

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// GetFreePort 지금 비어 있는 로컬 TCP 포트를 하나 골라 반환합니다.
// 반환 직후 다른 프로세스가 포트를 가져갈 수 있으므로 바로 사용해야 합니다.
func GetFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port, nil
}

// WaitForServer port에 TCP 연결이 될 때까지 최대 timeout 동안 기다립니다.
func WaitForServer(port int, timeout time.Duration) error {
	addr := net.JoinHostPort("localhost", strconv.Itoa(port))

	for deadline := time.Now().Add(timeout); time.Now().Before(deadline); time.Sleep(10 * time.Millisecond) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
	}

	return fmt.Errorf("%s 포트의 서버가 %s 안에 시작되지 않았습니다", addr, timeout)
}
