//go:build !unix

package acceptor

import (
	"errors"
	"net"
	"time"

	temperrcatcher "github.com/jbenet/go-temp-err-catcher"

	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
)

type rawConn = struct{}

func prepare(*socket) error {
	return nil
}

// attach 没有可供事件循环监视的描述符，每个监听器起一个 accept goroutine
//
// goroutine 在监听器关闭后自行退出。
func attach(a *Acceptor, host transportif.Host, sockets []*socket) error {
	for _, s := range sockets {
		go a.acceptLoop(host, s)
	}
	return nil
}

func (a *Acceptor) acceptLoop(host transportif.Host, s *socket) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || a.isClosed() {
				return
			}
			if temperrcatcher.ErrIsTemporary(err) {
				logger.Warn("accept 临时失败", "backend", a.backend, "backoff", a.backoff, "error", err)
				time.Sleep(a.backoff)
				continue
			}
			logger.Warn("accept 失败，停止监听", "backend", a.backend, "error", err)
			return
		}
		a.handoff(host, conn)
	}
}
