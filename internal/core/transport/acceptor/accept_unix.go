//go:build unix

package acceptor

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"

	temperrcatcher "github.com/jbenet/go-temp-err-catcher"
	"golang.org/x/sys/unix"

	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
	"github.com/dep2p/go-msgbus/pkg/mainloop"
)

// rawConn 监听描述符的原始访问；监听器的 syscall.RawConn 只支持 Control
type rawConn interface {
	Control(f func(fd uintptr)) error
}

// prepare 取出监听器的原始描述符
func prepare(s *socket) error {
	sc, ok := s.ln.(syscall.Conn)
	if !ok {
		return fmt.Errorf("listener %T has no raw descriptor", s.ln)
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return fmt.Errorf("get raw conn: %w", err)
	}
	var fd int
	if err := rc.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return fmt.Errorf("get listen fd: %w", err)
	}
	s.raw = rc
	s.fd = fd
	return nil
}

// attach 为每个监听描述符注册一个 Readable Watch
func attach(a *Acceptor, host transportif.Host, sockets []*socket) error {
	for _, s := range sockets {
		s := s
		w := mainloop.NewWatch(s.fd, mainloop.Readable, true, func(mainloop.Flags) bool {
			a.acceptOnce(host, s)
			return true
		})

		a.mu.Lock()
		s.watch = w
		a.mu.Unlock()

		if !host.AddWatch(w) {
			return fmt.Errorf("fd %d: %w", s.fd, ErrWatchRejected)
		}
	}
	return nil
}

// acceptOnce 执行一次非阻塞 accept
func (a *Acceptor) acceptOnce(host transportif.Host, s *socket) {
	if a.isClosed() {
		return
	}

	nfd, err := accept4(s)
	switch {
	case err == nil:
		a.mu.Lock()
		s.failures = 0
		a.mu.Unlock()
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.ECONNABORTED):
		return
	case temperrcatcher.ErrIsTemporary(err):
		logger.Warn("accept 临时失败，暂停监听", "backend", a.backend, "fd", s.fd, "backoff", a.backoff, "error", err)
		a.pause(host, s)
		return
	default:
		// 水平触发的事件循环会立即再次分发，同样退避
		a.mu.Lock()
		s.failures++
		n := s.failures
		a.mu.Unlock()
		if n == 1 {
			logger.Warn("accept 失败，暂停监听", "backend", a.backend, "fd", s.fd, "backoff", a.backoff, "error", err)
		} else {
			logger.Debug("accept 持续失败", "backend", a.backend, "fd", s.fd, "failures", n, "error", err)
		}
		a.pause(host, s)
		return
	}

	f := os.NewFile(uintptr(nfd), fmt.Sprintf("%s-conn-%d", a.backend, nfd))
	conn, err := net.FileConn(f)
	// FileConn 复制了描述符
	_ = f.Close()
	if err != nil {
		logger.Warn("包装新连接失败", "backend", a.backend, "error", err)
		return
	}
	a.handoff(host, conn)
}

// accept4 在监听描述符上调用一次 accept4，不等待
func accept4(s *socket) (int, error) {
	var (
		nfd    = -1
		accErr error
	)
	// 监听描述符本身是非阻塞的，没有待接受的连接时得到 EAGAIN
	err := s.raw.Control(func(fd uintptr) {
		nfd, _, accErr = unix.Accept4(int(fd), unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	})
	if err != nil {
		return -1, err
	}
	if accErr != nil {
		return -1, accErr
	}
	return nfd, nil
}

// pause 禁用 Watch，退避后由 Timeout 重新启用
func (a *Acceptor) pause(host transportif.Host, s *socket) {
	a.mu.Lock()
	if a.closed || s.retry != nil || s.watch == nil {
		a.mu.Unlock()
		return
	}
	w := s.watch
	var t *mainloop.Timeout
	t = mainloop.NewTimeout(a.backoff, true, func() bool {
		if s.takeRetry(a) != t {
			return true
		}
		host.RemoveTimeout(t)
		if !a.isClosed() {
			host.ToggleWatch(w, true)
		}
		return true
	})
	s.retry = t
	a.mu.Unlock()

	host.ToggleWatch(w, false)
	if !host.AddTimeout(t) {
		// 没有事件循环可以唤醒我们，立即恢复监听
		s.takeRetry(a)
		host.ToggleWatch(w, true)
	}
}
