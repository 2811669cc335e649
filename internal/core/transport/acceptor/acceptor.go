package acceptor

import (
	"net"
	"sync"
	"time"

	"go.uber.org/multierr"

	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
	"github.com/dep2p/go-msgbus/pkg/lib/log"
	"github.com/dep2p/go-msgbus/pkg/mainloop"
)

var logger = log.Logger("core/transport/acceptor")

// ============================================================================
//                              Acceptor
// ============================================================================

// Acceptor 实现 transport.Listener，管理一组监听套接字
type Acceptor struct {
	backend string
	address string
	backoff time.Duration
	cleanup func() error

	mu       sync.Mutex
	host     transportif.Host
	sockets  []*socket
	attached bool
	closed   bool
}

// socket 单个监听套接字及其 Watch
type socket struct {
	ln    net.Listener
	fd    int
	raw   rawConn
	watch *mainloop.Watch
	retry *mainloop.Timeout
	// failures 连续的非临时 accept 错误数
	failures int
}

// 确保实现接口
var _ transportif.Listener = (*Acceptor)(nil)

// Option Acceptor 选项
type Option func(*Acceptor)

// WithBackoff 设置临时 accept 错误后的退避时长
func WithBackoff(d time.Duration) Option {
	return func(a *Acceptor) {
		if d > 0 {
			a.backoff = d
		}
	}
}

// WithCleanup 设置 Disconnect 时在关闭套接字之后执行的清理（如删除套接字文件）
func WithCleanup(fn func() error) Option {
	return func(a *Acceptor) {
		a.cleanup = fn
	}
}

// New 用已经绑定的监听器创建 Acceptor
//
// 成功后监听器归 Acceptor 所有；失败时调用方负责关闭它们。
func New(backend, address string, lns []net.Listener, opts ...Option) (*Acceptor, error) {
	a := &Acceptor{
		backend: backend,
		address: address,
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}

	for _, ln := range lns {
		s := &socket{ln: ln, fd: -1}
		if err := prepare(s); err != nil {
			return nil, err
		}
		a.sockets = append(a.sockets, s)
	}

	logger.Debug("创建 Acceptor", "backend", backend, "address", address, "sockets", len(a.sockets))
	return a, nil
}

// Address 实现 transport.Listener
func (a *Acceptor) Address() string {
	return a.address
}

// Addrs 返回所有监听地址
func (a *Acceptor) Addrs() []net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]net.Addr, 0, len(a.sockets))
	for _, s := range a.sockets {
		out = append(out, s.ln.Addr())
	}
	return out
}

// Watches 返回已注册的 Watch
func (a *Acceptor) Watches() []*mainloop.Watch {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []*mainloop.Watch
	for _, s := range a.sockets {
		if s.watch != nil {
			out = append(out, s.watch)
		}
	}
	return out
}

// Attach 实现 transport.Listener
//
// 调用 Host 时不持有 Acceptor 的锁，Host 的回调可以重入 Disconnect。
func (a *Acceptor) Attach(host transportif.Host) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.attached {
		a.mu.Unlock()
		return ErrAlreadyAttached
	}
	a.attached = true
	a.host = host
	sockets := append([]*socket(nil), a.sockets...)
	a.mu.Unlock()

	return attach(a, host, sockets)
}

// Disconnect 实现 transport.Listener
func (a *Acceptor) Disconnect() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	host := a.host
	type pending struct {
		ln    net.Listener
		watch *mainloop.Watch
		retry *mainloop.Timeout
	}
	items := make([]pending, 0, len(a.sockets))
	for _, s := range a.sockets {
		items = append(items, pending{ln: s.ln, watch: s.watch, retry: s.retry})
		s.retry = nil
	}
	a.mu.Unlock()

	var err error
	for _, it := range items {
		if host != nil {
			if it.watch != nil {
				host.RemoveWatch(it.watch)
			}
			if it.retry != nil {
				host.RemoveTimeout(it.retry)
			}
		}
		err = multierr.Append(err, it.ln.Close())
	}
	if a.cleanup != nil {
		err = multierr.Append(err, a.cleanup())
	}
	if err != nil {
		logger.Warn("关闭监听器出错", "backend", a.backend, "address", a.address, "error", err)
	}

	logger.Debug("Acceptor 已断开", "backend", a.backend, "address", a.address)
}

// Finalize 实现 transport.Listener
func (a *Acceptor) Finalize() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range a.sockets {
		s.watch = nil
		s.retry = nil
	}
	a.host = nil
}

func (a *Acceptor) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// takeRetry 取出等待中的重新启用 Timeout
func (s *socket) takeRetry(a *Acceptor) *mainloop.Timeout {
	a.mu.Lock()
	defer a.mu.Unlock()
	t := s.retry
	s.retry = nil
	return t
}

// handoff 把新连接交给服务器；Acceptor 已关闭时直接关闭连接
func (a *Acceptor) handoff(host transportif.Host, conn net.Conn) {
	if a.isClosed() {
		_ = conn.Close()
		return
	}
	logger.Debug("接受新连接", "backend", a.backend, "remote", conn.RemoteAddr())
	host.HandleNewConnection(conn)
}
