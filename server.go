package msgbus

import (
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-msgbus/internal/core/dataslot"
	"github.com/dep2p/go-msgbus/internal/core/guid"
	"github.com/dep2p/go-msgbus/internal/core/metrics"
	"github.com/dep2p/go-msgbus/internal/util/check"
	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
	"github.com/dep2p/go-msgbus/pkg/lib/log"
	"github.com/dep2p/go-msgbus/pkg/mainloop"
)

var logger = log.Logger("msgbus")

// ════════════════════════════════════════════════════════════════════════════
//                              Server
// ════════════════════════════════════════════════════════════════════════════

// Server 一个正在监听的服务器
//
// 由 Listen 创建，引用计数为 1。应用在最后一次 Unref 之前必须调用 Disconnect。
type Server struct {
	refcount  atomic.Int32
	finalized atomic.Bool

	// 构造后不变
	address  string
	guid     guid.GUID
	guidHex  string
	backend  string
	listener transportif.Listener
	metrics  *metrics.Collector

	mu           sync.Mutex
	disconnected bool
	// watches / timeouts 在变更进行中时为 nil
	watches        *mainloop.WatchList
	timeouts       *mainloop.TimeoutList
	connHandler    ConnectionHandler
	authMechanisms []string
	slots          dataslot.List
}

// newServer 创建服务器，地址追加 ",guid=<hex>"
func newServer(backend string, l transportif.Listener, id guid.GUID, m *metrics.Collector) *Server {
	s := &Server{
		guid:     id,
		guidHex:  id.String(),
		backend:  backend,
		listener: l,
		metrics:  m,
		watches:  mainloop.NewWatchList(),
		timeouts: mainloop.NewTimeoutList(),
	}
	s.address = appendGUID(l.Address(), s.guidHex)
	s.refcount.Store(1)
	m.ServerCreated()

	logger.Debug("创建服务器", "address", s.address, "backend", backend)
	return s
}

// appendGUID 在地址条目末尾追加 guid 键
func appendGUID(addr, hex string) string {
	if strings.HasSuffix(addr, ":") {
		return addr + "guid=" + hex
	}
	return addr + ",guid=" + hex
}

// ════════════════════════════════════════════════════════════════════════════
//                              引用计数
// ════════════════════════════════════════════════════════════════════════════

// Ref 增加引用计数，返回 s 本身
func (s *Server) Ref() *Server {
	for {
		n := s.refcount.Load()
		if n <= 0 {
			check.Failed("Ref() called on a finalized server")
			return s
		}
		if s.refcount.CompareAndSwap(n, n+1) {
			return s
		}
	}
}

// Unref 减少引用计数，归零时销毁服务器
//
// 服务器必须已经断开；否则报告契约违反，并在销毁前先断开。
func (s *Server) Unref() {
	for {
		n := s.refcount.Load()
		if n <= 0 {
			check.Failed("Unref() called on a finalized server")
			return
		}
		if s.refcount.CompareAndSwap(n, n-1) {
			if n == 1 {
				s.lastUnref()
			}
			return
		}
	}
}

func (s *Server) lastUnref() {
	s.mu.Lock()
	disconnected := s.disconnected
	s.mu.Unlock()

	if !disconnected {
		check.Failed("server %s dropped its last reference without Disconnect()", s.address)
		// 恢复一个引用完成断开，再走正常的释放路径
		s.refcount.Store(1)
		s.shutdown()
		s.Unref()
		return
	}
	s.finalize()
}

// alive 检查服务器未被销毁，否则报告契约违反
func (s *Server) alive(function string) bool {
	if s.refcount.Load() > 0 {
		return true
	}
	check.Failed("%s() called on a finalized server", function)
	return false
}

// ════════════════════════════════════════════════════════════════════════════
//                              断开与销毁
// ════════════════════════════════════════════════════════════════════════════

// Disconnect 停止监听新连接
//
// 幂等，可在任意 goroutine、包括应用回调中调用。已接受的连接不受影响。
func (s *Server) Disconnect() {
	if !s.alive("Disconnect") {
		return
	}
	s.Ref()
	s.shutdown()
	s.Unref()
}

// shutdown 设置断开标志并调用后端断开，只生效一次
//
// 后端断开时会回调 RemoveWatch 等需要服务器锁的方法，调用时不持有锁。
func (s *Server) shutdown() {
	s.mu.Lock()
	if s.disconnected {
		s.mu.Unlock()
		return
	}
	s.disconnected = true
	s.mu.Unlock()

	s.listener.Disconnect()
	logger.Debug("服务器已断开", "address", s.address)
}

// IsConnected 返回服务器是否仍在监听
func (s *Server) IsConnected() bool {
	if !s.alive("IsConnected") {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.disconnected
}

// finalize 释放所有资源，只执行一次
func (s *Server) finalize() {
	if !s.finalized.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	slots := s.slots
	s.slots = dataslot.List{}
	handler := s.connHandler
	s.connHandler = nil
	watches, timeouts := s.watches, s.timeouts
	s.watches, s.timeouts = nil, nil
	s.authMechanisms = nil
	s.mu.Unlock()

	slots.Clear()
	releaseHandler(handler)
	if watches != nil {
		watches.Free()
	}
	if timeouts != nil {
		timeouts.Free()
	}
	s.listener.Finalize()

	s.metrics.ServerFinalized()
	logger.Debug("服务器已销毁", "address", s.address)
}

// ════════════════════════════════════════════════════════════════════════════
//                              标识
// ════════════════════════════════════════════════════════════════════════════

// Address 返回服务器地址，客户端可以用它连接
//
// 形如 "unix:path=/tmp/bus,guid=<32 位十六进制>"。
func (s *Server) Address() string {
	if !s.alive("Address") {
		return ""
	}
	return s.address
}

// GUID 返回服务器 GUID 的十六进制形式
func (s *Server) GUID() string {
	if !s.alive("GUID") {
		return ""
	}
	return s.guidHex
}

// Backend 返回接受该地址的后端名称
func (s *Server) Backend() string {
	return s.backend
}

// String 实现 fmt.Stringer
func (s *Server) String() string {
	return "msgbus.Server(" + s.address + ")"
}

// ════════════════════════════════════════════════════════════════════════════
//                              新连接
// ════════════════════════════════════════════════════════════════════════════

// ConnectionHandler 接收新连接
//
// 处理函数获得连接的所有权。实现 mainloop.Releaser 的处理函数在被替换或
// 服务器销毁时收到 Release 调用。
type ConnectionHandler interface {
	HandleConnection(s *Server, conn net.Conn)
}

// ConnectionHandlerFunc 函数形式的 ConnectionHandler
type ConnectionHandlerFunc func(s *Server, conn net.Conn)

// HandleConnection 实现 ConnectionHandler
func (f ConnectionHandlerFunc) HandleConnection(s *Server, conn net.Conn) {
	f(s, conn)
}

// releasingHandler 带清理函数的 ConnectionHandler
type releasingHandler struct {
	fn      ConnectionHandlerFunc
	release func()
}

func (h *releasingHandler) HandleConnection(s *Server, conn net.Conn) {
	h.fn(s, conn)
}

func (h *releasingHandler) Release() {
	if h.release != nil {
		h.release()
	}
}

// NewConnectionHandler 用处理函数和清理函数组合出 ConnectionHandler
func NewConnectionHandler(fn ConnectionHandlerFunc, release func()) ConnectionHandler {
	return &releasingHandler{fn: fn, release: release}
}

func releaseHandler(h ConnectionHandler) {
	if r, ok := h.(mainloop.Releaser); ok {
		r.Release()
	}
}

// SetNewConnectionHandler 设置新连接处理函数，nil 表示关闭所有新连接
//
// 旧处理函数在释放锁之后被 Release。
func (s *Server) SetNewConnectionHandler(h ConnectionHandler) {
	if !s.alive("SetNewConnectionHandler") {
		return
	}
	s.mu.Lock()
	old := s.connHandler
	s.connHandler = h
	s.mu.Unlock()

	releaseHandler(old)
}

// handleNewConnection 把后端接受的连接交给应用
func (s *Server) handleNewConnection(conn net.Conn) {
	s.mu.Lock()
	handler := s.connHandler
	disconnected := s.disconnected
	s.mu.Unlock()

	if disconnected || handler == nil {
		logger.Debug("没有新连接处理函数，关闭连接", "address", s.address)
		_ = conn.Close()
		return
	}

	s.Ref()
	defer s.Unref()
	s.metrics.ConnectionAccepted(s.backend)
	handler.HandleConnection(s, conn)
}

// ════════════════════════════════════════════════════════════════════════════
//                              认证机制
// ════════════════════════════════════════════════════════════════════════════

// SetAuthMechanisms 设置提供给新连接的认证机制，nil 表示全部可用机制
func (s *Server) SetAuthMechanisms(mechanisms []string) {
	if !s.alive("SetAuthMechanisms") {
		return
	}
	var cp []string
	if mechanisms != nil {
		cp = append(make([]string, 0, len(mechanisms)), mechanisms...)
	}
	s.mu.Lock()
	s.authMechanisms = cp
	s.mu.Unlock()
}

// AuthMechanisms 返回认证机制的副本，nil 表示全部可用机制
func (s *Server) AuthMechanisms() []string {
	if !s.alive("AuthMechanisms") {
		return nil
	}
	m, _ := s.authMechanismsCopy()
	return m
}

func (s *Server) authMechanismsCopy() ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authMechanisms == nil {
		return nil, false
	}
	return append([]string(nil), s.authMechanisms...), true
}

// ════════════════════════════════════════════════════════════════════════════
//                              后端回调面
// ════════════════════════════════════════════════════════════════════════════

// serverHost 把服务器暴露给后端
type serverHost struct {
	s *Server
}

// 确保实现接口
var _ transportif.Host = serverHost{}

func (h serverHost) GUID() string                    { return h.s.guidHex }
func (h serverHost) AddWatch(w *mainloop.Watch) bool { return h.s.addWatch(w) }
func (h serverHost) RemoveWatch(w *mainloop.Watch)   { h.s.removeWatch(w) }
func (h serverHost) ToggleWatch(w *mainloop.Watch, enabled bool) {
	h.s.toggleWatch(w, enabled)
}
func (h serverHost) AddTimeout(t *mainloop.Timeout) bool { return h.s.addTimeout(t) }
func (h serverHost) RemoveTimeout(t *mainloop.Timeout)   { h.s.removeTimeout(t) }
func (h serverHost) ToggleTimeout(t *mainloop.Timeout, enabled bool) {
	h.s.toggleTimeout(t, enabled)
}
func (h serverHost) HandleNewConnection(conn net.Conn)  { h.s.handleNewConnection(conn) }
func (h serverHost) AuthMechanisms() ([]string, bool) { return h.s.authMechanismsCopy() }
