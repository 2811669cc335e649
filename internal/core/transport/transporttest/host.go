// Package transporttest 提供后端测试用的 Host 实现
package transporttest

import (
	"net"
	"sync"

	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
	"github.com/dep2p/go-msgbus/pkg/mainloop"
)

// Host 记录 Watch、Timeout 和新连接的 transport.Host
//
// 新连接写入 Conns 通道；通道满时连接被关闭。
type Host struct {
	// RejectWatches 为 true 时 AddWatch 返回 false
	RejectWatches bool
	// RejectTimeouts 为 true 时 AddTimeout 返回 false
	RejectTimeouts bool

	Conns chan net.Conn

	mu         sync.Mutex
	guid       string
	mechanisms []string
	watches    []*mainloop.Watch
	timeouts   []*mainloop.Timeout
}

// 确保实现接口
var _ transportif.Host = (*Host)(nil)

// NewHost 创建测试 Host
func NewHost(guid string) *Host {
	return &Host{
		guid:  guid,
		Conns: make(chan net.Conn, 16),
	}
}

// SetAuthMechanisms 设置 AuthMechanisms 的返回值
func (h *Host) SetAuthMechanisms(m []string) {
	h.mu.Lock()
	h.mechanisms = m
	h.mu.Unlock()
}

// GUID 实现 transport.Host
func (h *Host) GUID() string {
	return h.guid
}

// AddWatch 实现 transport.Host
func (h *Host) AddWatch(w *mainloop.Watch) bool {
	if h.RejectWatches {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.watches = append(h.watches, w)
	return true
}

// RemoveWatch 实现 transport.Host
func (h *Host) RemoveWatch(w *mainloop.Watch) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, cur := range h.watches {
		if cur == w {
			h.watches = append(h.watches[:i], h.watches[i+1:]...)
			return
		}
	}
}

// ToggleWatch 实现 transport.Host
func (h *Host) ToggleWatch(w *mainloop.Watch, enabled bool) {
	l := mainloop.NewWatchList()
	l.Toggle(w, enabled)
}

// AddTimeout 实现 transport.Host
func (h *Host) AddTimeout(t *mainloop.Timeout) bool {
	if h.RejectTimeouts {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timeouts = append(h.timeouts, t)
	return true
}

// RemoveTimeout 实现 transport.Host
func (h *Host) RemoveTimeout(t *mainloop.Timeout) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, cur := range h.timeouts {
		if cur == t {
			h.timeouts = append(h.timeouts[:i], h.timeouts[i+1:]...)
			return
		}
	}
}

// ToggleTimeout 实现 transport.Host
func (h *Host) ToggleTimeout(t *mainloop.Timeout, enabled bool) {
	l := mainloop.NewTimeoutList()
	l.Toggle(t, enabled)
}

// HandleNewConnection 实现 transport.Host
func (h *Host) HandleNewConnection(conn net.Conn) {
	select {
	case h.Conns <- conn:
	default:
		_ = conn.Close()
	}
}

// AuthMechanisms 实现 transport.Host
func (h *Host) AuthMechanisms() ([]string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mechanisms == nil {
		return nil, false
	}
	return append([]string(nil), h.mechanisms...), true
}

// Watches 返回当前注册的 Watch
func (h *Host) Watches() []*mainloop.Watch {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*mainloop.Watch(nil), h.watches...)
}

// Timeouts 返回当前注册的 Timeout
func (h *Host) Timeouts() []*mainloop.Timeout {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*mainloop.Timeout(nil), h.timeouts...)
}

// Poll 让所有启用的 Watch 处理一次 Readable 事件
func (h *Host) Poll() {
	for _, w := range h.Watches() {
		if w.Enabled() {
			w.Handle(mainloop.Readable)
		}
	}
}
