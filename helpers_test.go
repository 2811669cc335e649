package msgbus

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-msgbus/internal/util/check"
	"github.com/dep2p/go-msgbus/pkg/address"
	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
	"github.com/dep2p/go-msgbus/pkg/mainloop"
)

// ============================================================================
//                              测试后端
// ============================================================================

// fakeBackend 处理一个方法，按配置返回结果
type fakeBackend struct {
	name   string
	method string
	result transportif.ListenResult
	err    error
	// attach 非空时替代 fakeListener 的默认 Attach
	attach func(l *fakeListener, host transportif.Host) error

	calls     atomic.Int32
	listeners []*fakeListener
	mu        sync.Mutex
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Listen(_ context.Context, entry *address.Entry) (transportif.ListenResult, transportif.Listener, error) {
	if entry.Method() != b.method {
		return transportif.ListenNotHandled, nil, nil
	}
	b.calls.Add(1)
	if b.result != transportif.ListenOK {
		return b.result, nil, b.err
	}
	l := &fakeListener{
		address: address.Format(b.method, "id", entry.Get("id")),
		attach:  b.attach,
	}
	if len(entry.Keys()) == 0 {
		l.address = b.method + ":"
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	b.mu.Unlock()
	return transportif.ListenOK, l, nil
}

func (b *fakeBackend) last() *fakeListener {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.listeners) == 0 {
		return nil
	}
	return b.listeners[len(b.listeners)-1]
}

// fakeListener 记录生命周期调用；Attach 注册一个 Watch 和一个 Timeout
type fakeListener struct {
	address string
	attach  func(l *fakeListener, host transportif.Host) error

	host        transportif.Host
	watch       *mainloop.Watch
	timeout     *mainloop.Timeout
	disconnects atomic.Int32
	finalizes   atomic.Int32
}

func (l *fakeListener) Address() string { return l.address }

func (l *fakeListener) Attach(host transportif.Host) error {
	l.host = host
	if l.attach != nil {
		return l.attach(l, host)
	}
	l.watch = mainloop.NewWatch(7, mainloop.Readable, true, nil)
	l.timeout = mainloop.NewTimeout(0, false, nil)
	host.AddWatch(l.watch)
	host.AddTimeout(l.timeout)
	return nil
}

func (l *fakeListener) Disconnect() {
	l.disconnects.Add(1)
	if l.watch != nil {
		l.host.RemoveWatch(l.watch)
	}
	if l.timeout != nil {
		l.host.RemoveTimeout(l.timeout)
	}
}

func (l *fakeListener) Finalize() {
	l.finalizes.Add(1)
}

// newFakeDispatcher 创建只有一个 fake 后端的分发器
func newFakeDispatcher(t *testing.T, backends ...transportif.Backend) *Dispatcher {
	t.Helper()
	if len(backends) == 0 {
		backends = []transportif.Backend{&fakeBackend{name: "fake", method: "fake"}}
	}
	d, err := NewDispatcher(WithBackends(backends...), WithRegisterer(nil))
	require.NoError(t, err)
	return d
}

// listenFake 在 fake 后端上创建服务器
func listenFake(t *testing.T) (*Server, *fakeListener) {
	t.Helper()
	b := &fakeBackend{name: "fake", method: "fake"}
	d := newFakeDispatcher(t, b)
	srv, err := d.Listen(context.Background(), "fake:id=1")
	require.NoError(t, err)
	return srv, b.last()
}

// withFatal 在测试期间设置致命模式
func withFatal(t *testing.T, on bool) {
	t.Helper()
	old := check.SetFatal(on)
	t.Cleanup(func() { check.SetFatal(old) })
}

// ============================================================================
//                              事件循环替身
// ============================================================================

// recordingHandler 记录 Watch/Timeout 通知的 Handler
type recordingHandler[T comparable] struct {
	mu       sync.Mutex
	items    []T
	toggled  int
	released int
	reject   bool
	onAdd    func(T)
}

func (h *recordingHandler[T]) Add(item T) bool {
	if h.onAdd != nil {
		h.onAdd(item)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.reject {
		return false
	}
	h.items = append(h.items, item)
	return true
}

func (h *recordingHandler[T]) Remove(item T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, cur := range h.items {
		if cur == item {
			h.items = append(h.items[:i], h.items[i+1:]...)
			return
		}
	}
}

func (h *recordingHandler[T]) Toggled(T) {
	h.mu.Lock()
	h.toggled++
	h.mu.Unlock()
}

func (h *recordingHandler[T]) Release() {
	h.mu.Lock()
	h.released++
	h.mu.Unlock()
}

func (h *recordingHandler[T]) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

func (h *recordingHandler[T]) snapshot() []T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]T(nil), h.items...)
}

func (h *recordingHandler[T]) releases() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// ============================================================================
//                              指标读取
// ============================================================================

// counterValue 从注册表读取带标签的计数器或仪表值
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				if c := m.GetCounter(); c != nil {
					return c.GetValue()
				}
				if g := m.GetGauge(); g != nil {
					return g.GetValue()
				}
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string)
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

// pipeConn 返回一对内存连接
func pipeConn() (net.Conn, net.Conn) {
	return net.Pipe()
}
