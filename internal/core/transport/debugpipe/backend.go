package debugpipe

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/dep2p/go-msgbus/pkg/address"
	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
	"github.com/dep2p/go-msgbus/pkg/lib/log"
)

var logger = log.Logger("core/transport/debugpipe")

const (
	// Name 后端名称
	Name = "debug-pipe"

	// Method 处理的地址方法
	Method = "debug-pipe"
)

// registry 进程级名字表
var registry = struct {
	sync.Mutex
	servers map[string]*Listener
}{servers: make(map[string]*Listener)}

// Backend debug-pipe: 监听后端
type Backend struct{}

// 确保实现接口
var _ transportif.Backend = (*Backend)(nil)

// New 创建 debug-pipe: 后端
func New() *Backend {
	return &Backend{}
}

// Name 实现 transport.Backend
func (b *Backend) Name() string {
	return Name
}

// Listen 实现 transport.Backend
func (b *Backend) Listen(_ context.Context, entry *address.Entry) (transportif.ListenResult, transportif.Listener, error) {
	if entry.Method() != Method {
		return transportif.ListenNotHandled, nil, nil
	}
	name := entry.Get("name")
	if name == "" {
		return transportif.ListenBadAddress, nil, fmt.Errorf("%s: %w", entry, ErrMissingName)
	}

	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.servers[name]; ok {
		return transportif.ListenDidNotConnect, nil, fmt.Errorf("%q: %w", name, ErrNameInUse)
	}
	l := &Listener{name: name}
	registry.servers[name] = l

	logger.Debug("debug-pipe 监听成功", "name", name)
	return transportif.ListenOK, l, nil
}

// Listener 已登记的 debug-pipe 服务器端点
type Listener struct {
	name string

	mu   sync.Mutex
	host transportif.Host
}

// 确保实现接口
var _ transportif.Listener = (*Listener)(nil)

// Address 实现 transport.Listener
func (l *Listener) Address() string {
	return address.Format(Method, "name", l.name)
}

// Attach 实现 transport.Listener
func (l *Listener) Attach(host transportif.Host) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.host = host
	return nil
}

// Disconnect 实现 transport.Listener，释放名字
func (l *Listener) Disconnect() {
	registry.Lock()
	if registry.servers[l.name] == l {
		delete(registry.servers, l.name)
	}
	registry.Unlock()

	l.mu.Lock()
	l.host = nil
	l.mu.Unlock()
	logger.Debug("debug-pipe 已断开", "name", l.name)
}

// Finalize 实现 transport.Listener
func (l *Listener) Finalize() {}

// Dial 连接名为 name 的 debug-pipe 服务器
//
// 服务端连接在返回前已交给服务器的新连接处理函数。
func Dial(name string) (net.Conn, error) {
	registry.Lock()
	l := registry.servers[name]
	registry.Unlock()
	if l == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrNoServer)
	}

	l.mu.Lock()
	host := l.host
	l.mu.Unlock()
	if host == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrNoServer)
	}

	server, client := net.Pipe()
	host.HandleNewConnection(server)
	return client, nil
}
