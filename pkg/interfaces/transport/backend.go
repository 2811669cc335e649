// Package transport 定义监听后端接口
//
// 每种传输（socket、平台默认、进程内 debug-pipe）实现一个 Backend。
// 分发器按固定优先级把地址条目交给各个 Backend，直到某个 Backend 认领它。
package transport

import (
	"context"
	"net"

	"github.com/dep2p/go-msgbus/pkg/address"
	"github.com/dep2p/go-msgbus/pkg/mainloop"
)

// ============================================================================
//                              ListenResult
// ============================================================================

// ListenResult 一次监听尝试的结果分类
type ListenResult int

const (
	// ListenOK 监听成功，返回的 Listener 非空
	ListenOK ListenResult = iota
	// ListenNotHandled 不认识该方法，尝试下一个 Backend
	ListenNotHandled
	// ListenBadAddress 认识该方法但参数无效，终止整个分发
	ListenBadAddress
	// ListenDidNotConnect 认识该方法但绑定失败，继续尝试其他条目
	ListenDidNotConnect
)

// String 返回结果名称
func (r ListenResult) String() string {
	switch r {
	case ListenOK:
		return "ok"
	case ListenNotHandled:
		return "not_handled"
	case ListenBadAddress:
		return "bad_address"
	case ListenDidNotConnect:
		return "did_not_connect"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              Backend 接口
// ============================================================================

// Backend 一种传输的监听能力
type Backend interface {
	// Name 返回后端名称，用于日志和指标
	Name() string

	// Listen 尝试在地址条目上监听
	//
	// 返回值约定：
	//   - ListenOK: Listener 非空，error 为 nil
	//   - ListenNotHandled: Listener 和 error 都为 nil
	//   - ListenBadAddress / ListenDidNotConnect: Listener 为 nil，error 非空
	Listen(ctx context.Context, entry *address.Entry) (ListenResult, Listener, error)
}

// Listener 已绑定的监听端点，生命周期由服务器管理
type Listener interface {
	// Address 返回对外公布的地址（不含 guid）
	Address() string

	// Attach 把监听器绑定到服务器，通常在这里注册 Watch
	//
	// 返回错误时服务器会断开并释放监听器。
	Attach(host Host) error

	// Disconnect 停止接受新连接，只会被调用一次，调用时不持有服务器锁
	Disconnect()

	// Finalize 释放剩余资源，只会在 Disconnect 之后被调用一次
	Finalize()
}

// Host 服务器提供给 Listener 的回调面
//
// 所有方法都可以在不持有任何锁的情况下调用。
type Host interface {
	// GUID 返回服务器 GUID 的十六进制形式
	GUID() string

	// AddWatch 添加 Watch 并通知应用，失败（包括并发变更冲突）时返回 false
	AddWatch(w *mainloop.Watch) bool
	// RemoveWatch 移除 Watch
	RemoveWatch(w *mainloop.Watch)
	// ToggleWatch 启用或禁用 Watch
	ToggleWatch(w *mainloop.Watch, enabled bool)

	// AddTimeout 添加 Timeout 并通知应用
	AddTimeout(t *mainloop.Timeout) bool
	// RemoveTimeout 移除 Timeout
	RemoveTimeout(t *mainloop.Timeout)
	// ToggleTimeout 启用或禁用 Timeout
	ToggleTimeout(t *mainloop.Timeout, enabled bool)

	// HandleNewConnection 把新到达的连接交给应用；没有处理函数时连接被关闭
	HandleNewConnection(conn net.Conn)

	// AuthMechanisms 返回提供给新连接的认证机制；ok 为 false 表示提供全部机制
	AuthMechanisms() (mechanisms []string, ok bool)
}
