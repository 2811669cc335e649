package mainloop

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Flags 描述文件描述符上关心或发生的 I/O 条件
type Flags uint

const (
	// Readable 可读
	Readable Flags = 1 << iota
	// Writable 可写
	Writable
	// Error 出错（总是会被报告）
	Error
	// Hangup 挂断（总是会被报告）
	Hangup
)

// String 返回条件的可读形式，如 "readable|hangup"
func (f Flags) String() string {
	var parts []string
	if f&Readable != 0 {
		parts = append(parts, "readable")
	}
	if f&Writable != 0 {
		parts = append(parts, "writable")
	}
	if f&Error != 0 {
		parts = append(parts, "error")
	}
	if f&Hangup != 0 {
		parts = append(parts, "hangup")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// WatchFunc 在描述符就绪时被调用，返回 false 表示处理失败（通常是资源不足）
type WatchFunc func(flags Flags) bool

// Watch 一个需要事件循环监视的文件描述符
type Watch struct {
	fd      int
	flags   Flags
	handler WatchFunc
	enabled atomic.Bool

	dataMu sync.Mutex
	data   any
}

// NewWatch 创建 Watch
func NewWatch(fd int, flags Flags, enabled bool, handler WatchFunc) *Watch {
	w := &Watch{fd: fd, flags: flags, handler: handler}
	w.enabled.Store(enabled)
	return w
}

// FD 返回被监视的描述符
func (w *Watch) FD() int {
	return w.fd
}

// Flags 返回关心的条件
func (w *Watch) Flags() Flags {
	return w.flags
}

// Enabled 返回事件循环当前是否应该监视它
func (w *Watch) Enabled() bool {
	return w.enabled.Load()
}

func (w *Watch) setEnabled(on bool) bool {
	return w.enabled.Swap(on) != on
}

// Handle 由事件循环在描述符就绪时调用
//
// Readable/Writable 会按 Watch 关心的条件过滤，Error/Hangup 总是传递。
func (w *Watch) Handle(flags Flags) bool {
	flags &= w.flags | Error | Hangup
	if w.handler == nil || flags == 0 {
		return true
	}
	return w.handler(flags)
}

// SetData 让事件循环在 Watch 上挂自己的数据
func (w *Watch) SetData(v any) {
	w.dataMu.Lock()
	w.data = v
	w.dataMu.Unlock()
}

// Data 返回 SetData 设置的数据
func (w *Watch) Data() any {
	w.dataMu.Lock()
	defer w.dataMu.Unlock()
	return w.data
}

// String 实现 fmt.Stringer
func (w *Watch) String() string {
	return fmt.Sprintf("watch(fd=%d, flags=%s, enabled=%t)", w.fd, w.flags, w.Enabled())
}
