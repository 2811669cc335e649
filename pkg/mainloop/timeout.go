package mainloop

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// TimeoutFunc 定时器到期时调用，返回 false 表示处理失败
type TimeoutFunc func() bool

// Timeout 一个需要事件循环按间隔重复调用的定时器
type Timeout struct {
	interval atomic.Int64
	handler  TimeoutFunc
	enabled  atomic.Bool

	dataMu sync.Mutex
	data   any
}

// NewTimeout 创建 Timeout
func NewTimeout(interval time.Duration, enabled bool, handler TimeoutFunc) *Timeout {
	t := &Timeout{handler: handler}
	t.interval.Store(int64(interval))
	t.enabled.Store(enabled)
	return t
}

// Interval 返回调用间隔
func (t *Timeout) Interval() time.Duration {
	return time.Duration(t.interval.Load())
}

// SetInterval 修改调用间隔
//
// 只影响之后重新启用或新添加的定时器，事件循环需要自行重新调度。
func (t *Timeout) SetInterval(d time.Duration) {
	t.interval.Store(int64(d))
}

// Enabled 返回事件循环当前是否应该调度它
func (t *Timeout) Enabled() bool {
	return t.enabled.Load()
}

func (t *Timeout) setEnabled(on bool) bool {
	return t.enabled.Swap(on) != on
}

// Handle 由事件循环在间隔到期时调用
func (t *Timeout) Handle() bool {
	if t.handler == nil {
		return true
	}
	return t.handler()
}

// SetData 让事件循环在 Timeout 上挂自己的数据
func (t *Timeout) SetData(v any) {
	t.dataMu.Lock()
	t.data = v
	t.dataMu.Unlock()
}

// Data 返回 SetData 设置的数据
func (t *Timeout) Data() any {
	t.dataMu.Lock()
	defer t.dataMu.Unlock()
	return t.data
}

// String 实现 fmt.Stringer
func (t *Timeout) String() string {
	return fmt.Sprintf("timeout(interval=%s, enabled=%t)", t.Interval(), t.Enabled())
}
