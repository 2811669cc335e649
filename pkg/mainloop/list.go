package mainloop

// Handler 应用提供的通知接口，把 Watch/Timeout 交给事件循环
//
// Add 返回 false 表示事件循环无法接纳（通常是资源不足）。
// Handler 的方法在不持有服务器锁的情况下被调用，可以重入服务器的公共 API。
type Handler[T any] interface {
	Add(item T) bool
	Remove(item T)
	Toggled(item T)
}

// Releaser 可选接口：Handler 被替换或列表被释放时调用 Release 清理其状态
type Releaser interface {
	Release()
}

// Funcs 以闭包组合出 Handler，未设置的函数视为空操作
type Funcs[T any] struct {
	AddFunc     func(item T) bool
	RemoveFunc  func(item T)
	ToggledFunc func(item T)
	ReleaseFunc func()
}

// Add 实现 Handler
func (f *Funcs[T]) Add(item T) bool {
	if f.AddFunc == nil {
		return true
	}
	return f.AddFunc(item)
}

// Remove 实现 Handler
func (f *Funcs[T]) Remove(item T) {
	if f.RemoveFunc != nil {
		f.RemoveFunc(item)
	}
}

// Toggled 实现 Handler
func (f *Funcs[T]) Toggled(item T) {
	if f.ToggledFunc != nil {
		f.ToggledFunc(item)
	}
}

// Release 实现 Releaser
func (f *Funcs[T]) Release() {
	if f.ReleaseFunc != nil {
		f.ReleaseFunc()
	}
}

type (
	// WatchHandler Watch 通知接口
	WatchHandler = Handler[*Watch]
	// TimeoutHandler Timeout 通知接口
	TimeoutHandler = Handler[*Timeout]
	// WatchFuncs 闭包形式的 WatchHandler
	WatchFuncs = Funcs[*Watch]
	// TimeoutFuncs 闭包形式的 TimeoutHandler
	TimeoutFuncs = Funcs[*Timeout]
	// WatchList Watch 列表
	WatchList = List[*Watch]
	// TimeoutList Timeout 列表
	TimeoutList = List[*Timeout]
)

type item interface {
	comparable
	setEnabled(on bool) bool
}

// List 一组 Watch 或 Timeout 及当前注册的 Handler
//
// List 不加锁，调用方负责串行化。
type List[T item] struct {
	items   []T
	handler Handler[T]
}

// NewList 创建空列表
func NewList[T item]() *List[T] {
	return &List[T]{}
}

// NewWatchList 创建空 Watch 列表
func NewWatchList() *WatchList {
	return NewList[*Watch]()
}

// NewTimeoutList 创建空 Timeout 列表
func NewTimeoutList() *TimeoutList {
	return NewList[*Timeout]()
}

// SetHandler 替换 Handler
//
// 先把所有条目交给新 Handler；任一条目被拒绝时撤销已添加的条目并返回 false，
// 此时旧 Handler 保持不变，新 Handler 也不会被 Release。
// 成功后从旧 Handler 移除所有条目并 Release 旧 Handler。
func (l *List[T]) SetHandler(h Handler[T]) bool {
	if h != nil {
		for i, it := range l.items {
			if !h.Add(it) {
				for _, added := range l.items[:i] {
					h.Remove(added)
				}
				return false
			}
		}
	}

	old := l.handler
	if old != nil {
		for _, it := range l.items {
			old.Remove(it)
		}
		if r, ok := old.(Releaser); ok {
			r.Release()
		}
	}

	l.handler = h
	return true
}

// Handler 返回当前 Handler
func (l *List[T]) Handler() Handler[T] {
	return l.handler
}

// Add 添加条目并通知 Handler；Handler 拒绝时条目不会留在列表中
func (l *List[T]) Add(it T) bool {
	l.items = append(l.items, it)
	if l.handler != nil && !l.handler.Add(it) {
		l.items = l.items[:len(l.items)-1]
		return false
	}
	return true
}

// Remove 移除条目并通知 Handler；不在列表中的条目被忽略
func (l *List[T]) Remove(it T) {
	for i, cur := range l.items {
		if cur != it {
			continue
		}
		l.items = append(l.items[:i], l.items[i+1:]...)
		if l.handler != nil {
			l.handler.Remove(it)
		}
		return
	}
}

// Toggle 启用或禁用条目，状态确实改变时通知 Handler
func (l *List[T]) Toggle(it T, enabled bool) {
	if !it.setEnabled(enabled) {
		return
	}
	if l.handler != nil {
		l.handler.Toggled(it)
	}
}

// Contains 检查条目是否在列表中
func (l *List[T]) Contains(it T) bool {
	for _, cur := range l.items {
		if cur == it {
			return true
		}
	}
	return false
}

// Len 返回条目数
func (l *List[T]) Len() int {
	return len(l.items)
}

// Items 返回条目快照
func (l *List[T]) Items() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Free 从 Handler 移除所有条目、释放 Handler 并清空列表
func (l *List[T]) Free() {
	l.SetHandler(nil)
	l.items = nil
}
