package msgbus

import (
	"github.com/dep2p/go-msgbus/pkg/mainloop"
)

// ════════════════════════════════════════════════════════════════════════════
//                              Watch / Timeout 变更协议
// ════════════════════════════════════════════════════════════════════════════
//
// 变更在不持有服务器锁的情况下调用应用的 Handler：
//
//	加锁 → 取出列表（字段置 nil）并持有临时引用 → 解锁
//	→ 调用 Handler → 加锁 → 放回列表 → 解锁 → 释放临时引用
//
// 列表被取出期间，其他变更看到 nil：Add 失败，Remove/Toggle 被丢弃。

// protectedChange 在取出的列表上执行 fn
//
// 列表正被另一个变更占用时不调用 fn，返回 busy 为 true。
func protectedChange[L any](s *Server, field **L, op string, fn func(*L) bool) (ok, busy bool) {
	s.mu.Lock()
	l := *field
	if l == nil {
		s.mu.Unlock()
		logger.Warn("列表正被占用，放弃变更", "op", op, "address", s.address)
		return false, true
	}
	*field = nil
	s.Ref()
	s.mu.Unlock()

	ok = fn(l)

	s.mu.Lock()
	*field = l
	s.mu.Unlock()
	s.Unref()
	return ok, false
}

func (s *Server) addWatch(w *mainloop.Watch) bool {
	ok, _ := protectedChange(s, &s.watches, "AddWatch", func(l *mainloop.WatchList) bool {
		return l.Add(w)
	})
	return ok
}

func (s *Server) removeWatch(w *mainloop.Watch) {
	protectedChange(s, &s.watches, "RemoveWatch", func(l *mainloop.WatchList) bool {
		l.Remove(w)
		return true
	})
}

func (s *Server) toggleWatch(w *mainloop.Watch, enabled bool) {
	protectedChange(s, &s.watches, "ToggleWatch", func(l *mainloop.WatchList) bool {
		l.Toggle(w, enabled)
		return true
	})
}

func (s *Server) addTimeout(t *mainloop.Timeout) bool {
	ok, _ := protectedChange(s, &s.timeouts, "AddTimeout", func(l *mainloop.TimeoutList) bool {
		return l.Add(t)
	})
	return ok
}

func (s *Server) removeTimeout(t *mainloop.Timeout) {
	protectedChange(s, &s.timeouts, "RemoveTimeout", func(l *mainloop.TimeoutList) bool {
		l.Remove(t)
		return true
	})
}

func (s *Server) toggleTimeout(t *mainloop.Timeout, enabled bool) {
	protectedChange(s, &s.timeouts, "ToggleTimeout", func(l *mainloop.TimeoutList) bool {
		l.Toggle(t, enabled)
		return true
	})
}

// setHandler 替换列表的 Handler，与单条变更使用同一协议
func setHandler[L any](s *Server, field **L, op string, set func(*L) bool) error {
	ok, busy := protectedChange(s, field, op, set)
	switch {
	case busy:
		return newError(KindReentrancyConflict, nil, "re-entrant call to %s()", op)
	case !ok:
		return newError(KindOutOfMemory, nil, "event loop rejected an item in %s()", op)
	default:
		return nil
	}
}

// SetWatchFunctions 设置接收 Watch 的 Handler
//
// 现有的 Watch 先全部交给新 Handler；任一被拒绝时撤销并返回 KindOutOfMemory
// 错误，旧 Handler 保持不变。成功后旧 Handler 移除所有 Watch 并被 Release。
// 在另一个 Watch 变更进行中（例如在 Handler 的回调里）调用时返回
// KindReentrancyConflict 错误。
func (s *Server) SetWatchFunctions(h mainloop.WatchHandler) error {
	if !s.alive("SetWatchFunctions") {
		return newError(KindMisuseOfAPI, nil, "SetWatchFunctions() called on a finalized server")
	}
	return setHandler(s, &s.watches, "SetWatchFunctions", func(l *mainloop.WatchList) bool {
		return l.SetHandler(h)
	})
}

// SetTimeoutFunctions 设置接收 Timeout 的 Handler，语义同 SetWatchFunctions
func (s *Server) SetTimeoutFunctions(h mainloop.TimeoutHandler) error {
	if !s.alive("SetTimeoutFunctions") {
		return newError(KindMisuseOfAPI, nil, "SetTimeoutFunctions() called on a finalized server")
	}
	return setHandler(s, &s.timeouts, "SetTimeoutFunctions", func(l *mainloop.TimeoutList) bool {
		return l.SetHandler(h)
	})
}
