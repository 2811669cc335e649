// Package mainloop 定义服务器与外部事件循环之间的通知对象
//
// 服务器不自带事件循环。它通过 Watch（需要监视的文件描述符）和
// Timeout（需要周期调用的定时器）告诉应用的事件循环该做什么：
//
//	srv.SetWatchFunctions(&mainloop.WatchFuncs{
//	    AddFunc: func(w *mainloop.Watch) bool {
//	        loop.AddFD(w.FD(), w.Flags(), func(f mainloop.Flags) { w.Handle(f) })
//	        return true
//	    },
//	    RemoveFunc:  func(w *mainloop.Watch) { loop.RemoveFD(w.FD()) },
//	    ToggledFunc: func(w *mainloop.Watch) { loop.Enable(w.FD(), w.Enabled()) },
//	})
//
// # 并发安全
//
// Watch/Timeout 的读取方法可以在任意 goroutine 调用。List 本身不加锁，
// 由拥有它的服务器负责串行化（见服务器的 watch 变更协议）。
package mainloop
