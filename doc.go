// Package msgbus 实现消息总线的监听端
//
// 服务器接受一个文本地址，在地址描述的传输端点上监听，并把新到达的对端连接
// 交给应用代码。连接建立之后的认证握手和消息收发不在本包范围内。
//
// # 快速开始
//
//	srv, err := msgbus.Listen("unix:tmpdir=/tmp;tcp:host=localhost")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Unref()
//	defer srv.Disconnect()
//
//	srv.SetNewConnectionHandler(msgbus.ConnectionHandlerFunc(func(s *msgbus.Server, c net.Conn) {
//	    // 握手、认证
//	}))
//	_ = srv.SetWatchFunctions(loop.WatchHandler())
//	_ = srv.SetTimeoutFunctions(loop.TimeoutHandler())
//
//	fmt.Println(srv.Address()) // unix:abstract=/tmp/dbus-XXXXXXXXXX,guid=...
//
// # 地址分发
//
// 地址由分号分隔的多个条目组成。分发器按顺序尝试每个条目，对每个条目按固定
// 优先级询问后端（tcp: → 平台默认 → debug-pipe），直到某个后端监听成功：
//
//   - 成功：立即返回服务器
//   - BadAddress：立即返回该错误
//   - DidNotConnect：记住第一个此类错误，继续尝试
//   - NotHandled：尝试下一个后端
//
// 没有任何后端认识地址时返回 BadAddress（"Unknown address type"），否则返回
// 第一个 DidNotConnect 错误。
//
// # 生命周期
//
// Listen 返回的服务器引用计数为 1。最后一次 Unref 之前必须调用 Disconnect；
// Disconnect 幂等，可以在任意 goroutine、包括应用回调中调用。
//
// # 事件循环集成
//
// 服务器不自带事件循环。后端通过 Watch（可读的监听描述符）和 Timeout（accept
// 退避）请求监视，应用通过 SetWatchFunctions / SetTimeoutFunctions 把它们接入
// 自己的事件循环。调用应用代码时服务器不持有锁，回调可以重入公共 API。
//
// # 并发安全
//
// Server 的所有方法都是并发安全的。契约违反（例如对已销毁的服务器调用方法）
// 记录警告并返回；设置 MSGBUS_FATAL_WARNINGS=1 后改为 panic。
package msgbus
