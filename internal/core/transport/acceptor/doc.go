// Package acceptor 把 net.Listener 接入服务器的 Watch 协议
//
// 每个监听描述符对应一个 Readable Watch。事件循环报告可读时，Watch 的处理函数
// 执行一次非阻塞 accept 并把新连接交给 Host.HandleNewConnection。
//
// accept 遇到临时错误（文件描述符耗尽等）时暂停 Watch，并注册一个 Timeout，
// 在退避时长之后重新启用 Watch。
//
// 在没有原始描述符的平台上，Acceptor 退化为每个监听器一个 accept goroutine。
package acceptor
