package acceptor

import "errors"

var (
	// ErrWatchRejected 事件循环拒绝了监听描述符的 Watch
	ErrWatchRejected = errors.New("event loop rejected listen watch")

	// ErrAlreadyAttached Acceptor 已经绑定到服务器
	ErrAlreadyAttached = errors.New("acceptor already attached")

	// ErrClosed Acceptor 已关闭
	ErrClosed = errors.New("acceptor closed")
)
