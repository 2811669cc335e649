// Package unix 实现平台默认监听后端：unix: 和 systemd:
//
// unix: 需要且只能给出以下键之一：
//
//	path=<文件>       在给定路径上监听，已存在的陈旧套接字文件会先被删除
//	dir=<目录>        在目录中创建随机命名的套接字文件
//	tmpdir=<目录>     同 dir，支持时使用抽象命名空间（Linux）
//	abstract=<名字>   抽象命名空间套接字（仅 Linux）
//	runtime=yes       $XDG_RUNTIME_DIR/bus
//
// systemd: 使用 socket activation 传入的描述符（LISTEN_PID / LISTEN_FDS）。
//
// 文件系统套接字在 Disconnect 时被删除。非 unix 平台上所有方法都返回 NotHandled。
package unix
