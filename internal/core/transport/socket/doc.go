// Package socket 实现 tcp: 监听后端
//
// 地址键：
//
//	host    对外公布的主机名，默认 localhost
//	bind    实际绑定的主机，默认等于 host；"*" 表示所有接口
//	port    端口，默认 0（由系统选择）
//	family  ipv4 或 ipv6，限制解析出的地址族
//
// bind 解析出的每个地址都会被绑定，端口为 0 时第一个成功绑定的端口会被后续地址复用。
// 公布的地址为 tcp:host=<host>,port=<实际端口>[,family=<family>]。
//
// # 使用示例
//
//	b := socket.New(cfg.Transport.TCP)
//	result, l, err := b.Listen(ctx, entry)
package socket
