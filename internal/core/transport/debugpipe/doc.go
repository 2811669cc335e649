// Package debugpipe 实现进程内 debug-pipe: 监听后端
//
// 服务器按名字登记在进程级注册表中，Dial 用 net.Pipe 创建一对连接，
// 服务端一半交给服务器的新连接处理函数，客户端一半返回给调用方。
//
//	server: debug-pipe:name=test
//	client: conn, err := debugpipe.Dial("test")
//
// 只用于测试，默认不启用。
package debugpipe
