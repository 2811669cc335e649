// Package transport 组装监听后端
//
// Registry 按固定优先级持有启用的后端：
//
//   - socket（tcp:）
//   - 平台默认（unix:、systemd:）
//   - debug-pipe（进程内，仅测试）
//
// 分发器对每个地址条目依次询问这些后端，直到某个后端认领它。
//
// # Fx 模块集成
//
//	app := fx.New(
//	    fx.Supply(config.NewConfig()),
//	    transport.Module(),
//	    fx.Invoke(func(r *transport.Registry) {
//	        // r.Backends()
//	    }),
//	)
package transport
