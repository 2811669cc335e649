// Package metrics 提供监听分发和服务器生命周期的 Prometheus 指标
//
// # 指标
//
//	<ns>_listen_attempts_total{backend,result}  每次后端尝试
//	<ns>_listen_failures_total{kind}            分发最终失败，按错误分类
//	<ns>_servers_active                         已创建且未销毁的服务器
//	<ns>_connections_accepted_total{backend}    交给应用的新连接
//
// nil *Collector 是合法的空操作收集器，关闭指标时调用方无需判空。
//
// # Fx 模块
//
//	app := fx.New(
//	    fx.Supply(config.NewConfig()),
//	    metrics.Module,
//	    fx.Invoke(func(c *metrics.Collector) {
//	        c.ServerCreated()
//	    }),
//	)
package metrics
