package msgbus

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-msgbus/config"
	"github.com/dep2p/go-msgbus/internal/core/metrics"
	"github.com/dep2p/go-msgbus/internal/core/transport"
)

// dispatcherParams 分发器依赖
type dispatcherParams struct {
	fx.In

	Config         *config.Config
	Registry       *transport.Registry
	Collector      *metrics.Collector   `optional:"true"`
	TracerProvider trace.TracerProvider `optional:"true"`
}

// Module 返回 Fx 模块：提供 *Dispatcher 和在 addr 上监听的 *Server
//
// 需要容器中已有 *config.Config。服务器在 OnStop 时断开并释放。
func Module(addr string) fx.Option {
	return fx.Module("msgbus",
		transport.Module(),
		metrics.Module,
		fx.Provide(
			provideDispatcher,
			func(lc fx.Lifecycle, d *Dispatcher) (*Server, error) {
				return provideServer(lc, d, addr)
			},
		),
		fx.Invoke(func(*Server) {}),
	)
}

func provideDispatcher(p dispatcherParams) (*Dispatcher, error) {
	opts := []Option{
		WithConfig(p.Config),
		WithBackends(p.Registry.Backends()...),
		withCollector(p.Collector),
	}
	if p.TracerProvider != nil {
		opts = append(opts, WithTracerProvider(p.TracerProvider))
	}
	return NewDispatcher(opts...)
}

func provideServer(lc fx.Lifecycle, d *Dispatcher, addr string) (*Server, error) {
	srv, err := d.Listen(context.Background(), addr)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			srv.Disconnect()
			srv.Unref()
			return nil
		},
	})
	return srv, nil
}

// NewApp 创建在 addr 上监听的 Fx 应用
//
// opts 追加在内置模块之后，通常是 fx.Invoke 设置处理函数。
func NewApp(cfg *config.Config, addr string, opts ...fx.Option) *fx.App {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	modules := []fx.Option{
		fx.Supply(cfg),
		Module(addr),
	}
	modules = append(modules, opts...)
	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)
	return fx.New(modules...)
}
