package msgbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dep2p/go-msgbus/config"
	"github.com/dep2p/go-msgbus/internal/core/guid"
	"github.com/dep2p/go-msgbus/internal/core/metrics"
	"github.com/dep2p/go-msgbus/internal/core/transport"
	"github.com/dep2p/go-msgbus/internal/util/check"
	"github.com/dep2p/go-msgbus/pkg/address"
	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
)

const tracerName = "github.com/dep2p/go-msgbus"

// ════════════════════════════════════════════════════════════════════════════
//                              Dispatcher
// ════════════════════════════════════════════════════════════════════════════

// Dispatcher 把地址分发给后端并创建服务器
type Dispatcher struct {
	config   *config.Config
	backends []transportif.Backend
	metrics  *metrics.Collector
	tracer   trace.Tracer
	clock    clock.Clock
}

// NewDispatcher 创建分发器
func NewDispatcher(opts ...Option) (*Dispatcher, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	cfg := o.config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if cfg.Checks.FatalWarnings {
		check.SetFatal(true)
	}

	backends := o.backends
	if backends == nil {
		reg := transport.NewRegistry(transport.ConfigFromUnified(cfg))
		if err := reg.Validate(); err != nil {
			return nil, err
		}
		backends = reg.Backends()
	}

	collector := o.collector
	if !o.collectorSet && cfg.Metrics.Enabled {
		reg := o.registerer
		if !o.registererSet {
			reg = prometheus.DefaultRegisterer
		}
		if reg != nil {
			m, err := metrics.New(reg, cfg.Metrics.Namespace)
			if err != nil {
				return nil, err
			}
			collector = m
		}
	}

	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	clk := o.clock
	if clk == nil {
		clk = clock.New()
	}

	return &Dispatcher{
		config:   cfg,
		backends: backends,
		metrics:  collector,
		tracer:   tp.Tracer(tracerName),
		clock:    clk,
	}, nil
}

// Config 返回分发器使用的配置
func (d *Dispatcher) Config() *config.Config {
	return d.config
}

// Listen 在地址上监听
//
// 返回的服务器引用计数为 1，调用方负责 Disconnect 和 Unref。
// 错误都是 *Error，Kind 为 KindBadAddress、KindDidNotConnect 或 KindOutOfMemory。
func (d *Dispatcher) Listen(ctx context.Context, addr string) (srv *Server, err error) {
	ctx, span := d.tracer.Start(ctx, "msgbus.Listen",
		trace.WithAttributes(attribute.String("msgbus.address", addr)))
	defer func() {
		if err != nil {
			d.metrics.ListenFailure(kindOf(err).String())
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("msgbus.server.address", srv.address))
		}
		span.End()
	}()

	entries, perr := address.Parse(addr)
	if perr != nil {
		return nil, newError(KindBadAddress, perr, "%v", perr)
	}

	var (
		firstErr    error
		handledOnce bool
	)
	for _, entry := range entries {
		if entry.Has("guid") {
			return nil, newError(KindBadAddress, nil, "address entry %q must not contain a guid", entry.String())
		}

		for _, b := range d.backends {
			result, l, berr := b.Listen(ctx, entry)
			d.metrics.ListenAttempt(b.Name(), result.String())
			span.AddEvent("listen.attempt", trace.WithAttributes(
				attribute.String("backend", b.Name()),
				attribute.String("method", entry.Method()),
				attribute.String("result", result.String()),
			))

			switch result {
			case transportif.ListenOK:
				return d.newServer(b.Name(), l)
			case transportif.ListenBadAddress:
				return nil, newError(KindBadAddress, berr, "%v", berr)
			case transportif.ListenDidNotConnect:
				handledOnce = true
				if firstErr == nil {
					firstErr = newError(KindDidNotConnect, berr, "%v", berr)
				}
				logger.Debug("后端未能监听，继续尝试", "backend", b.Name(), "entry", entry.String(), "error", berr)
			case transportif.ListenNotHandled:
			}
		}
	}

	if !handledOnce {
		if len(entries) > 0 {
			return nil, newError(KindBadAddress, nil, "Unknown address type '%s'", entries[0].Method())
		}
		return nil, newError(KindBadAddress, nil, "Empty address '%s'", addr)
	}
	return nil, firstErr
}

// newServer 为监听成功的后端创建服务器并绑定监听器
func (d *Dispatcher) newServer(backend string, l transportif.Listener) (*Server, error) {
	id, err := guid.Generate(d.clock)
	if err != nil {
		l.Disconnect()
		l.Finalize()
		return nil, newError(KindOutOfMemory, err, "generate server guid: %v", err)
	}

	s := newServer(backend, l, id, d.metrics)
	if err := l.Attach(serverHost{s: s}); err != nil {
		s.Disconnect()
		s.Unref()
		return nil, newError(KindDidNotConnect, err, "attach listener: %v", err)
	}

	logger.Info("服务器开始监听", "address", s.address, "backend", backend)
	return s, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              包级入口
// ════════════════════════════════════════════════════════════════════════════

var defaultDispatcher = sync.OnceValues(func() (*Dispatcher, error) {
	return NewDispatcher()
})

// Listen 用默认配置在地址上监听
func Listen(addr string) (*Server, error) {
	return ListenContext(context.Background(), addr)
}

// ListenContext 同 Listen，ctx 用于名字解析等阻塞操作
func ListenContext(ctx context.Context, addr string) (*Server, error) {
	d, err := defaultDispatcher()
	if err != nil {
		return nil, err
	}
	return d.Listen(ctx, addr)
}
