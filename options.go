package msgbus

import (
	"errors"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/dep2p/go-msgbus/config"
	"github.com/dep2p/go-msgbus/internal/core/metrics"
	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
)

// Option 分发器配置选项
type Option func(*options) error

// options 内部选项结构
type options struct {
	config         *config.Config
	backends       []transportif.Backend
	registerer     prometheus.Registerer
	registererSet  bool
	collector      *metrics.Collector
	collectorSet   bool
	tracerProvider trace.TracerProvider
	clock          clock.Clock
}

// WithConfig 使用给定的统一配置（默认 config.NewConfig()）
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config must not be nil")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithBackends 使用给定的后端，顺序即优先级，覆盖配置中的后端开关
func WithBackends(backends ...transportif.Backend) Option {
	return func(o *options) error {
		for _, b := range backends {
			if b == nil {
				return errors.New("backend must not be nil")
			}
		}
		o.backends = append([]transportif.Backend(nil), backends...)
		return nil
	}
}

// WithRegisterer 把指标注册到 reg（默认 prometheus.DefaultRegisterer）；nil 表示不导出
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		o.registererSet = true
		return nil
	}
}

// WithTracerProvider 使用给定的 TracerProvider（默认 otel 全局）
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) error {
		o.tracerProvider = tp
		return nil
	}
}

// WithClock 使用给定的时钟生成 GUID 时间戳（测试用）
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		o.clock = clk
		return nil
	}
}

// withCollector 直接使用已创建的收集器（Fx 模块注入），优先于 WithRegisterer
func withCollector(c *metrics.Collector) Option {
	return func(o *options) error {
		o.collector = c
		o.collectorSet = true
		return nil
	}
}
