package transport

import (
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-msgbus/config"
	"github.com/dep2p/go-msgbus/internal/core/transport/debugpipe"
	"github.com/dep2p/go-msgbus/internal/core/transport/socket"
	"github.com/dep2p/go-msgbus/internal/core/transport/unix"
	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
	"github.com/dep2p/go-msgbus/pkg/lib/log"
)

var logger = log.Logger("core/transport")

// Config 后端注册表配置
type Config struct {
	// 后端开关
	EnableSocket    bool
	EnablePlatform  bool
	EnableDebugPipe bool

	// TCP 配置
	TCP config.TCPConfig

	// Unix 配置
	Unix config.UnixConfig
}

// ConfigFromUnified 从统一配置创建注册表配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return NewConfig()
	}
	return Config{
		EnableSocket:    cfg.Transport.EnableSocket,
		EnablePlatform:  cfg.Transport.EnablePlatform,
		EnableDebugPipe: cfg.Transport.EnableDebugPipe,
		TCP:             cfg.Transport.TCP,
		Unix:            cfg.Transport.Unix,
	}
}

// NewConfig 创建默认配置
func NewConfig() Config {
	return ConfigFromUnified(config.NewConfig())
}

// Registry 按优先级排列的监听后端
type Registry struct {
	backends []transportif.Backend
}

// NewRegistry 按 socket → 平台默认 → debug-pipe 的顺序创建启用的后端
func NewRegistry(cfg Config) *Registry {
	if cfg.TCP.AcceptBackoff <= 0 {
		cfg.TCP.AcceptBackoff = config.Duration(time.Second)
	}
	if cfg.Unix.AcceptBackoff <= 0 {
		cfg.Unix.AcceptBackoff = config.Duration(time.Second)
	}

	r := &Registry{}
	if cfg.EnableSocket {
		r.backends = append(r.backends, socket.New(cfg.TCP))
	}
	if cfg.EnablePlatform {
		r.backends = append(r.backends, unix.New(cfg.Unix))
	}
	if cfg.EnableDebugPipe {
		r.backends = append(r.backends, debugpipe.New())
	}

	if len(r.backends) == 0 {
		logger.Warn("没有启用任何监听后端")
	} else {
		logger.Debug("后端注册表创建成功", "backends", r.names())
	}
	return r
}

// NewRegistryFrom 用给定的后端创建注册表，顺序即优先级
func NewRegistryFrom(backends ...transportif.Backend) *Registry {
	return &Registry{backends: append([]transportif.Backend(nil), backends...)}
}

// Backends 返回后端列表的副本
func (r *Registry) Backends() []transportif.Backend {
	return append([]transportif.Backend(nil), r.backends...)
}

// Lookup 按名字查找后端
func (r *Registry) Lookup(name string) (transportif.Backend, bool) {
	for _, b := range r.backends {
		if b.Name() == name {
			return b, true
		}
	}
	return nil, false
}

// Validate 检查至少有一个后端
func (r *Registry) Validate() error {
	if len(r.backends) == 0 {
		return ErrNoBackends
	}
	return nil
}

func (r *Registry) names() []string {
	out := make([]string, 0, len(r.backends))
	for _, b := range r.backends {
		out = append(out, b.Name())
	}
	return out
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(
			ProvideConfig,
			ProvideRegistry,
		),
	)
}

// ProvideConfig 从统一配置提供注册表配置
func ProvideConfig(cfg *config.Config) Config {
	return ConfigFromUnified(cfg)
}

// ProvideRegistry 提供后端注册表
func ProvideRegistry(cfg Config) (*Registry, error) {
	r := NewRegistry(cfg)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
