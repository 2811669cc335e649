package config

import (
	"errors"
	"time"
)

// TransportConfig 监听后端配置
//
// 后端按固定优先级尝试：socket → 平台默认 → debug-pipe。
// 关闭的后端不会出现在分发列表中。
type TransportConfig struct {
	// EnableSocket 启用 tcp: 后端
	EnableSocket bool `json:"enable_socket"`

	// EnablePlatform 启用平台默认后端（unix:、systemd:）
	EnablePlatform bool `json:"enable_platform"`

	// EnableDebugPipe 启用进程内 debug-pipe: 后端，仅用于测试
	EnableDebugPipe bool `json:"enable_debug_pipe"`

	// TCP 配置
	TCP TCPConfig `json:"tcp"`

	// Unix 配置
	Unix UnixConfig `json:"unix"`
}

// TCPConfig tcp: 后端配置
type TCPConfig struct {
	// DefaultHost 地址中未给出 host 时使用的主机名
	DefaultHost string `json:"default_host"`

	// AcceptBackoff accept 遇到临时错误（如文件描述符耗尽）后暂停监视的时长
	AcceptBackoff Duration `json:"accept_backoff"`
}

// UnixConfig unix: 后端配置
type UnixConfig struct {
	// TmpdirAbstract tmpdir= 在支持的平台上使用抽象命名空间
	TmpdirAbstract bool `json:"tmpdir_abstract"`

	// AcceptBackoff accept 遇到临时错误后暂停监视的时长
	AcceptBackoff Duration `json:"accept_backoff"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		EnableSocket:    true,
		EnablePlatform:  true,
		EnableDebugPipe: false,
		TCP: TCPConfig{
			DefaultHost:   "localhost",
			AcceptBackoff: Duration(time.Second),
		},
		Unix: UnixConfig{
			TmpdirAbstract: true,
			AcceptBackoff:  Duration(time.Second),
		},
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	if !c.EnableSocket && !c.EnablePlatform && !c.EnableDebugPipe {
		return errors.New("at least one transport backend must be enabled")
	}
	if c.TCP.DefaultHost == "" {
		return errors.New("tcp default host must not be empty")
	}
	if c.TCP.AcceptBackoff <= 0 {
		return errors.New("tcp accept backoff must be positive")
	}
	if c.Unix.AcceptBackoff <= 0 {
		return errors.New("unix accept backoff must be positive")
	}
	return nil
}
