package config

import "errors"

// ValidateAll 验证整个配置，允许传入 nil
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并修复可以自动修复的问题
//
// 可修复的问题：
//   - 所有后端都被关闭 -> 重新启用 socket 与平台默认后端
//   - 空的默认主机 -> localhost
//   - 非正的 accept 退避时长 -> 默认值
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	def := DefaultTransportConfig()
	t := &c.Transport
	if !t.EnableSocket && !t.EnablePlatform && !t.EnableDebugPipe {
		t.EnableSocket = true
		t.EnablePlatform = true
	}
	if t.TCP.DefaultHost == "" {
		t.TCP.DefaultHost = def.TCP.DefaultHost
	}
	if t.TCP.AcceptBackoff <= 0 {
		t.TCP.AcceptBackoff = def.TCP.AcceptBackoff
	}
	if t.Unix.AcceptBackoff <= 0 {
		t.Unix.AcceptBackoff = def.Unix.AcceptBackoff
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
