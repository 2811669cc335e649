package config

// ChecksConfig API 误用检查配置
type ChecksConfig struct {
	// FatalWarnings 误用时 panic 而不是只记录日志
	//
	// 也可以用环境变量 MSGBUS_FATAL_WARNINGS=1 开启。
	FatalWarnings bool `json:"fatal_warnings"`
}

// DefaultChecksConfig 返回默认检查配置
func DefaultChecksConfig() ChecksConfig {
	return ChecksConfig{}
}
