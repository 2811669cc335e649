package socket

import "errors"

var (
	// ErrInvalidPort 端口不是 0-65535 的十进制数
	ErrInvalidPort = errors.New("invalid port")

	// ErrUnknownFamily family 不是 ipv4 或 ipv6
	ErrUnknownFamily = errors.New("unknown address family")

	// ErrNoAddresses bind 主机没有解析出可用地址
	ErrNoAddresses = errors.New("no addresses to bind")
)
