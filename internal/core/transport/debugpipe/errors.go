package debugpipe

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrMissingName 地址中没有 name
	ErrMissingName = errors.New(`debug-pipe address must have a "name"`)

	// ErrNameInUse 名字已被另一个服务器使用
	ErrNameInUse = fmt.Errorf("debug-pipe name already in use: %w", syscall.EADDRINUSE)

	// ErrNoServer 名字上没有正在监听的服务器
	ErrNoServer = errors.New("no debug-pipe server with that name")
)
