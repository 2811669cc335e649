package transport

import "errors"

var (
	// ErrNoBackends 没有启用任何后端
	ErrNoBackends = errors.New("no transport backends enabled")
)
