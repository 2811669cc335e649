package unix

import "errors"

var (
	// ErrExactlyOneKey unix: 地址没有或给出了多个位置键
	ErrExactlyOneKey = errors.New(`must specify exactly one of "path", "dir", "tmpdir", "abstract" or "runtime"`)

	// ErrRuntimeValue runtime 的值不是 yes
	ErrRuntimeValue = errors.New(`if given, "runtime" must be "yes"`)

	// ErrRuntimeDirUnset 没有设置 XDG_RUNTIME_DIR
	ErrRuntimeDirUnset = errors.New(`"XDG_RUNTIME_DIR" is not set`)

	// ErrAbstractUnsupported 平台不支持抽象命名空间套接字
	ErrAbstractUnsupported = errors.New("abstract sockets are not supported on this platform")

	// ErrNotSocketActivated 进程不是由 systemd socket activation 启动
	ErrNotSocketActivated = errors.New("no socket received from systemd")
)
