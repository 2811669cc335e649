package msgbus

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"github.com/dep2p/go-msgbus/internal/core/transport/unix"
)

// ErrorKind 错误分类
type ErrorKind int

const (
	// KindFailed 未分类的失败
	KindFailed ErrorKind = iota
	// KindOutOfMemory 资源不足（包括事件循环拒绝 Watch/Timeout）
	KindOutOfMemory
	// KindBadAddress 地址无效，或没有后端认识它
	KindBadAddress
	// KindDidNotConnect 后端认识地址但绑定失败
	KindDidNotConnect
	// KindMisuseOfAPI API 误用
	KindMisuseOfAPI
	// KindReentrancyConflict Watch/Timeout 列表正被另一个变更占用
	KindReentrancyConflict
)

// String 返回分类名称
func (k ErrorKind) String() string {
	switch k {
	case KindOutOfMemory:
		return "out_of_memory"
	case KindBadAddress:
		return "bad_address"
	case KindDidNotConnect:
		return "did_not_connect"
	case KindMisuseOfAPI:
		return "misuse_of_api"
	case KindReentrancyConflict:
		return "reentrancy_conflict"
	default:
		return "failed"
	}
}

// 总线错误名
const (
	ErrorNameFailed       = "org.freedesktop.DBus.Error.Failed"
	ErrorNameNoMemory     = "org.freedesktop.DBus.Error.NoMemory"
	ErrorNameBadAddress   = "org.freedesktop.DBus.Error.BadAddress"
	ErrorNameAddressInUse = "org.freedesktop.DBus.Error.AddressInUse"
	ErrorNameAccessDenied = "org.freedesktop.DBus.Error.AccessDenied"
	ErrorNameFileNotFound = "org.freedesktop.DBus.Error.FileNotFound"
	ErrorNameNotSupported = "org.freedesktop.DBus.Error.NotSupported"
	ErrorNameInvalidArgs  = "org.freedesktop.DBus.Error.InvalidArgs"
)

// Error 公共 API 返回的错误
//
// errors.Is 按 Kind 匹配包级哨兵错误：
//
//	if errors.Is(err, msgbus.ErrBadAddress) { ... }
//
// Unwrap 暴露后端给出的原因，例如 fs.ErrPermission。
type Error struct {
	Kind    ErrorKind
	Name    string
	Message string
	Err     error
}

// 哨兵错误，只用于 errors.Is
var (
	ErrOutOfMemory        = &Error{Kind: KindOutOfMemory}
	ErrBadAddress         = &Error{Kind: KindBadAddress}
	ErrDidNotConnect      = &Error{Kind: KindDidNotConnect}
	ErrMisuseOfAPI        = &Error{Kind: KindMisuseOfAPI}
	ErrReentrancyConflict = &Error{Kind: KindReentrancyConflict}
)

// Error 实现 error
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Name == "" {
		return msg
	}
	return e.Name + ": " + msg
}

// Unwrap 返回原因
func (e *Error) Unwrap() error {
	return e.Err
}

// Is 与同 Kind 的哨兵错误匹配
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Name != "" || t.Message != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// newError 创建错误，Name 为空时由原因推导
func newError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Name:    errorName(kind, cause),
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

// errorName 按分类和原因选择总线错误名
func errorName(kind ErrorKind, cause error) string {
	switch kind {
	case KindBadAddress:
		return ErrorNameBadAddress
	case KindOutOfMemory:
		return ErrorNameNoMemory
	case KindMisuseOfAPI:
		return ErrorNameInvalidArgs
	}

	switch {
	case cause == nil:
		return ErrorNameFailed
	case errors.Is(cause, syscall.ENOMEM):
		return ErrorNameNoMemory
	case errors.Is(cause, syscall.EADDRINUSE):
		return ErrorNameAddressInUse
	case errors.Is(cause, fs.ErrPermission):
		return ErrorNameAccessDenied
	case errors.Is(cause, fs.ErrNotExist):
		return ErrorNameFileNotFound
	case errors.Is(cause, unix.ErrAbstractUnsupported), errors.Is(cause, unix.ErrRuntimeDirUnset):
		return ErrorNameNotSupported
	default:
		return ErrorNameFailed
	}
}

// kindOf 返回错误的分类，非 *Error 为 KindFailed
func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFailed
}
