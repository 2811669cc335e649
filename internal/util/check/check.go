// Package check 报告 API 误用（契约违反）
//
// 误用默认只记录 Warn 日志，调用方随后按"优雅降级"返回失败；
// 开启致命模式后（SetFatal(true) 或 MSGBUS_FATAL_WARNINGS=1）直接 panic，
// 用于测试和调试构建中尽早暴露问题。
package check

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/dep2p/go-msgbus/pkg/lib/log"
)

var logger = log.Logger("util/check")

var fatal atomic.Bool

func init() {
	if v := os.Getenv("MSGBUS_FATAL_WARNINGS"); v == "1" || v == "true" {
		fatal.Store(true)
	}
}

// Violation 是致命模式下 panic 的值
type Violation struct {
	Msg string
}

func (v *Violation) Error() string {
	return v.Msg
}

// SetFatal 设置是否将契约违反视为致命错误，返回之前的设置
func SetFatal(on bool) bool {
	return fatal.Swap(on)
}

// Fatal 返回当前是否为致命模式
func Fatal() bool {
	return fatal.Load()
}

// Failed 报告一次契约违反
func Failed(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Warn("API 误用", "msg", msg)
	if fatal.Load() {
		panic(&Violation{Msg: msg})
	}
}

// Arg 在 cond 为假时报告参数错误，返回 cond
//
//	if !check.Arg(slot >= 0, "SetData", "slot >= 0") {
//	    return errInvalidSlot
//	}
func Arg(cond bool, function, assertion string) bool {
	if !cond {
		Failed("arguments to %s() were incorrect, assertion %q failed", function, assertion)
	}
	return cond
}
