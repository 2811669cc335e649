package address

import "errors"

// ErrBadAddress 所有解析错误都包装此错误
var ErrBadAddress = errors.New("bad address")
