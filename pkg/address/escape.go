package address

import (
	"fmt"
	"strings"
)

const hexDigits = "0123456789abcdef"

// optionallyEscaped 报告字节是否可以不转义直接出现在值中
func optionallyEscaped(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '_', c == '/', c == '\\', c == '.', c == '*':
		return true
	}
	return false
}

// Escape 对参数值做百分号转义
func Escape(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if optionallyEscaped(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

// Unescape 还原百分号转义的参数值
//
// 未转义的字节必须属于可选转义集合，否则视为地址错误。
func Unescape(value string) (string, error) {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '%' {
			if i+2 >= len(value) {
				return "", fmt.Errorf("%w: in %q, percent character was not followed by two hex digits", ErrBadAddress, value)
			}
			hi, ok1 := unhex(value[i+1])
			lo, ok2 := unhex(value[i+2])
			if !ok1 || !ok2 {
				return "", fmt.Errorf("%w: in %q, percent character was followed by characters other than hex digits", ErrBadAddress, value)
			}
			b.WriteByte(hi<<4 | lo)
			i += 2
			continue
		}
		if !optionallyEscaped(c) {
			return "", fmt.Errorf("%w: character %q should have been escaped in address value %q", ErrBadAddress, c, value)
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
