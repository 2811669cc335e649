package address

import (
	"fmt"
	"strings"
)

// Entry 一个解析后的地址条目：方法名加有序参数
type Entry struct {
	method string
	keys   []string
	values map[string]string
}

// NewEntry 创建地址条目，kv 为交替的 key、value
//
// 主要供测试和后端构造地址使用；重复的 key 以最后一次为准。
func NewEntry(method string, kv ...string) *Entry {
	e := &Entry{method: method, values: make(map[string]string)}
	for i := 0; i+1 < len(kv); i += 2 {
		e.set(kv[i], kv[i+1])
	}
	return e
}

func (e *Entry) set(key, value string) {
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

// Method 返回传输方法名，如 "unix"、"tcp"
func (e *Entry) Method() string {
	return e.method
}

// Value 返回参数值及其是否存在
func (e *Entry) Value(key string) (string, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Get 返回参数值，不存在时返回空串
func (e *Entry) Get(key string) string {
	return e.values[key]
}

// Has 检查参数是否存在
func (e *Entry) Has(key string) bool {
	_, ok := e.values[key]
	return ok
}

// Keys 按出现顺序返回参数名
func (e *Entry) Keys() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// String 返回规范化（已转义）的条目字符串
func (e *Entry) String() string {
	kv := make([]string, 0, 2*len(e.keys))
	for _, k := range e.keys {
		kv = append(kv, k, e.values[k])
	}
	return Format(e.method, kv...)
}

// Format 用方法名和交替的 key、value 拼出一个地址条目，value 会被转义
//
//	address.Format("unix", "path", "/tmp/my bus") // "unix:path=/tmp/my%20bus"
func Format(method string, kv ...string) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(':')
	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(kv[i])
		b.WriteByte('=')
		b.WriteString(Escape(kv[i+1]))
	}
	return b.String()
}

// Parse 解析地址字符串
//
// 空条目（如末尾多余的分号）被跳过；没有任何条目时返回空切片而不是错误，
// 由调用方决定如何报告空地址。
func Parse(address string) ([]*Entry, error) {
	var entries []*Entry
	for _, raw := range strings.Split(address, ";") {
		if raw == "" {
			continue
		}
		e, err := parseEntry(raw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseEntry(raw string) (*Entry, error) {
	method, params, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, fmt.Errorf("%w: address %q does not contain a colon", ErrBadAddress, raw)
	}
	if method == "" {
		return nil, fmt.Errorf("%w: address %q has an empty method", ErrBadAddress, raw)
	}

	e := &Entry{method: method, values: make(map[string]string)}
	if params == "" {
		return e, nil
	}

	for _, elem := range strings.Split(params, ",") {
		key, value, ok := strings.Cut(elem, "=")
		if !ok {
			return nil, fmt.Errorf("%w: address element %q does not contain '='", ErrBadAddress, elem)
		}
		if key == "" {
			return nil, fmt.Errorf("%w: address element %q has an empty key", ErrBadAddress, elem)
		}
		if e.Has(key) {
			return nil, fmt.Errorf("%w: address key %q appears more than once", ErrBadAddress, key)
		}
		unescaped, err := Unescape(value)
		if err != nil {
			return nil, err
		}
		e.set(key, unescaped)
	}
	return e, nil
}
