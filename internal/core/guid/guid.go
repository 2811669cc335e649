// Package guid 生成服务器的全局唯一标识
//
// GUID 共 128 位：前 12 字节随机，后 4 字节是大端序的 Unix 秒级时间戳，
// 对外以 32 个小写十六进制字符表示。
package guid

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// Size GUID 字节数
const Size = 16

// HexLen 十六进制形式的长度
const HexLen = 2 * Size

const randomBytes = 12

// ErrInvalidGUID 无效的 GUID 字符串
var ErrInvalidGUID = errors.New("invalid guid")

// GUID 128 位标识
type GUID [Size]byte

// Generate 生成新的 GUID，时间戳取自 clk；clk 为 nil 时使用系统时钟
func Generate(clk clock.Clock) (GUID, error) {
	if clk == nil {
		clk = clock.New()
	}

	var g GUID
	r, err := uuid.NewRandom()
	if err != nil {
		return g, fmt.Errorf("generate guid: %w", err)
	}
	copy(g[:randomBytes], r[:randomBytes])
	binary.BigEndian.PutUint32(g[randomBytes:], uint32(clk.Now().Unix()))
	return g, nil
}

// Parse 解析 32 字符的十六进制 GUID
func Parse(s string) (GUID, error) {
	var g GUID
	if len(s) != HexLen {
		return g, fmt.Errorf("%w: %q has length %d, want %d", ErrInvalidGUID, s, len(s), HexLen)
	}
	if _, err := hex.Decode(g[:], []byte(s)); err != nil {
		return g, fmt.Errorf("%w: %q: %v", ErrInvalidGUID, s, err)
	}
	return g, nil
}

// String 返回小写十六进制形式
func (g GUID) String() string {
	return hex.EncodeToString(g[:])
}

// Timestamp 返回生成时记录的时间（秒精度）
func (g GUID) Timestamp() time.Time {
	return time.Unix(int64(binary.BigEndian.Uint32(g[randomBytes:])), 0)
}

// IsZero 检查是否为零值
func (g GUID) IsZero() bool {
	return g == GUID{}
}
