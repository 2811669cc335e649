package unix

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	// Name 后端名称
	Name = "platform"

	// MethodUnix unix: 方法
	MethodUnix = "unix"

	// MethodSystemd systemd: 方法
	MethodSystemd = "systemd"

	randomNameLen = 10
	nameAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// locationKeys unix: 地址中互斥的位置键
var locationKeys = []string{"path", "dir", "tmpdir", "abstract", "runtime"}

// randomSocketName 生成 dbus-XXXXXXXXXX 形式的随机名字
func randomSocketName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate socket name: %w", err)
	}
	buf := make([]byte, randomNameLen)
	for i := range buf {
		buf[i] = nameAlphabet[int(id[i])%len(nameAlphabet)]
	}
	return "dbus-" + string(buf), nil
}
