package acceptor

import (
	"net"
	"strconv"
	"strings"

	"github.com/dep2p/go-msgbus/pkg/address"
)

// FormatAddr 把监听地址格式化为总线地址条目
//
//	127.0.0.1:5555   -> tcp:host=127.0.0.1,port=5555,family=ipv4
//	/tmp/bus         -> unix:path=/tmp/bus
//	@/tmp/dbus-xxxx  -> unix:abstract=/tmp/dbus-xxxx
//
// 不认识的地址类型返回空字符串。
func FormatAddr(a net.Addr) string {
	switch v := a.(type) {
	case *net.TCPAddr:
		family := "ipv6"
		if v.IP.To4() != nil {
			family = "ipv4"
		}
		return address.Format("tcp", "host", v.IP.String(), "port", strconv.Itoa(v.Port), "family", family)
	case *net.UnixAddr:
		if name, ok := strings.CutPrefix(v.Name, "@"); ok {
			return address.Format("unix", "abstract", name)
		}
		return address.Format("unix", "path", v.Name)
	default:
		return ""
	}
}
