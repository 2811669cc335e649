package socket

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/dep2p/go-msgbus/config"
	"github.com/dep2p/go-msgbus/internal/core/transport/acceptor"
	"github.com/dep2p/go-msgbus/pkg/address"
	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
	"github.com/dep2p/go-msgbus/pkg/lib/log"
)

var logger = log.Logger("core/transport/socket")

// Name 后端名称
const Name = "socket"

// Method 处理的地址方法
const Method = "tcp"

// bindAll 为 "*" 时绑定所有接口
const bindAll = "*"

// Backend tcp: 监听后端
type Backend struct {
	defaultHost string
	backoff     time.Duration
}

// 确保实现接口
var _ transportif.Backend = (*Backend)(nil)

// New 创建 tcp: 后端
func New(cfg config.TCPConfig) *Backend {
	host := cfg.DefaultHost
	if host == "" {
		host = "localhost"
	}
	return &Backend{
		defaultHost: host,
		backoff:     cfg.AcceptBackoff.Duration(),
	}
}

// Name 实现 transport.Backend
func (b *Backend) Name() string {
	return Name
}

// Listen 实现 transport.Backend
func (b *Backend) Listen(ctx context.Context, entry *address.Entry) (transportif.ListenResult, transportif.Listener, error) {
	if entry.Method() != Method {
		return transportif.ListenNotHandled, nil, nil
	}

	host := entry.Get("host")
	if host == "" {
		host = b.defaultHost
	}
	bind := entry.Get("bind")
	if bind == "" {
		bind = host
	}
	port := entry.Get("port")
	if port == "" {
		port = "0"
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return transportif.ListenBadAddress, nil, fmt.Errorf("%w %q in %s", ErrInvalidPort, port, entry)
	}
	family := entry.Get("family")
	network, err := networkFor(family)
	if err != nil {
		return transportif.ListenBadAddress, nil, fmt.Errorf("%w %q in %s", err, family, entry)
	}

	lns, actualPort, err := listenAll(ctx, network, bind, port)
	if err != nil {
		return transportif.ListenDidNotConnect, nil, fmt.Errorf("failed to listen on %s: %w", entry, err)
	}

	kv := []string{"host", host, "port", actualPort}
	if family != "" {
		kv = append(kv, "family", family)
	}
	reported := address.Format(Method, kv...)

	a, err := acceptor.New(Name, reported, lns, acceptor.WithBackoff(b.backoff))
	if err != nil {
		for _, ln := range lns {
			_ = ln.Close()
		}
		return transportif.ListenDidNotConnect, nil, err
	}

	logger.Debug("tcp 监听成功", "address", reported, "sockets", len(lns))
	return transportif.ListenOK, a, nil
}

// networkFor 返回地址族对应的网络名
func networkFor(family string) (string, error) {
	switch family {
	case "":
		return "tcp", nil
	case "ipv4":
		return "tcp4", nil
	case "ipv6":
		return "tcp6", nil
	default:
		return "", ErrUnknownFamily
	}
}

// listenAll 在 bind 解析出的每个地址上监听
//
// 至少一个地址成功即返回成功；全部失败时返回第一个错误。
func listenAll(ctx context.Context, network, bind, port string) ([]net.Listener, string, error) {
	hosts, err := resolve(ctx, network, bind)
	if err != nil {
		return nil, "", err
	}

	var (
		lc       net.ListenConfig
		lns      []net.Listener
		firstErr error
	)
	for _, h := range hosts {
		ln, err := lc.Listen(ctx, network, net.JoinHostPort(h, port))
		if err != nil {
			logger.Debug("绑定失败", "host", h, "port", port, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if port == "0" {
			port = strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
		}
		lns = append(lns, ln)
	}

	if len(lns) == 0 {
		if firstErr == nil {
			firstErr = ErrNoAddresses
		}
		return nil, "", firstErr
	}
	return lns, port, nil
}

// resolve 解析 bind 主机，按网络过滤地址族
func resolve(ctx context.Context, network, bind string) ([]string, error) {
	if bind == bindAll {
		return []string{""}, nil
	}
	if ip := net.ParseIP(bind); ip != nil {
		if !familyMatches(network, ip) {
			return nil, fmt.Errorf("%s: %w", bind, ErrNoAddresses)
		}
		return []string{bind}, nil
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, bind)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup host %q: %w", bind, err)
	}
	var out []string
	for _, a := range addrs {
		if familyMatches(network, a.IP) {
			out = append(out, a.IP.String())
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", bind, ErrNoAddresses)
	}
	return out, nil
}

func familyMatches(network string, ip net.IP) bool {
	switch network {
	case "tcp4":
		return ip.To4() != nil
	case "tcp6":
		return ip.To4() == nil
	default:
		return true
	}
}
