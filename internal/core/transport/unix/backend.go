//go:build unix

package unix

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dep2p/go-msgbus/config"
	"github.com/dep2p/go-msgbus/internal/core/transport/acceptor"
	"github.com/dep2p/go-msgbus/pkg/address"
	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
	"github.com/dep2p/go-msgbus/pkg/lib/log"
)

var logger = log.Logger("core/transport/unix")

// Backend 平台默认监听后端
type Backend struct {
	tmpdirAbstract bool
	backoff        time.Duration
}

// 确保实现接口
var _ transportif.Backend = (*Backend)(nil)

// New 创建平台默认后端
func New(cfg config.UnixConfig) *Backend {
	return &Backend{
		tmpdirAbstract: cfg.TmpdirAbstract && abstractSupported(),
		backoff:        cfg.AcceptBackoff.Duration(),
	}
}

// Name 实现 transport.Backend
func (b *Backend) Name() string {
	return Name
}

// Listen 实现 transport.Backend
func (b *Backend) Listen(ctx context.Context, entry *address.Entry) (transportif.ListenResult, transportif.Listener, error) {
	switch entry.Method() {
	case MethodUnix:
		return b.listenUnix(ctx, entry)
	case MethodSystemd:
		return b.listenSystemd(entry)
	default:
		return transportif.ListenNotHandled, nil, nil
	}
}

// socketLocation 解析后的 unix: 位置
type socketLocation struct {
	path     string
	abstract bool
}

// resolveLocation 把 unix: 条目转换为套接字位置
func (b *Backend) resolveLocation(entry *address.Entry) (socketLocation, transportif.ListenResult, error) {
	n := 0
	for _, k := range locationKeys {
		if entry.Has(k) {
			n++
		}
	}
	if n != 1 {
		return socketLocation{}, transportif.ListenBadAddress, fmt.Errorf("%s: %w", entry, ErrExactlyOneKey)
	}

	if v, ok := entry.Value("runtime"); ok {
		if v != "yes" {
			return socketLocation{}, transportif.ListenBadAddress, fmt.Errorf("%s: %w", entry, ErrRuntimeValue)
		}
		dir := os.Getenv("XDG_RUNTIME_DIR")
		if dir == "" {
			return socketLocation{}, transportif.ListenDidNotConnect, ErrRuntimeDirUnset
		}
		return socketLocation{path: filepath.Join(dir, "bus")}, transportif.ListenOK, nil
	}

	if v, ok := entry.Value("path"); ok {
		return socketLocation{path: v}, transportif.ListenOK, nil
	}

	if v, ok := entry.Value("abstract"); ok {
		if !abstractSupported() {
			return socketLocation{}, transportif.ListenDidNotConnect, ErrAbstractUnsupported
		}
		return socketLocation{path: v, abstract: true}, transportif.ListenOK, nil
	}

	dir, useTmp := entry.Value("tmpdir")
	if !useTmp {
		dir = entry.Get("dir")
	}
	name, err := randomSocketName()
	if err != nil {
		return socketLocation{}, transportif.ListenDidNotConnect, err
	}
	return socketLocation{
		path:     filepath.Join(dir, name),
		abstract: useTmp && b.tmpdirAbstract,
	}, transportif.ListenOK, nil
}

func (b *Backend) listenUnix(ctx context.Context, entry *address.Entry) (transportif.ListenResult, transportif.Listener, error) {
	loc, result, err := b.resolveLocation(entry)
	if err != nil {
		return result, nil, err
	}

	name := loc.path
	if loc.abstract {
		name = "@" + loc.path
	} else if err := removeStaleSocket(loc.path); err != nil {
		return transportif.ListenDidNotConnect, nil, err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", name)
	if err != nil {
		return transportif.ListenDidNotConnect, nil, fmt.Errorf("failed to bind socket %q: %w", loc.path, err)
	}

	opts := []acceptor.Option{acceptor.WithBackoff(b.backoff)}
	var reported string
	if loc.abstract {
		reported = address.Format(MethodUnix, "abstract", loc.path)
	} else {
		// 删除由 Disconnect 显式完成，便于报告错误
		ln.(*net.UnixListener).SetUnlinkOnClose(false)
		path := loc.path
		opts = append(opts, acceptor.WithCleanup(func() error {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return nil
		}))
		reported = address.Format(MethodUnix, "path", loc.path)
	}

	a, err := acceptor.New(Name, reported, []net.Listener{ln}, opts...)
	if err != nil {
		_ = ln.Close()
		return transportif.ListenDidNotConnect, nil, err
	}

	logger.Debug("unix 监听成功", "address", reported)
	return transportif.ListenOK, a, nil
}

// removeStaleSocket 删除路径上遗留的套接字文件，其他类型的文件保持不动
func removeStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return nil
	}
	if fi.Mode()&fs.ModeSocket == 0 {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket %q: %w", path, err)
	}
	logger.Debug("删除陈旧套接字", "path", path)
	return nil
}

func abstractSupported() bool {
	return runtime.GOOS == "linux" || runtime.GOOS == "android"
}
