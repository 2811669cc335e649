//go:build unix

package unix

import (
	"fmt"
	"net"
	"os"
	"strconv"

	sysunix "golang.org/x/sys/unix"
	"go.uber.org/multierr"

	"github.com/dep2p/go-msgbus/internal/core/transport/acceptor"
	"github.com/dep2p/go-msgbus/pkg/address"
	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
)

// listenFDsStart socket activation 传入的第一个描述符
const listenFDsStart = 3

// listenSystemd 接管 systemd 传入的监听描述符
//
// 环境变量在读取后被清除，描述符只能被接管一次。
func (b *Backend) listenSystemd(entry *address.Entry) (transportif.ListenResult, transportif.Listener, error) {
	fds, err := activationFDs()
	if err != nil {
		return transportif.ListenDidNotConnect, nil, fmt.Errorf("%s: %w", entry, err)
	}

	var lns []net.Listener
	for _, fd := range fds {
		sysunix.CloseOnExec(fd)
		f := os.NewFile(uintptr(fd), "systemd-socket-"+strconv.Itoa(fd))
		ln, lerr := net.FileListener(f)
		err = multierr.Append(err, f.Close())
		if lerr != nil {
			err = multierr.Append(err, fmt.Errorf("fd %d: %w", fd, lerr))
			continue
		}
		lns = append(lns, ln)
	}
	if len(lns) == 0 {
		return transportif.ListenDidNotConnect, nil, multierr.Append(ErrNotSocketActivated, err)
	}
	if err != nil {
		logger.Warn("部分 systemd 描述符不可用", "error", err)
	}

	reported := acceptor.FormatAddr(lns[0].Addr())
	if reported == "" {
		reported = MethodSystemd + ":"
	}

	a, err := acceptor.New(Name, reported, lns, acceptor.WithBackoff(b.backoff))
	if err != nil {
		for _, ln := range lns {
			_ = ln.Close()
		}
		return transportif.ListenDidNotConnect, nil, err
	}

	logger.Debug("systemd 监听成功", "address", reported, "sockets", len(lns))
	return transportif.ListenOK, a, nil
}

// activationFDs 读取 LISTEN_PID / LISTEN_FDS
func activationFDs() ([]int, error) {
	pid, err := strconv.Atoi(os.Getenv("LISTEN_PID"))
	if err != nil || pid != os.Getpid() {
		return nil, ErrNotSocketActivated
	}
	n, err := strconv.Atoi(os.Getenv("LISTEN_FDS"))
	if err != nil || n <= 0 {
		return nil, ErrNotSocketActivated
	}

	_ = os.Unsetenv("LISTEN_PID")
	_ = os.Unsetenv("LISTEN_FDS")
	_ = os.Unsetenv("LISTEN_FDNAMES")

	fds := make([]int, n)
	for i := range fds {
		fds[i] = listenFDsStart + i
	}
	return fds, nil
}
