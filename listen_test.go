package msgbus

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-msgbus/config"
	"github.com/dep2p/go-msgbus/internal/core/guid"
	"github.com/dep2p/go-msgbus/pkg/address"
	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
)

func closeServer(srv *Server) {
	srv.Disconnect()
	srv.Unref()
}

// ============================================================================
//                              错误优先级
// ============================================================================

func TestListen_UnknownMethod(t *testing.T) {
	d := newFakeDispatcher(t)
	srv, err := d.Listen(context.Background(), "bogus:;also-bogus:")
	require.Nil(t, srv)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadAddress)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, ErrorNameBadAddress, e.Name)
	assert.Equal(t, "Unknown address type 'bogus'", e.Message)
}

func TestListen_EmptyAddress(t *testing.T) {
	d := newFakeDispatcher(t)
	for _, addr := range []string{"", ";", ";;"} {
		_, err := d.Listen(context.Background(), addr)
		var e *Error
		require.True(t, errors.As(err, &e), addr)
		assert.Equal(t, KindBadAddress, e.Kind)
		assert.Equal(t, "Empty address '"+addr+"'", e.Message)
	}
}

func TestListen_ParseError(t *testing.T) {
	d := newFakeDispatcher(t)
	_, err := d.Listen(context.Background(), "no-colon-here")
	assert.ErrorIs(t, err, ErrBadAddress)
	assert.ErrorIs(t, err, address.ErrBadAddress)
}

func TestListen_GUIDKeyRejected(t *testing.T) {
	b := &fakeBackend{name: "fake", method: "fake"}
	d := newFakeDispatcher(t, b)
	_, err := d.Listen(context.Background(), "fake:guid=0123456789abcdef0123456789abcdef")
	assert.ErrorIs(t, err, ErrBadAddress)
	assert.Equal(t, int32(0), b.calls.Load())
}

func TestListen_FirstDidNotConnectWins(t *testing.T) {
	first := &fakeBackend{name: "a", method: "a", result: transportif.ListenDidNotConnect, err: errors.New("first")}
	second := &fakeBackend{name: "b", method: "b", result: transportif.ListenDidNotConnect, err: errors.New("second")}
	d := newFakeDispatcher(t, first, second)

	_, err := d.Listen(context.Background(), "b:;a:")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDidNotConnect)
	assert.Contains(t, err.Error(), "second", "按条目顺序记录第一个错误")
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(1), second.calls.Load())
}

func TestListen_DidNotConnectThenOK(t *testing.T) {
	failing := &fakeBackend{name: "a", method: "a", result: transportif.ListenDidNotConnect, err: errors.New("nope")}
	ok := &fakeBackend{name: "fake", method: "fake"}
	d := newFakeDispatcher(t, failing, ok)

	srv, err := d.Listen(context.Background(), "a:;fake:id=2")
	require.NoError(t, err)
	defer closeServer(srv)
	assert.Equal(t, "fake", srv.Backend())
}

func TestListen_BadAddressTerminal(t *testing.T) {
	bad := &fakeBackend{name: "a", method: "a", result: transportif.ListenBadAddress, err: errors.New("bad key")}
	ok := &fakeBackend{name: "fake", method: "fake"}
	d := newFakeDispatcher(t, bad, ok)

	_, err := d.Listen(context.Background(), "a:;fake:id=3")
	assert.ErrorIs(t, err, ErrBadAddress)
	assert.Contains(t, err.Error(), "bad key")
	assert.Equal(t, int32(0), ok.calls.Load(), "BadAddress 之后不再尝试")
}

func TestListen_UnhandledThenDidNotConnect(t *testing.T) {
	failing := &fakeBackend{name: "a", method: "a", result: transportif.ListenDidNotConnect, err: syscall.EADDRINUSE}
	d := newFakeDispatcher(t, failing)

	_, err := d.Listen(context.Background(), "bogus:;a:")
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, KindDidNotConnect, e.Kind)
	assert.Equal(t, ErrorNameAddressInUse, e.Name)
	assert.ErrorIs(t, err, syscall.EADDRINUSE)
}

func TestListen_AttachFailure(t *testing.T) {
	b := &fakeBackend{
		name:   "fake",
		method: "fake",
		attach: func(*fakeListener, transportif.Host) error { return errors.New("no event loop") },
	}
	d := newFakeDispatcher(t, b)

	srv, err := d.Listen(context.Background(), "fake:id=4")
	assert.Nil(t, srv)
	assert.ErrorIs(t, err, ErrDidNotConnect)

	l := b.last()
	require.NotNil(t, l)
	assert.Equal(t, int32(1), l.disconnects.Load())
	assert.Equal(t, int32(1), l.finalizes.Load())
}

// ============================================================================
//                              GUID 与地址
// ============================================================================

func TestListen_GUIDAppendedOnce(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))

	d, err := NewDispatcher(
		WithBackends(&fakeBackend{name: "fake", method: "fake"}),
		WithRegisterer(nil),
		WithClock(mock),
	)
	require.NoError(t, err)

	srv, err := d.Listen(context.Background(), "fake:id=5")
	require.NoError(t, err)
	defer closeServer(srv)

	addr := srv.Address()
	assert.Equal(t, 1, strings.Count(addr, "guid="))
	assert.Equal(t, "fake:id=5,guid="+srv.GUID(), addr)
	assert.Len(t, srv.GUID(), 32)
	assert.Equal(t, strings.ToLower(srv.GUID()), srv.GUID())

	entries, err := address.Parse(addr)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, srv.GUID(), entries[0].Get("guid"))

	id, err := guid.Parse(srv.GUID())
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), id.Timestamp().Unix())
}

func TestListen_GUIDOnKeylessAddress(t *testing.T) {
	d := newFakeDispatcher(t)
	srv, err := d.Listen(context.Background(), "fake:")
	require.NoError(t, err)
	defer closeServer(srv)

	entries, err := address.Parse(srv.Address())
	require.NoError(t, err)
	assert.Equal(t, []string{"guid"}, entries[0].Keys())
}

func TestListen_DistinctGUIDs(t *testing.T) {
	d := newFakeDispatcher(t)
	s1, err := d.Listen(context.Background(), "fake:id=a")
	require.NoError(t, err)
	defer closeServer(s1)
	s2, err := d.Listen(context.Background(), "fake:id=b")
	require.NoError(t, err)
	defer closeServer(s2)

	assert.NotEqual(t, s1.GUID(), s2.GUID())
}

// ============================================================================
//                              真实后端
// ============================================================================

func TestListen_TCPShortCircuits(t *testing.T) {
	dir, err := os.MkdirTemp("", "mb")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "bus")

	srv, err := ListenContext(context.Background(), "tcp:host=127.0.0.1;"+address.Format("unix", "path", path))
	require.NoError(t, err)
	defer closeServer(srv)

	assert.True(t, strings.HasPrefix(srv.Address(), "tcp:host=127.0.0.1,port="), srv.Address())
	_, err = os.Lstat(path)
	assert.ErrorIs(t, err, fs.ErrNotExist, "第一个条目成功后不再尝试后续条目")
}

func TestListen_UnixPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root 不受目录权限限制")
	}
	dir, err := os.MkdirTemp("", "mb")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	locked := filepath.Join(dir, "ro")
	require.NoError(t, os.Mkdir(locked, 0o500))

	_, err = Listen(address.Format("unix", "path", filepath.Join(locked, "bus")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDidNotConnect)
	assert.ErrorIs(t, err, fs.ErrPermission)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, ErrorNameAccessDenied, e.Name)
}

func TestListen_PermissionDeniedIsDidNotConnect(t *testing.T) {
	denied := &fakeBackend{
		name:   "fake",
		method: "fake",
		result: transportif.ListenDidNotConnect,
		err:    &fs.PathError{Op: "listen", Path: "/run/bus", Err: syscall.EACCES},
	}
	d := newFakeDispatcher(t, denied)

	_, err := d.Listen(context.Background(), "fake:id=denied")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDidNotConnect)
	assert.NotErrorIs(t, err, ErrBadAddress)
	assert.ErrorIs(t, err, fs.ErrPermission)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, ErrorNameAccessDenied, e.Name)
}

func TestListen_DebugPipeDisabledByDefault(t *testing.T) {
	_, err := Listen("debug-pipe:name=disabled")
	assert.ErrorIs(t, err, ErrBadAddress)
}

// ============================================================================
//                              指标
// ============================================================================

func TestListen_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	failing := &fakeBackend{name: "a", method: "a", result: transportif.ListenDidNotConnect, err: errors.New("nope")}
	ok := &fakeBackend{name: "fake", method: "fake"}
	d, err := NewDispatcher(WithBackends(failing, ok), WithRegisterer(reg))
	require.NoError(t, err)

	srv, err := d.Listen(context.Background(), "a:;fake:id=m")
	require.NoError(t, err)
	_, err = d.Listen(context.Background(), "bogus:")
	require.Error(t, err)

	assert.Equal(t, 1.0, counterValue(t, reg, "msgbus_listen_attempts_total", map[string]string{"backend": "a", "result": "did_not_connect"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "msgbus_listen_attempts_total", map[string]string{"backend": "fake", "result": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "msgbus_listen_failures_total", map[string]string{"kind": "bad_address"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "msgbus_servers_active", nil))

	closeServer(srv)
	assert.Equal(t, 0.0, counterValue(t, reg, "msgbus_servers_active", nil))
}

func TestNewDispatcher_Options(t *testing.T) {
	_, err := NewDispatcher(WithConfig(nil))
	assert.Error(t, err)

	_, err = NewDispatcher(WithBackends(nil))
	assert.Error(t, err)

	cfg := config.NewConfig()
	cfg.Transport.EnableSocket = false
	cfg.Transport.EnablePlatform = false
	cfg.Transport.EnableDebugPipe = false
	_, err = NewDispatcher(WithConfig(cfg))
	assert.Error(t, err)

	cfg = config.NewConfig()
	cfg.Metrics.Enabled = false
	d, err := NewDispatcher(WithConfig(cfg))
	require.NoError(t, err)
	assert.Nil(t, d.metrics)
	assert.Same(t, cfg, d.Config())
}
