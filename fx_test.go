package msgbus

import (
	"context"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-msgbus/config"
	"github.com/dep2p/go-msgbus/internal/core/transport/debugpipe"
)

func debugPipeConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Transport.EnableDebugPipe = true
	cfg.Metrics.Enabled = false
	return cfg
}

func TestModule_StartStop(t *testing.T) {
	var srv *Server
	app := fxtest.New(t,
		fx.Supply(debugPipeConfig()),
		Module("debug-pipe:name=fx-module"),
		fx.Populate(&srv),
	)
	app.RequireStart()

	require.NotNil(t, srv)
	assert.True(t, srv.IsConnected())
	assert.Equal(t, "debug-pipe", srv.Backend())

	got := make(chan net.Conn, 1)
	srv.SetNewConnectionHandler(ConnectionHandlerFunc(func(_ *Server, c net.Conn) { got <- c }))

	client, err := debugpipe.Dial("fx-module")
	require.NoError(t, err)
	defer client.Close()
	server := <-got
	defer server.Close()

	app.RequireStop()

	_, err = debugpipe.Dial("fx-module")
	assert.ErrorIs(t, err, debugpipe.ErrNoServer, "OnStop 断开服务器")
}

func TestNewApp(t *testing.T) {
	var d *Dispatcher
	var srv *Server
	app := NewApp(debugPipeConfig(), "debug-pipe:name=fx-app", fx.Populate(&d, &srv))
	require.NoError(t, app.Err())

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	assert.NotNil(t, d)
	assert.Contains(t, srv.Address(), "debug-pipe:name=fx-app,guid=")
	require.NoError(t, app.Stop(ctx))
}

func TestNewApp_BadAddress(t *testing.T) {
	app := NewApp(debugPipeConfig(), "bogus:")
	require.Error(t, app.Err())
	assert.ErrorIs(t, app.Err(), ErrBadAddress)
}

func TestModule_MetricsRegisterer(t *testing.T) {
	cfg := debugPipeConfig()
	cfg.Metrics.Enabled = true
	reg := prometheus.NewRegistry()

	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(func() prometheus.Registerer { return reg }),
		Module("debug-pipe:name=fx-metrics"),
	)
	app.RequireStart()

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "msgbus_servers_active")

	app.RequireStop()
}
