package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-msgbus/config"
)

func TestConfigFromUnified(t *testing.T) {
	cfg := ConfigFromUnified(nil)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "msgbus", cfg.Namespace)
}

func TestModule_ProvidesCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	var c *Collector
	app := fxtest.New(t,
		fx.Supply(config.NewConfig()),
		fx.Provide(func() prometheus.Registerer { return reg }),
		Module,
		fx.Populate(&c),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, c)
	c.ServerCreated()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.serversActive))
	assert.Equal(t, 1, testutil.CollectAndCount(c.serversActive))
}

func TestModule_Disabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Enabled = false

	c, err := NewCollectorFromParams(Params{UnifiedCfg: cfg})
	require.NoError(t, err)
	assert.Nil(t, c)
}
