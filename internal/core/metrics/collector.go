package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector 指标收集器
type Collector struct {
	listenAttempts      *prometheus.CounterVec
	listenFailures      *prometheus.CounterVec
	serversActive       prometheus.Gauge
	connectionsAccepted *prometheus.CounterVec
}

// New 创建收集器并注册到 reg
//
// 同名指标已注册时复用已有的收集器，因此多个分发器可以共享同一个 Registerer。
func New(reg prometheus.Registerer, namespace string) (*Collector, error) {
	c := &Collector{
		listenAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listen_attempts_total",
			Help:      "Listen attempts per backend and result.",
		}, []string{"backend", "result"}),
		listenFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listen_failures_total",
			Help:      "Failed listen dispatches by error kind.",
		}, []string{"kind"}),
		serversActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "servers_active",
			Help:      "Servers constructed and not yet finalized.",
		}),
		connectionsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "New connections handed to the application per backend.",
		}, []string{"backend"}),
	}

	if reg == nil {
		return c, nil
	}

	var err error
	if c.listenAttempts, err = register(reg, c.listenAttempts); err != nil {
		return nil, err
	}
	if c.listenFailures, err = register(reg, c.listenFailures); err != nil {
		return nil, err
	}
	if c.serversActive, err = register(reg, c.serversActive); err != nil {
		return nil, err
	}
	if c.connectionsAccepted, err = register(reg, c.connectionsAccepted); err != nil {
		return nil, err
	}
	return c, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	err := reg.Register(col)
	if err == nil {
		return col, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return col, fmt.Errorf("register metrics: %w", err)
}

// ListenAttempt 记录一次后端尝试
func (c *Collector) ListenAttempt(backend, result string) {
	if c == nil {
		return
	}
	c.listenAttempts.WithLabelValues(backend, result).Inc()
}

// ListenFailure 记录一次分发失败
func (c *Collector) ListenFailure(kind string) {
	if c == nil {
		return
	}
	c.listenFailures.WithLabelValues(kind).Inc()
}

// ServerCreated 服务器构造完成
func (c *Collector) ServerCreated() {
	if c == nil {
		return
	}
	c.serversActive.Inc()
}

// ServerFinalized 服务器被 finalize
func (c *Collector) ServerFinalized() {
	if c == nil {
		return
	}
	c.serversActive.Dec()
}

// ConnectionAccepted 记录一个交给应用的新连接
func (c *Collector) ConnectionAccepted(backend string) {
	if c == nil {
		return
	}
	c.connectionsAccepted.WithLabelValues(backend).Inc()
}
