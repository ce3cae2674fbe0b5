// Package metrics exposes Prometheus instrumentation for contract reads.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultNamespace = "rentalscope"

// Metrics holds the read pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CallsRequested  *prometheus.CounterVec
	CallsSettled    *prometheus.CounterVec
	BatchesSent     *prometheus.CounterVec
	RPCCallLatency  *prometheus.HistogramVec
	RPCRetries      prometheus.Counter
	QueueDepth      prometheus.Gauge
	ResolverPasses  *prometheus.CounterVec
	RecordsResolved *prometheus.CounterVec
}

// New builds collectors on a private registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CallsRequested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "calls_requested_total",
			Help:      "Contract reads requested by resolvers",
		}, []string{"contract", "method"}),
		CallsSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "calls_settled_total",
			Help:      "Contract reads settled, by outcome",
		}, []string{"contract", "method", "status"}),
		BatchesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "batches_sent_total",
			Help:      "Read batches dispatched to the RPC endpoint",
		}, []string{"mode"}),
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "rpc_call_duration_seconds",
			Help:      "eth_call latency per dispatched request",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		RPCRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "rpc_retries_total",
			Help:      "eth_call attempts that failed and were retried",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "queue_depth",
			Help:      "Reads waiting for dispatch",
		}),
		ResolverPasses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "passes_total",
			Help:      "Resolver evaluations, by readiness",
		}, []string{"resolver", "ready"}),
		RecordsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "records_resolved_total",
			Help:      "Records emitted by ready results",
		}, []string{"resolver"}),
	}
}

func (m *Metrics) CallRequested(contract, method string) {
	if m == nil {
		return
	}
	m.CallsRequested.WithLabelValues(contract, method).Inc()
}

func (m *Metrics) CallSettled(contract, method, status string) {
	if m == nil {
		return
	}
	m.CallsSettled.WithLabelValues(contract, method, status).Inc()
}

func (m *Metrics) BatchSent(mode string, took time.Duration) {
	if m == nil {
		return
	}
	m.BatchesSent.WithLabelValues(mode).Inc()
	m.RPCCallLatency.WithLabelValues(mode).Observe(took.Seconds())
}

func (m *Metrics) Retried() {
	if m == nil {
		return
	}
	m.RPCRetries.Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// ResolverPass records one resolver evaluation and, when ready, its record count.
func (m *Metrics) ResolverPass(resolver string, ready bool, records int) {
	if m == nil {
		return
	}
	label := "false"
	if ready {
		label = "true"
		m.RecordsResolved.WithLabelValues(resolver).Add(float64(records))
	}
	m.ResolverPasses.WithLabelValues(resolver, label).Inc()
}

// Handler serves the private registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes GET /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server start", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
