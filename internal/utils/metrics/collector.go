// internal/utils/metrics/collector.go
package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/liquidity"
)

const namespace = "pumplp"

// Collector владеет собственным реестром метрик операций, транзакций и RPC.
// Реализует liquidity.Recorder и blockchain.RPCObserver.
type Collector struct {
	registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	transitions       *prometheus.CounterVec
	rpcRequests       *prometheus.CounterVec
	rpcLatency        *prometheus.HistogramVec
}

// NewCollector создает новый экземпляр коллектора метрик
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of liquidity operations by outcome",
			},
			[]string{"operation", "result"},
		),

		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Liquidity operation duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"operation"},
		),

		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transaction_transitions_total",
				Help:      "Transaction lifecycle transitions",
			},
			[]string{"state"},
		),

		rpcRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_requests_total",
				Help:      "Total number of RPC requests",
			},
			[]string{"method", "status"},
		),

		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "RPC request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method"},
		),
	}

	c.registry.MustRegister(
		c.operations,
		c.operationDuration,
		c.transitions,
		c.rpcRequests,
		c.rpcLatency,
	)
	return c
}

// Registry возвращает реестр для экспорта или тестов.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	c.operations.Reset()
	c.operationDuration.Reset()
	c.transitions.Reset()
	c.rpcRequests.Reset()
	c.rpcLatency.Reset()
}

// RecordOperation записывает результат и длительность операции с ликвидностью.
func (c *Collector) RecordOperation(op string, err error, seconds float64) {
	c.operations.WithLabelValues(op, resultLabel(err)).Inc()
	c.operationDuration.WithLabelValues(op).Observe(seconds)
}

// RecordTransition считает переходы транзакции между состояниями.
func (c *Collector) RecordTransition(state liquidity.TxState) {
	c.transitions.WithLabelValues(state.String()).Inc()
}

// ObserveRPC записывает метрики RPC-запроса
func (c *Collector) ObserveRPC(method string, err error, seconds float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.rpcRequests.WithLabelValues(method, status).Inc()
	c.rpcLatency.WithLabelValues(method).Observe(seconds)
}

// Push отправляет все метрики в Prometheus Pushgateway под именем job.
func (c *Collector) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(c.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

// resultLabel сворачивает ошибку в её вид, чтобы кардинальность оставалась ограниченной.
func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	kinds := []struct {
		kind  error
		label string
	}{
		{liquidity.ErrInvalidAmount, "invalid_amount"},
		{liquidity.ErrInvalidSlippage, "invalid_slippage"},
		{liquidity.ErrSignerMismatch, "signer_mismatch"},
		{liquidity.ErrPoolNotFound, "pool_not_found"},
		{liquidity.ErrPoolAlreadyExists, "pool_already_exists"},
		{liquidity.ErrEmptyPool, "empty_pool"},
		{liquidity.ErrInsufficientSupply, "insufficient_supply"},
		{liquidity.ErrOperationDisabled, "operation_disabled"},
		{liquidity.ErrSubmission, "submission"},
		{liquidity.ErrExecution, "execution"},
		{liquidity.ErrConfirmationTimeout, "confirmation_timeout"},
		{liquidity.ErrNetwork, "network"},
	}
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.label
		}
	}
	return "error"
}
