package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 刷新相关的 prometheus 指标，使用独立的 Registry
type Metrics struct {
	registry        *prometheus.Registry
	RefreshDuration *prometheus.HistogramVec
	OrdersProcessed *prometheus.HistogramVec
	RefreshErrors   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RefreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "batchbook",
			Name:      "refresh_duration_ms",
			Help:      "单个交易对刷新耗时（毫秒）",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"pair"}),
		OrdersProcessed: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "batchbook",
			Name:      "orders_processed",
			Help:      "每次刷新处理的订单数",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"pair"}),
		RefreshErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "batchbook",
			Name:      "refresh_errors_total",
			Help:      "刷新失败次数",
		}, []string{"pair"}),
	}
	m.registry.MustRegister(m.RefreshDuration, m.OrdersProcessed, m.RefreshErrors)
	return m
}

// Handler GET /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
