package controller

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the controller's Prometheus collectors on a private registry.
type Metrics struct {
	reg          *prometheus.Registry
	decisions    *prometheus.CounterVec
	evalErrors   *prometheus.CounterVec
	escalations  *prometheus.CounterVec
	publishErrs  prometheus.Counter
	duplicates   prometheus.Counter
	moistureSMA  *prometheus.GaugeVec
	moistureEMA  *prometheus.GaugeVec
	historyLen   *prometheus.GaugeVec
	evalDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_decisions_total",
			Help: "Decisions taken by greenhouse, control and action.",
		}, []string{"greenhouse", "control", "action"}),
		evalErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_evaluation_errors_total",
			Help: "Rejected snapshots by reason.",
		}, []string{"reason"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_escalations_total",
			Help: "Escalation signals raised by greenhouse and level.",
		}, []string{"greenhouse", "level"}),
		publishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greenhouse_publish_errors_total",
			Help: "Failed decision or escalation publishes.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greenhouse_snapshot_duplicates_total",
			Help: "Snapshot redeliveries dropped by the deduper.",
		}),
		moistureSMA: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "greenhouse_moisture_sma",
			Help: "Latest simple moving average of soil moisture.",
		}, []string{"greenhouse"}),
		moistureEMA: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "greenhouse_moisture_ema",
			Help: "Latest exponential moving average of soil moisture.",
		}, []string{"greenhouse"}),
		historyLen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "greenhouse_history_length",
			Help: "Points retained in the soil moisture history.",
		}, []string{"greenhouse"}),
		evalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "greenhouse_evaluation_duration_seconds",
			Help:    "Duration of one evaluation cycle.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.reg.MustRegister(
		m.decisions, m.evalErrors, m.escalations, m.publishErrs, m.duplicates,
		m.moistureSMA, m.moistureEMA, m.historyLen, m.evalDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
