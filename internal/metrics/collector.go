package metrics

import (
	"net/http"
	"time"

	"github.com/leozw/wp-maintenance/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the service metrics. Each Collector has its own registry so
// that tests and multiple binaries never collide on the default one.
type Collector struct {
	config   *config.MimirConfig
	registry *prometheus.Registry

	// Report assembly
	assemblyDuration *prometheus.HistogramVec
	assembliesTotal  *prometheus.CounterVec
	sourcesDegraded  *prometheus.CounterVec

	// Telemetry sync
	syncTotal      *prometheus.CounterVec
	syncDuration   prometheus.Histogram
	syncScheduled  prometheus.Gauge
	syncQueueSize  prometheus.Gauge
	syncLastRunUTC prometheus.Gauge
}

func NewCollector(cfg config.MimirConfig) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		config:   &cfg,
		registry: reg,

		assemblyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wpm_report_assembly_duration_seconds",
				Help:    "Duration of maintenance report assembly in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"outcome"},
		),

		assembliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wpm_report_assemblies_total",
				Help: "Total number of report assemblies by outcome",
			},
			[]string{"outcome"},
		),

		sourcesDegraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wpm_report_sources_degraded_total",
				Help: "Report data sources that fell back to defaults",
			},
			[]string{"source"},
		),

		syncTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wpm_sync_total",
				Help: "Total number of website telemetry syncs by resulting status",
			},
			[]string{"status"},
		),

		syncDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wpm_sync_duration_seconds",
				Help:    "Duration of a single website telemetry sync",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),

		syncScheduled: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wpm_sync_scheduled",
				Help: "Websites queued during the last scheduler pass",
			},
		),

		syncQueueSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wpm_sync_queue_size",
				Help: "Jobs waiting in the sync work queue",
			},
		),

		syncLastRunUTC: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wpm_sync_last_run_timestamp_seconds",
				Help: "Unix time of the last scheduler pass",
			},
		),
	}
}

// ObserveAssembly records one report assembly.
func (c *Collector) ObserveAssembly(outcome string, duration time.Duration) {
	c.assemblyDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	c.assembliesTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) IncDegradedSource(source string) {
	c.sourcesDegraded.WithLabelValues(source).Inc()
}

// RecordSync records the status a sync wrote back to a website.
func (c *Collector) RecordSync(status string, duration time.Duration) {
	c.syncTotal.WithLabelValues(status).Inc()
	c.syncDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordScheduled(count, queueSize int) {
	c.syncScheduled.Set(float64(count))
	c.syncQueueSize.Set(float64(queueSize))
	c.syncLastRunUTC.SetToCurrentTime()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
